package llm

import (
	"context"

	"github.com/openai/openai-go"
)

type Provider interface {
	// Complete sends the messages and returns the model's reply
	Complete(ctx context.Context, systemMessages []string, userMessages []string, opts ...Option) (*Response, error)

	// Name identifies the provider in logs and metrics
	Name() string
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

type Option func(*Options)

type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	// Tools are offered to providers that support function calling; others ignore them
	Tools []openai.ChatCompletionToolParam
}

// FunctionResponse represents the structured response from a function call
type FunctionResponse struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Response struct {
	Content      string
	FunctionCall *FunctionResponse
	Usage        Usage
}

func WithTools(tools []openai.ChatCompletionToolParam) Option {
	return func(o *Options) {
		o.Tools = tools
	}
}

func WithTemperature(t float64) Option {
	return func(o *Options) {
		o.Temperature = t
	}
}
