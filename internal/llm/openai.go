package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/clickit/analytics-engine/internal/config"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI client implementation, also used for Azure OpenAI deployments
type OpenAI struct {
	client *openai.Client
	cfg    *config.LLMConfig
	model  string
}

func NewOpenAI(cfg *config.LLMConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}

	var client *openai.Client
	model := cfg.Model

	switch cfg.Provider {
	case "azure":
		client = openai.NewClient(
			azure.WithEndpoint(cfg.APIEndpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
			option.WithRequestTimeout(cfg.Timeout),
		)
		if model == "" {
			model = cfg.DeploymentName
		}
	default: // "openai"
		client = openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.APIEndpoint),
			option.WithRequestTimeout(cfg.Timeout),
		)
		if model == "" {
			model = defaultOpenAIModel
		}
	}

	return &OpenAI{
		client: client,
		cfg:    cfg,
		model:  model,
	}, nil
}

func (o *OpenAI) Name() string { return o.cfg.Provider }

func (o *OpenAI) Complete(ctx context.Context, systemMessages []string, userMessages []string, opts ...Option) (*Response, error) {
	// Apply options
	options := &Options{
		Model:       o.model,
		Temperature: 0,
		MaxTokens:   o.cfg.MaxTokens,
	}
	for _, opt := range opts {
		opt(options)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(systemMessages)+len(userMessages))
	for _, m := range systemMessages {
		messages = append(messages, openai.SystemMessage(m))
	}
	for _, m := range userMessages {
		messages = append(messages, openai.UserMessage(m))
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.F(options.Model),
		Messages:    openai.F(messages),
		Temperature: openai.F(options.Temperature),
		MaxTokens:   openai.F(options.MaxTokens),
	}
	if len(options.Tools) > 0 {
		params.Tools = openai.F(options.Tools)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}

	// Process the response
	response := &Response{
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	if len(resp.Choices) == 0 {
		return response, nil
	}
	msg := resp.Choices[0].Message
	response.Content = msg.Content
	if len(msg.ToolCalls) > 0 {
		toolCall := msg.ToolCalls[0]
		response.FunctionCall = &FunctionResponse{
			Name:      toolCall.Function.Name,
			Arguments: toolCall.Function.Arguments,
		}
	}

	return response, nil
}
