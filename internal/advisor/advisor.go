// Package advisor asks a language model to recommend analyses and to explain
// their results in business language. It never computes results itself.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/clickit/analytics-engine/apimodels"
	"github.com/clickit/analytics-engine/internal/llm"
	"github.com/clickit/analytics-engine/internal/metrics"
	"github.com/clickit/analytics-engine/internal/tools"
)

// ErrProvider wraps failures reported by the language model provider.
var ErrProvider = errors.New("llm provider error")

const maxOutputChars = 5000

var RecommendPrompt = `You are a business data scientist.
Recommend the best statistical or ML models for the user's goal from:
Moving Average, Regression, K-Means.
Explain why each model fits the data described.
When one model clearly fits best, call suggest_analysis with it.`

var ExplainPrompt = `You are a financial analyst.
Explain the analysis results you are given in simple business language.
Include:
- Key trends
- Risks
- Actionable insights`

type Advisor struct {
	provider llm.Provider
}

func New(provider llm.Provider) *Advisor {
	return &Advisor{provider: provider}
}

func (a *Advisor) Recommend(ctx context.Context, req apimodels.RecommendRequest) (*apimodels.RecommendResponse, error) {
	slog.Info("Requesting model recommendation", "goal", req.SelectedGoal, "columns", len(req.Columns), "rows", req.Rows)

	user := fmt.Sprintf("User goal: %s\nDataset columns: %s\nData size: %d rows",
		req.SelectedGoal, strings.Join(req.Columns, ", "), req.Rows)

	resp, err := a.complete(ctx, "recommend", RecommendPrompt, user,
		llm.WithTools(tools.Specs),
		llm.WithTemperature(0.2),
	)
	if err != nil {
		return nil, err
	}

	out := &apimodels.RecommendResponse{Recommendations: truncateString(resp.Content, maxOutputChars)}
	if resp.FunctionCall != nil {
		s, err := tools.ParseSuggestion(resp.FunctionCall)
		if err != nil {
			slog.Warn("Ignoring invalid suggestion from LLM", "function", resp.FunctionCall.Name, "error", err)
		} else {
			out.Suggestion = s
			if out.Recommendations == "" {
				out.Recommendations = s.Reason
			}
		}
	}
	return out, nil
}

func (a *Advisor) Explain(ctx context.Context, req apimodels.ExplainRequest) (*apimodels.ExplainResponse, error) {
	slog.Info("Requesting result explanation")

	output, err := json.Marshal(req.ModelOutput)
	if err != nil {
		return nil, fmt.Errorf("encoding model output: %w", err)
	}

	resp, err := a.complete(ctx, "explain", ExplainPrompt, truncateString(string(output), maxOutputChars))
	if err != nil {
		return nil, err
	}
	return &apimodels.ExplainResponse{Explanation: truncateString(resp.Content, maxOutputChars)}, nil
}

func (a *Advisor) complete(ctx context.Context, operation, system, user string, opts ...llm.Option) (*llm.Response, error) {
	resp, err := a.provider.Complete(ctx, []string{system}, []string{user}, opts...)
	if err != nil {
		metrics.LLMRequests.WithLabelValues(a.provider.Name(), operation, "error").Inc()
		slog.Error("LLM call failed", "provider", a.provider.Name(), "operation", operation, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrProvider, operation, err)
	}
	metrics.LLMRequests.WithLabelValues(a.provider.Name(), operation, "ok").Inc()
	slog.Debug("LLM call completed", "operation", operation, "tokens", resp.Usage.TotalTokens)
	return resp, nil
}

// truncateString cuts s to at most maxLen bytes without splitting a rune.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n[truncated]"
}
