package tools

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/clickit/analytics-engine/apimodels"
	"github.com/clickit/analytics-engine/internal/analyzer"
	"github.com/clickit/analytics-engine/internal/llm"
)

const SuggestAnalysis = "suggest_analysis"

// Define the functions that can be called by the LLM
var Specs = []openai.ChatCompletionToolParam{
	{
		Type: openai.F(openai.ChatCompletionToolTypeFunction),
		Function: openai.F(openai.FunctionDefinitionParam{
			Name:        openai.String(SuggestAnalysis),
			Description: openai.String("Suggest the analysis the engine should run for the user's goal and dataset"),
			Parameters: openai.F(openai.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"analysis_type": map[string]interface{}{
						"type":        "string",
						"enum":        runnableTypes(),
						"description": "The analysis category to run",
					},
					"model_name": map[string]interface{}{
						"type":        "string",
						"enum":        runnableModels(),
						"description": "The model routine within the category",
					},
					"target_column": map[string]string{
						"type":        "string",
						"description": "The numeric column to analyze",
					},
					"date_column": map[string]string{
						"type":        "string",
						"description": "The column that orders rows in time, if any",
					},
					"reason": map[string]string{
						"type":        "string",
						"description": "Why this model fits the goal and the data, in business language",
					},
				},
				"required": []string{"analysis_type", "model_name", "reason"},
			}),
		}),
	},
}

// runnableTypes lists categories that have at least one model routine.
func runnableTypes() []string {
	var out []string
	for _, at := range analyzer.AnalysisTypes {
		if len(analyzer.SupportedModels[at]) > 0 {
			out = append(out, string(at))
		}
	}
	return out
}

func runnableModels() []string {
	var out []string
	for _, at := range analyzer.AnalysisTypes {
		for _, m := range analyzer.SupportedModels[at] {
			out = append(out, string(m))
		}
	}
	return out
}

// ParseSuggestion decodes a suggest_analysis call and checks that the engine can run it.
func ParseSuggestion(call *llm.FunctionResponse) (*apimodels.Suggestion, error) {
	if call.Name != SuggestAnalysis {
		return nil, fmt.Errorf("unexpected function call %q", call.Name)
	}

	var s apimodels.Suggestion
	if err := json.Unmarshal([]byte(call.Arguments), &s); err != nil {
		return nil, fmt.Errorf("decoding %s arguments: %w", SuggestAnalysis, err)
	}
	at, err := analyzer.ParseAnalysisType(s.AnalysisType)
	if err != nil {
		return nil, err
	}
	m, err := analyzer.ParseModelName(at, s.ModelName)
	if err != nil {
		return nil, err
	}
	s.ModelName = string(m)
	return &s, nil
}
