package apimodels

import "encoding/json"

// Record is a single row of tabular data keyed by column name.
type Record map[string]any

type AnalysisRequest struct {
	// Data is the dataset in row order
	Data []Record `json:"data"`

	// AnalysisType selects the category handler (growth, retention, segmentation)
	AnalysisType string `json:"analysis_type"`

	// ModelName selects the model routine within the category
	ModelName string `json:"model_name"`

	// Parameters are model-specific options, decoded strictly per model
	Parameters json.RawMessage `json:"parameters,omitempty"`

	// TargetColumn holds the primary numeric signal
	TargetColumn string `json:"target_column"`

	// DateColumn optionally orders rows for time-series models
	DateColumn string `json:"date_column,omitempty"`
}

type RecommendRequest struct {
	SelectedGoal string   `json:"selected_goal"`
	Columns      []string `json:"columns"`
	Rows         int      `json:"rows"`
}

type ExplainRequest struct {
	ModelOutput any `json:"model_output"`
}
