package apimodels

type AnalysisResponse struct {
	// Either []Record for row-augmenting models or *ForecastResult
	Results any `json:"results"`

	// One-line description of what was computed
	Summary string `json:"summary"`

	// Metadata about the analysis
	Metadata AnalysisMetadata `json:"metadata"`
}

// ForecastResult is the shape returned by forecast-horizon models.
type ForecastResult struct {
	Historical []Record  `json:"historical"`
	Forecast   []float64 `json:"forecast"`
	Slope      float64   `json:"slope"`
	Intercept  float64   `json:"intercept"`
}

type AnalysisMetadata struct {
	ID           string `json:"id"`
	AnalysisType string `json:"analysis_type"`
	Model        string `json:"model"`
	Rows         int    `json:"rows"`

	// Time taken for analysis
	Duration string `json:"duration"`

	// Set when the result was served from the result cache
	Cached bool `json:"cached,omitempty"`
}

type UploadResponse struct {
	Filename string   `json:"filename"`
	Tag      string   `json:"tag"`
	Columns  []string `json:"columns"`
	Preview  []Record `json:"preview"`
	RowCount int      `json:"row_count"`
	Data     []Record `json:"data"`
}

// Suggestion is the structured form of a model recommendation.
type Suggestion struct {
	AnalysisType string `json:"analysis_type"`
	ModelName    string `json:"model_name"`
	TargetColumn string `json:"target_column,omitempty"`
	DateColumn   string `json:"date_column,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type RecommendResponse struct {
	Recommendations string      `json:"recommendations"`
	Suggestion      *Suggestion `json:"suggestion,omitempty"`
}

type ExplainResponse struct {
	Explanation string `json:"explanation"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
