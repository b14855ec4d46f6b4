package analyzer

import (
	"time"

	"github.com/google/uuid"

	"github.com/clickit/analytics-engine/apimodels"
	"github.com/clickit/analytics-engine/internal/frame"
)

func buildEnvelope(at AnalysisType, out outcome, rows int, took time.Duration) *apimodels.AnalysisResponse {
	return &apimodels.AnalysisResponse{
		Results: out.results,
		Summary: out.summary,
		Metadata: apimodels.AnalysisMetadata{
			ID:           uuid.NewString(),
			AnalysisType: string(at),
			Model:        string(out.model),
			Rows:         rows,
			Duration:     took.String(),
		},
	}
}

// annotate sets field on every row to value(i) and returns the rows.
func annotate(rows []apimodels.Record, field string, value func(i int) any) []apimodels.Record {
	for i, row := range rows {
		row[field] = value(i)
	}
	return rows
}

func nullable(s frame.Series, i int) any {
	if !s.Valid[i] {
		return nil
	}
	return s.Values[i]
}
