package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/clickit/analytics-engine/apimodels"
)

const (
	defaultWindow    = 3
	defaultNClusters = 3

	// RegressionHorizon is the number of future positions a linear trend predicts.
	RegressionHorizon = 12
)

type movingAverageParams struct {
	Window int `json:"window"`
}

// regression takes no options
type regressionParams struct{}

type segmentationParams struct {
	Columns   []string `json:"columns"`
	NClusters int      `json:"n_clusters"`
	Seed      *uint64  `json:"seed"`
}

// decodeParams fills v from raw, rejecting unknown options.
// Fields absent from raw keep the defaults already set on v.
func decodeParams(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", apimodels.ErrInvalidParameter, err)
	}
	return nil
}

func parseMovingAverageParams(raw json.RawMessage) (movingAverageParams, error) {
	p := movingAverageParams{Window: defaultWindow}
	if err := decodeParams(raw, &p); err != nil {
		return p, err
	}
	if p.Window < 1 {
		return p, fmt.Errorf("%w: window must be a positive integer, got %d", apimodels.ErrInvalidParameter, p.Window)
	}
	return p, nil
}

func parseRegressionParams(raw json.RawMessage) (regressionParams, error) {
	var p regressionParams
	return p, decodeParams(raw, &p)
}

func parseSegmentationParams(raw json.RawMessage, target string, seed uint64) (segmentationParams, error) {
	p := segmentationParams{NClusters: defaultNClusters}
	if err := decodeParams(raw, &p); err != nil {
		return p, err
	}
	if len(p.Columns) == 0 {
		p.Columns = []string{target}
	}
	for i, c := range p.Columns {
		if c == "" {
			return p, fmt.Errorf("%w: columns[%d] is empty", apimodels.ErrInvalidParameter, i)
		}
	}
	if p.NClusters < 1 {
		return p, fmt.Errorf("%w: n_clusters must be a positive integer, got %d", apimodels.ErrInvalidParameter, p.NClusters)
	}
	if p.Seed == nil {
		p.Seed = &seed
	}
	return p, nil
}
