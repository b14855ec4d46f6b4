// Package model holds the stateless numeric routines behind each analysis.
package model

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/clickit/analytics-engine/apimodels"
	"github.com/clickit/analytics-engine/internal/frame"
)

// MovingAverage returns, for each row i >= window-1, the mean of the trailing
// window values ending at i. Earlier rows, and windows holding a null, are null.
func MovingAverage(s frame.Series, window int) (frame.Series, error) {
	if window < 1 {
		return frame.Series{}, fmt.Errorf("%w: window must be a positive integer, got %d", apimodels.ErrInvalidParameter, window)
	}

	n := s.Len()
	out := frame.Series{
		Values: make([]float64, n),
		Valid:  make([]bool, n),
	}
	for i := window - 1; i < n; i++ {
		lo := i - window + 1
		if slices.Contains(s.Valid[lo:i+1], false) {
			continue
		}
		out.Values[i] = stat.Mean(s.Values[lo:i+1], nil)
		out.Valid[i] = true
	}
	return out, nil
}
