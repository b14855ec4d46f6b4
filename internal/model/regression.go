package model

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/clickit/analytics-engine/apimodels"
)

// LinearFit is a least-squares line y = Intercept + Slope*x.
type LinearFit struct {
	Slope     float64
	Intercept float64
}

// FitLinearTrend fits y against its 0-based position.
func FitLinearTrend(y []float64) (LinearFit, error) {
	if len(y) < 2 {
		return LinearFit{}, fmt.Errorf("%w: linear trend needs at least 2 rows, got %d", apimodels.ErrInsufficientData, len(y))
	}

	x := make([]float64, len(y))
	for i := range x {
		x[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return LinearFit{Slope: beta, Intercept: alpha}, nil
}

func (f LinearFit) At(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// Extrapolate predicts horizon values at positions start, start+1, ...
func (f LinearFit) Extrapolate(start, horizon int) []float64 {
	out := make([]float64, horizon)
	for i := range out {
		out[i] = f.At(float64(start + i))
	}
	return out
}
