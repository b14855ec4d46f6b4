package analyzer

import (
	"fmt"
	"math"

	"github.com/clickit/analytics-engine/apimodels"
	"github.com/clickit/analytics-engine/internal/frame"
	"github.com/clickit/analytics-engine/internal/model"
)

func (a *Analyzer) growth(req apimodels.AnalysisRequest) (outcome, error) {
	m, err := ParseModelName(AnalysisGrowth, req.ModelName)
	if err != nil {
		return outcome{}, err
	}

	var out outcome
	switch m {
	case ModelMovingAverage:
		out, err = movingAverage(req)
	case ModelRegression:
		out, err = linearTrend(req)
	}
	out.model = m
	return out, err
}

// timeOrdered builds a frame sorted by the request's date column, if any.
func timeOrdered(req apimodels.AnalysisRequest) (*frame.Frame, error) {
	return frame.New(req.Data, frame.WithDateColumn(req.DateColumn), frame.SortedByDate())
}

func movingAverage(req apimodels.AnalysisRequest) (outcome, error) {
	p, err := parseMovingAverageParams(req.Parameters)
	if err != nil {
		return outcome{}, err
	}
	f, err := timeOrdered(req)
	if err != nil {
		return outcome{}, err
	}
	y, err := f.Numeric(req.TargetColumn)
	if err != nil {
		return outcome{}, err
	}
	ma, err := model.MovingAverage(y, p.Window)
	if err != nil {
		return outcome{}, err
	}
	if err := requireFinite("moving average", ma.Values...); err != nil {
		return outcome{}, err
	}

	return outcome{
		results: annotate(f.Rows(), "forecast", func(i int) any { return nullable(ma, i) }),
		summary: fmt.Sprintf("Moving average forecast calculated with a window of %d rows.", p.Window),
	}, nil
}

func linearTrend(req apimodels.AnalysisRequest) (outcome, error) {
	if _, err := parseRegressionParams(req.Parameters); err != nil {
		return outcome{}, err
	}
	f, err := timeOrdered(req)
	if err != nil {
		return outcome{}, err
	}
	if f.Len() < 2 {
		return outcome{}, fmt.Errorf("%w: regression needs at least 2 rows, got %d", apimodels.ErrInsufficientData, f.Len())
	}
	y, err := f.Numeric(req.TargetColumn)
	if err != nil {
		return outcome{}, err
	}
	if i := y.FirstNull(); i >= 0 {
		return outcome{}, fmt.Errorf("%w: column %q row %d: missing value", apimodels.ErrDataFormat, req.TargetColumn, i)
	}

	fit, err := model.FitLinearTrend(y.Values)
	if err != nil {
		return outcome{}, err
	}
	forecast := fit.Extrapolate(f.Len(), RegressionHorizon)
	if err := requireFinite("linear trend", append([]float64{fit.Slope, fit.Intercept}, forecast...)...); err != nil {
		return outcome{}, err
	}

	historical := make([]apimodels.Record, f.Len())
	for i, row := range f.Rows() {
		rec := apimodels.Record{req.TargetColumn: y.Values[i]}
		if dc := f.DateColumn(); dc != "" {
			rec[dc] = row[dc]
		}
		historical[i] = rec
	}

	return outcome{
		results: &apimodels.ForecastResult{
			Historical: historical,
			Forecast:   forecast,
			Slope:      fit.Slope,
			Intercept:  fit.Intercept,
		},
		summary: fmt.Sprintf("Linear regression growth model. Slope: %g per row, %d-step forecast.", fit.Slope, RegressionHorizon),
	}, nil
}

// requireFinite fails when a computed value overflowed float64, since JSON cannot carry it.
func requireFinite(what string, vals ...float64) error {
	for _, v := range vals {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Errorf("%w: %s is not finite for the given values", apimodels.ErrDataFormat, what)
		}
	}
	return nil
}
