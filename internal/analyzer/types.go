package analyzer

import (
	"fmt"
	"slices"

	"github.com/clickit/analytics-engine/apimodels"
)

type AnalysisType string

const (
	AnalysisGrowth       AnalysisType = "growth"
	AnalysisRetention    AnalysisType = "retention"
	AnalysisSegmentation AnalysisType = "segmentation"
)

// AnalysisTypes lists every recognized category, in a stable order.
var AnalysisTypes = []AnalysisType{AnalysisGrowth, AnalysisRetention, AnalysisSegmentation}

func ParseAnalysisType(s string) (AnalysisType, error) {
	at := AnalysisType(s)
	if !slices.Contains(AnalysisTypes, at) {
		return "", fmt.Errorf("%w: %q", apimodels.ErrUnsupportedAnalysisType, s)
	}
	return at, nil
}

type ModelName string

const (
	ModelMovingAverage ModelName = "moving_average"
	ModelRegression    ModelName = "regression"
	ModelKMeans        ModelName = "kmeans"
)

// SupportedModels lists the model routines per category. The first entry is
// used when a category allows model_name to be omitted.
var SupportedModels = map[AnalysisType][]ModelName{
	AnalysisGrowth:       {ModelMovingAverage, ModelRegression},
	AnalysisRetention:    nil,
	AnalysisSegmentation: {ModelKMeans},
}

// implicitModel marks categories where an empty model_name selects the default routine.
var implicitModel = map[AnalysisType]bool{
	AnalysisSegmentation: true,
}

func ParseModelName(at AnalysisType, s string) (ModelName, error) {
	supported := SupportedModels[at]
	if s == "" && implicitModel[at] && len(supported) > 0 {
		return supported[0], nil
	}
	m := ModelName(s)
	if !slices.Contains(supported, m) {
		return "", fmt.Errorf("%w: %q for analysis type %q", apimodels.ErrUnsupportedModel, s, at)
	}
	return m, nil
}
