package analyzer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clickit/analytics-engine/apimodels"
	"github.com/clickit/analytics-engine/internal/frame"
	"github.com/clickit/analytics-engine/internal/model"
)

func (a *Analyzer) segmentation(req apimodels.AnalysisRequest) (outcome, error) {
	m, err := ParseModelName(AnalysisSegmentation, req.ModelName)
	if err != nil {
		return outcome{}, err
	}
	out, err := a.kmeans(req)
	out.model = m
	return out, err
}

func (a *Analyzer) kmeans(req apimodels.AnalysisRequest) (outcome, error) {
	p, err := parseSegmentationParams(req.Parameters, req.TargetColumn, a.defaultSeed)
	if err != nil {
		return outcome{}, err
	}
	f, err := frame.New(req.Data)
	if err != nil {
		return outcome{}, err
	}
	if f.Len() < p.NClusters {
		return outcome{}, fmt.Errorf("%w: %d rows cannot form %d clusters", apimodels.ErrInsufficientData, f.Len(), p.NClusters)
	}

	points := make([][]float64, f.Len())
	for i := range points {
		points[i] = make([]float64, len(p.Columns))
	}
	for j, col := range p.Columns {
		s, err := f.Numeric(col)
		if errors.Is(err, apimodels.ErrDataFormat) {
			return outcome{}, fmt.Errorf("%w: column %q is not numeric (%v)", apimodels.ErrInvalidColumn, col, err)
		}
		if err != nil {
			return outcome{}, err
		}
		if i := s.FirstNull(); i >= 0 {
			return outcome{}, fmt.Errorf("%w: column %q row %d: missing value", apimodels.ErrDataFormat, col, i)
		}
		for i, v := range s.Values {
			points[i][j] = v
		}
	}

	res, err := model.KMeans(points, p.NClusters, *p.Seed)
	if err != nil {
		return outcome{}, err
	}

	return outcome{
		results: annotate(f.Rows(), "segment", func(i int) any { return res.Labels[i] }),
		summary: fmt.Sprintf("K-Means segmentation completed with %d clusters on %s.", p.NClusters, strings.Join(p.Columns, ", ")),
	}, nil
}
