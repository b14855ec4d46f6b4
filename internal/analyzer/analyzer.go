package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clickit/analytics-engine/apimodels"
	"github.com/clickit/analytics-engine/internal/compute"
	"github.com/clickit/analytics-engine/internal/metrics"
)

// DefaultSeed seeds k-means when neither the request nor the configuration sets one.
const DefaultSeed uint64 = 42

// outcome is what a category handler hands to the envelope builder.
type outcome struct {
	model   ModelName
	results any
	summary string
}

type handlerFunc func(a *Analyzer, req apimodels.AnalysisRequest) (outcome, error)

var handlers = map[AnalysisType]handlerFunc{
	AnalysisGrowth:       (*Analyzer).growth,
	AnalysisRetention:    (*Analyzer).retention,
	AnalysisSegmentation: (*Analyzer).segmentation,
}

type Analyzer struct {
	pool        *compute.Pool
	defaultSeed uint64
}

type Option func(*Analyzer)

// WithPool runs computations on p instead of a per-CPU pool.
func WithPool(p *compute.Pool) Option {
	return func(a *Analyzer) {
		a.pool = p
	}
}

func WithDefaultSeed(seed uint64) Option {
	return func(a *Analyzer) {
		a.defaultSeed = seed
	}
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{defaultSeed: DefaultSeed}
	for _, opt := range opts {
		opt(a)
	}
	if a.pool == nil {
		a.pool = compute.NewPool(0)
	}
	return a
}

// Analyze validates req, runs the selected model routine and returns the result envelope.
// Failures wrap one of the apimodels sentinel errors.
func (a *Analyzer) Analyze(ctx context.Context, req apimodels.AnalysisRequest) (*apimodels.AnalysisResponse, error) {
	slog.Info("Starting analysis",
		"analysis_type", req.AnalysisType,
		"model", req.ModelName,
		"rows", len(req.Data),
	)
	startTime := time.Now()

	at, err := ParseAnalysisType(req.AnalysisType)
	if err != nil {
		a.record("unknown", "unknown", err, startTime)
		return nil, err
	}
	// Categories without model routines fail in their handler, before any input checks.
	if req.TargetColumn == "" && len(SupportedModels[at]) > 0 {
		err := fmt.Errorf("%w: target_column is required", apimodels.ErrInvalidColumn)
		a.record(string(at), "unknown", err, startTime)
		return nil, err
	}

	var out outcome
	var handlerErr error
	if err := a.pool.Do(ctx, func() {
		out, handlerErr = handlers[at](a, req)
	}); err != nil {
		err = fmt.Errorf("%w: %v", apimodels.ErrBusy, err)
		a.record(string(at), "unknown", err, startTime)
		return nil, err
	}

	// Unparsed model names stay out of metric labels.
	model := string(out.model)
	if model == "" {
		model = "unknown"
	}
	a.record(string(at), model, handlerErr, startTime)
	if handlerErr != nil {
		return nil, handlerErr
	}

	resp := buildEnvelope(at, out, len(req.Data), time.Since(startTime))
	slog.Debug("Analysis completed", "id", resp.Metadata.ID, "summary", resp.Summary)
	return resp, nil
}

func (a *Analyzer) record(analysisType, model string, err error, startTime time.Time) {
	status := "ok"
	if err != nil {
		status = apimodels.ErrorKind(err)
		slog.Warn("Analysis failed", "analysis_type", analysisType, "model", model, "kind", status, "error", err)
	}
	metrics.AnalysisRequests.WithLabelValues(analysisType, model, status).Inc()
	metrics.AnalysisDuration.WithLabelValues(analysisType, model).Observe(time.Since(startTime).Seconds())
}

func (a *Analyzer) retention(req apimodels.AnalysisRequest) (outcome, error) {
	return outcome{}, fmt.Errorf("%w: %q analysis has no handler", apimodels.ErrNotImplemented, AnalysisRetention)
}
