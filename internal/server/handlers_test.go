package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickit/analytics-engine/apimodels"
	"github.com/clickit/analytics-engine/internal/advisor"
	"github.com/clickit/analytics-engine/internal/analyzer"
	"github.com/clickit/analytics-engine/internal/compute"
	"github.com/clickit/analytics-engine/internal/config"
	"github.com/clickit/analytics-engine/internal/llm"
)

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Port:           "8000",
			Host:           "127.0.0.1",
			RequestTimeout: 5 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Analysis: config.AnalysisConfig{Workers: 2, DefaultSeed: 42},
		Upload:   config.UploadConfig{MaxBytes: 1 << 20, PreviewRows: 5},
	}
}

func newTestServer(opts ...Option) *Server {
	cfg := testConfig()
	a := analyzer.New(analyzer.WithPool(compute.NewPool(cfg.Analysis.Workers)))
	return New(cfg, a, opts...)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apimodels.ErrorResponse {
	t.Helper()
	var e apimodels.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestHealthAndRoot(t *testing.T) {
	s := newTestServer()

	rec := do(t, s, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "running")

	rec = do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := newTestServer()
	rec := do(t, s, http.MethodPost, "/api/v1/analyze", map[string]any{
		"data":          []map[string]any{{"sales": 2}, {"sales": 4}, {"sales": 6}, {"sales": 8}},
		"analysis_type": "growth",
		"model_name":    "regression",
		"target_column": "sales",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results  apimodels.ForecastResult   `json:"results"`
		Summary  string                     `json:"summary"`
		Metadata apimodels.AnalysisMetadata `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 2.0, resp.Results.Slope, 1e-9)
	assert.Len(t, resp.Results.Forecast, analyzer.RegressionHorizon)
	assert.Equal(t, "regression", resp.Metadata.Model)
	assert.NotEmpty(t, resp.Metadata.ID)
	assert.False(t, resp.Metadata.Cached)
}

func TestAnalyzeErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
		kind   string
	}{
		{
			name:   "unknown analysis type",
			body:   map[string]any{"data": []any{}, "analysis_type": "churn", "target_column": "sales"},
			status: http.StatusBadRequest,
			kind:   "unsupported_analysis_type",
		},
		{
			name:   "unknown model",
			body:   map[string]any{"data": []any{}, "analysis_type": "growth", "model_name": "arima", "target_column": "sales"},
			status: http.StatusBadRequest,
			kind:   "unsupported_model",
		},
		{
			name: "too few rows",
			body: map[string]any{
				"data":          []map[string]any{{"sales": 1}},
				"analysis_type": "growth",
				"model_name":    "regression",
				"target_column": "sales",
			},
			status: http.StatusUnprocessableEntity,
			kind:   "insufficient_data",
		},
		{
			name:   "retention",
			body:   map[string]any{"data": []any{}, "analysis_type": "retention", "target_column": "sales"},
			status: http.StatusNotImplemented,
			kind:   "not_implemented",
		},
		{
			name:   "malformed body",
			body:   "not an object",
			status: http.StatusBadRequest,
			kind:   kindInvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(), http.MethodPost, "/api/v1/analyze", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			e := decodeError(t, rec)
			assert.Equal(t, tt.kind, e.Error)
			assert.NotEmpty(t, e.Message)
		})
	}
}

type memoryCache struct {
	entries map[string]*apimodels.AnalysisResponse
	gets    int
	err     error
}

func (m *memoryCache) Get(_ context.Context, key string) (*apimodels.AnalysisResponse, error) {
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	return m.entries[key], nil
}

func (m *memoryCache) Set(_ context.Context, key string, resp *apimodels.AnalysisResponse) error {
	copied := *resp
	m.entries[key] = &copied
	return nil
}

func TestAnalyzeUsesCache(t *testing.T) {
	c := &memoryCache{entries: map[string]*apimodels.AnalysisResponse{}}
	s := newTestServer(WithCache(c))
	body := map[string]any{
		"data":          []map[string]any{{"sales": 1}, {"sales": 2}, {"sales": 3}},
		"analysis_type": "growth",
		"model_name":    "moving_average",
		"parameters":    map[string]any{"window": 2},
		"target_column": "sales",
	}

	first := do(t, s, http.MethodPost, "/api/v1/analyze", body)
	require.Equal(t, http.StatusOK, first.Code)
	require.Len(t, c.entries, 1)

	second := do(t, s, http.MethodPost, "/api/v1/analyze", body)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b apimodels.AnalysisResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.Metadata.ID, b.Metadata.ID)
	assert.True(t, b.Metadata.Cached)
	assert.Equal(t, 2, c.gets)
}

func TestAnalyzeCacheFailureFallsThrough(t *testing.T) {
	c := &memoryCache{entries: map[string]*apimodels.AnalysisResponse{}, err: errors.New("connection refused")}
	s := newTestServer(WithCache(c))
	rec := do(t, s, http.MethodPost, "/api/v1/analyze", map[string]any{
		"data":          []map[string]any{{"sales": 1}, {"sales": 2}},
		"analysis_type": "growth",
		"model_name":    "regression",
		"target_column": "sales",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func multipartUpload(t *testing.T, filename, content, tag string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("tag", tag))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadCSV(t *testing.T) {
	var csv strings.Builder
	csv.WriteString("month,revenue\n")
	for i := 1; i <= 7; i++ {
		csv.WriteString("2024-0" + string(rune('0'+i)) + "-01,100\n")
	}

	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, multipartUpload(t, "sales.csv", csv.String(), "q1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp apimodels.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sales.csv", resp.Filename)
	assert.Equal(t, "q1", resp.Tag)
	assert.Equal(t, []string{"month", "revenue"}, resp.Columns)
	assert.Equal(t, 7, resp.RowCount)
	assert.Len(t, resp.Data, 7)
	assert.Len(t, resp.Preview, 5)
	assert.Equal(t, 100.0, resp.Data[0]["revenue"])
}

func TestUploadRejects(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, multipartUpload(t, "notes.txt", "hello", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, kindUnsupportedFile, decodeError(t, rec).Error)

	rec = do(t, newTestServer(), http.MethodPost, "/api/v1/upload", map[string]string{"file": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, kindInvalidRequest, decodeError(t, rec).Error)
}

func TestUploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxBytes = 64
	s := New(cfg, analyzer.New())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, multipartUpload(t, "big.csv", "a\n"+strings.Repeat("1\n", 200), ""))
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rec.Code)
}

type stubProvider struct {
	resp *llm.Response
	err  error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(context.Context, []string, []string, ...llm.Option) (*llm.Response, error) {
	return p.resp, p.err
}

func TestAIEndpointsWithoutAdvisor(t *testing.T) {
	s := newTestServer()
	for _, path := range []string{"/api/v1/ai/recommend", "/api/v1/ai/explain"} {
		rec := do(t, s, http.MethodPost, path, map[string]any{"selected_goal": "grow"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Equal(t, kindLLMUnavailable, decodeError(t, rec).Error)
	}
}

func TestRecommendEndpoint(t *testing.T) {
	p := &stubProvider{resp: &llm.Response{Content: "Regression fits a steady trend."}}
	s := newTestServer(WithAdvisor(advisor.New(p)))

	rec := do(t, s, http.MethodPost, "/api/v1/ai/recommend", apimodels.RecommendRequest{
		SelectedGoal: "forecast sales",
		Columns:      []string{"month", "sales"},
		Rows:         12,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp apimodels.RecommendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Regression fits a steady trend.", resp.Recommendations)

	rec = do(t, s, http.MethodPost, "/api/v1/ai/recommend", apimodels.RecommendRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExplainEndpoint(t *testing.T) {
	p := &stubProvider{resp: &llm.Response{Content: "Sales grow by 2 units a month."}}
	s := newTestServer(WithAdvisor(advisor.New(p)))

	rec := do(t, s, http.MethodPost, "/api/v1/ai/explain", map[string]any{"model_output": map[string]any{"slope": 2}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"explanation":"Sales grow by 2 units a month."}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/v1/ai/explain", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAIProviderFailure(t *testing.T) {
	s := newTestServer(WithAdvisor(advisor.New(&stubProvider{err: errors.New("quota exceeded")})))
	rec := do(t, s, http.MethodPost, "/api/v1/ai/explain", map[string]any{"model_output": "x"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, kindLLMError, decodeError(t, rec).Error)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAnalyzeRejectsNonFiniteValues(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "infinity string",
			body: map[string]any{
				"data":          []map[string]any{{"sales": "inf"}},
				"analysis_type": "growth",
				"model_name":    "moving_average",
				"parameters":    map[string]any{"window": 1},
				"target_column": "sales",
			},
		},
		{
			name: "regression over infinity",
			body: map[string]any{
				"data":          []map[string]any{{"sales": "1"}, {"sales": "Infinity"}},
				"analysis_type": "growth",
				"model_name":    "regression",
				"target_column": "sales",
			},
		},
		{
			name: "overflowing window mean",
			body: map[string]any{
				"data":          []map[string]any{{"sales": 1e308}, {"sales": 1e308}},
				"analysis_type": "growth",
				"model_name":    "moving_average",
				"parameters":    map[string]any{"window": 2},
				"target_column": "sales",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(), http.MethodPost, "/api/v1/analyze", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			e := decodeError(t, rec)
			assert.Equal(t, "data_format", e.Error)
			assert.NotEmpty(t, e.Message)
		})
	}
}

func TestWriteJSONUnencodableBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"forecast": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "internal", e.Error)
	assert.Contains(t, e.Message, "unsupported value")
}

func TestAnalyzeBusyPool(t *testing.T) {
	pool := compute.NewPool(1)
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func() {
			close(started)
			<-release
		})
	}()
	<-started
	defer close(release)

	s := New(testConfig(), analyzer.New(analyzer.WithPool(pool)))
	body, err := json.Marshal(map[string]any{
		"data":          []map[string]any{{"sales": 1}, {"sales": 2}},
		"analysis_type": "growth",
		"model_name":    "regression",
		"target_column": "sales",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "busy", decodeError(t, rec).Error)
}
