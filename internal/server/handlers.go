package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/clickit/analytics-engine/apimodels"
	"github.com/clickit/analytics-engine/internal/advisor"
	"github.com/clickit/analytics-engine/internal/cache"
	"github.com/clickit/analytics-engine/internal/metrics"
	"github.com/clickit/analytics-engine/internal/upload"
)

// Error kinds raised by the HTTP layer itself rather than by an analysis.
const (
	kindInvalidRequest  = "invalid_request"
	kindUnsupportedFile = "unsupported_file"
	kindTooLarge        = "payload_too_large"
	kindLLMUnavailable  = "llm_unavailable"
	kindLLMError        = "llm_error"
)

var kindStatus = map[string]int{
	"unsupported_analysis_type": http.StatusBadRequest,
	"unsupported_model":         http.StatusBadRequest,
	"invalid_column":            http.StatusBadRequest,
	"invalid_parameter":         http.StatusBadRequest,
	"data_format":               http.StatusBadRequest,
	"insufficient_data":         http.StatusUnprocessableEntity,
	"not_implemented":           http.StatusNotImplemented,
	"busy":                      http.StatusServiceUnavailable,
	kindInvalidRequest:          http.StatusBadRequest,
	kindUnsupportedFile:         http.StatusBadRequest,
	kindTooLarge:                http.StatusRequestEntityTooLarge,
	kindLLMUnavailable:          http.StatusServiceUnavailable,
	kindLLMError:                http.StatusBadGateway,
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "ClickIT analytics engine is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req apimodels.AnalysisRequest
	if !decodeBody(w, r, &req) {
		return
	}

	slog.Debug("Received analysis request", "analysis_type", req.AnalysisType, "model", req.ModelName, "rows", len(req.Data))

	key := s.cacheKey(req)
	if key != "" {
		cached, err := s.cache.Get(r.Context(), key)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			slog.Warn("Result cache lookup failed", "error", err)
		case cached != nil:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			cached.Metadata.Cached = true
			writeJSON(w, http.StatusOK, cached)
			return
		default:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	result, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, apimodels.ErrorKind(err), err)
		return
	}

	if key != "" {
		if err := s.cache.Set(r.Context(), key, result); err != nil {
			slog.Warn("Result cache store failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// cacheKey returns "" when caching is off or the request cannot be keyed.
func (s *Server) cacheKey(req apimodels.AnalysisRequest) string {
	if s.cache == nil {
		return ""
	}
	key, err := cache.Key(req, s.cfg.Analysis.DefaultSeed)
	if err != nil {
		slog.Debug("Skipping result cache", "error", err)
		return ""
	}
	return key
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxBytes)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, kindTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, kindInvalidRequest, fmt.Errorf("parsing multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, kindInvalidRequest, fmt.Errorf("file field: %w", err))
		return
	}
	defer file.Close()

	table, err := upload.Parse(header.Filename, file)
	if err != nil {
		kind := kindInvalidRequest
		if errors.Is(err, upload.ErrUnsupportedFormat) {
			kind = kindUnsupportedFile
		}
		writeError(w, kind, err)
		return
	}
	metrics.UploadRows.Observe(float64(len(table.Rows)))
	slog.Info("File uploaded", "filename", header.Filename, "columns", len(table.Columns), "rows", len(table.Rows))

	data := table.Rows
	if data == nil {
		data = []apimodels.Record{}
	}
	writeJSON(w, http.StatusOK, apimodels.UploadResponse{
		Filename: header.Filename,
		Tag:      r.FormValue("tag"),
		Columns:  table.Columns,
		Preview:  table.Preview(s.cfg.Upload.PreviewRows),
		RowCount: len(table.Rows),
		Data:     data,
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if !s.advisorReady(w) {
		return
	}
	var req apimodels.RecommendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SelectedGoal == "" {
		writeError(w, kindInvalidRequest, errors.New("selected_goal is required"))
		return
	}

	resp, err := s.advisor.Recommend(r.Context(), req)
	if err != nil {
		writeAdvisorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if !s.advisorReady(w) {
		return
	}
	var req apimodels.ExplainRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ModelOutput == nil {
		writeError(w, kindInvalidRequest, errors.New("model_output is required"))
		return
	}

	resp, err := s.advisor.Explain(r.Context(), req)
	if err != nil {
		writeAdvisorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) advisorReady(w http.ResponseWriter) bool {
	if s.advisor == nil {
		writeError(w, kindLLMUnavailable, errors.New("no LLM API key is configured"))
		return false
	}
	return true
}

func writeAdvisorError(w http.ResponseWriter, err error) {
	if errors.Is(err, advisor.ErrProvider) {
		writeError(w, kindLLMError, err)
		return
	}
	writeError(w, "internal", err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, kindInvalidRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, kind string, err error) {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "kind", kind, "error", err)
	} else {
		slog.Debug("Request rejected", "kind", kind, "error", err)
	}
	writeJSON(w, status, apimodels.ErrorResponse{Error: kind, Message: err.Error()})
}

// writeJSON encodes v before committing the status, so an unencodable body becomes a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(apimodels.ErrorResponse{
			Error:   "internal",
			Message: fmt.Sprintf("encoding response: %v", err),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}
