// Package chi is the HTTP API layer: request decoding, domain error
// mapping, and route registration on a chi router.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	indexuc "github.com/kailas-cloud/semsearch/internal/usecase/index"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
	statusuc "github.com/kailas-cloud/semsearch/internal/usecase/status"
)

// ErrorCode is the machine-readable error discriminator in error responses.
type ErrorCode string

const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeNotFound         ErrorCode = "not_found"
	CodeIndexEmpty       ErrorCode = "index_empty"
	CodeVectorMismatch   ErrorCode = "vector_dim_mismatch"
	CodeProviderError    ErrorCode = "embedding_provider_error"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	QueryID   string `json:"query_id"`
	QueryText string `json:"query_text"`
}

// QueryResponse is the body of a successful POST /query.
type QueryResponse struct {
	TopDocs []string `json:"top_docs"`
	P5      float64  `json:"p5"`
}

// StatusResponse is the body of POST /status.
type StatusResponse struct {
	NumIndexedItems   int `json:"num_of_indexed_items"`
	NumQueriesInQrels int `json:"num_of_queries_in_qrels"`
}

// IndexBuildRequest is the optional body of POST /index.
type IndexBuildRequest struct {
	Clear bool `json:"clear"`
}

// IndexBuildResponse is the body of a successful POST /index.
type IndexBuildResponse struct {
	Indexed int    `json:"indexed"`
	Status  string `json:"status"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the search service over HTTP.
type Server struct {
	search        *searchuc.Service
	index         *indexuc.Service
	status        *statusuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	index *indexuc.Service,
	status *statusuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		index:  index,
		status: status,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrIndexEmpty, http.StatusServiceUnavailable, CodeIndexEmpty),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadGateway, CodeVectorMismatch),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

// Routes registers all API routes on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.GetHealth)
	r.Post("/status", s.PostStatus)
	r.Post("/query", s.PostQuery)
	r.Post("/index", s.PostIndexBuild)
	r.Handle("/metrics", promhttp.Handler())
}

// GetHealth handles GET /health. The endpoint answers as long as the
// process is up; degraded dependencies show up in the checks map.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// PostStatus handles POST /status.
func (s *Server) PostStatus(w http.ResponseWriter, _ *http.Request) {
	report := s.status.Report()
	writeJSON(w, http.StatusOK, StatusResponse{
		NumIndexedItems:   report.NumIndexedItems,
		NumQueriesInQrels: report.NumQueriesInQrels,
	})
}

// PostQuery handles POST /query.
func (s *Server) PostQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.QueryID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query_id is required")
		return
	}

	res, err := s.search.Query(r.Context(), req.QueryID, req.QueryText)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{TopDocs: res.TopDocs, P5: res.PK})
}

// PostIndexBuild handles POST /index. An empty body means a plain rebuild
// without clearing the query cache.
func (s *Server) PostIndexBuild(w http.ResponseWriter, r *http.Request) {
	var req IndexBuildRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	count, err := s.index.Build(r.Context(), req.Clear)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IndexBuildResponse{Indexed: count, Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrIndexEmpty,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
