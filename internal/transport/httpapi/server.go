// Package httpapi exposes the online query path over HTTP for the serve
// command: POST /query, GET /health and GET /metrics.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	queryuc "github.com/kailas-cloud/ragdex/internal/usecase/query"
)

// Server handles the query HTTP API.
type Server struct {
	query    *queryuc.Service
	defaults Defaults
	logger   *zap.Logger
}

// Defaults are the configured fallbacks applied when a request omits a field.
type Defaults struct {
	TopK          int
	MinScore      float64
	ContextTokens int
}

// NewServer creates an HTTP API server over the query service.
func NewServer(query *queryuc.Service, defaults Defaults, logger *zap.Logger) *Server {
	return &Server{query: query, defaults: defaults, logger: logger}
}

// Router builds the chi router with the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Post("/query", s.handleQuery)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

type queryRequest struct {
	Query         string   `json:"query"`
	SourceTypes   []string `json:"source_types,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	SeriesID      string   `json:"series_id,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	MinScore      *float64 `json:"min_score,omitempty"`
	ContextTokens int      `json:"context_tokens,omitempty"`
}

type queryHit struct {
	ID         string  `json:"id"`
	SourceKey  string  `json:"source_key"`
	SourceType string  `json:"source_type"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
}

type queryResponse struct {
	Hits    []queryHit       `json:"hits"`
	Context *queryuc.Context `json:"context,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var in queryRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	flt, err := filter.New(in.SourceTypes, in.Tags, in.SeriesID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	k := in.TopK
	if k <= 0 {
		k = s.defaults.TopK
	}
	minScore := s.defaults.MinScore
	if in.MinScore != nil {
		minScore = *in.MinScore
	}

	req, err := request.New(in.Query, flt, k, minScore)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hits, err := s.query.Retrieve(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := queryResponse{Hits: make([]queryHit, 0, len(hits))}
	for i := range hits {
		resp.Hits = append(resp.Hits, queryHit{
			ID:         hits[i].ID(),
			SourceKey:  hits[i].SourceKey(),
			SourceType: string(hits[i].SourceType()),
			Title:      hits[i].Meta().Title,
			Score:      hits[i].Score(),
		})
	}

	if in.ContextTokens != 0 || s.defaults.ContextTokens > 0 {
		budget := in.ContextTokens
		if budget <= 0 {
			budget = s.defaults.ContextTokens
		}
		assembled, err := s.query.RetrieveContext(r.Context(), &req, budget)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		resp.Context = &assembled
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sentinelStatus maps domain sentinels to HTTP responses.
var sentinelStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"},
	{domain.ErrUnknownSourceType, http.StatusBadRequest, "unknown_source_type"},
	{domain.ErrVectorDimMismatch, http.StatusBadRequest, "vector_dim_mismatch"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrMissingArtifact, http.StatusServiceUnavailable, "missing_artifact"},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"},
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, m := range sentinelStatus {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	s.logger.Error("Unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
