// Package chi exposes the match pipeline over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/domain/matching"
	healthuc "github.com/kailas-cloud/matchd/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/matchd/internal/usecase/indexer"
	matchuc "github.com/kailas-cloud/matchd/internal/usecase/match"
	rankinguc "github.com/kailas-cloud/matchd/internal/usecase/ranking"
)

// Error response codes.
const (
	codeBadRequest           = "bad_request"
	codeNotFound             = "not_found"
	codeRateLimited          = "rate_limited"
	codeEmbeddingUnavailable = "embedding_unavailable"
	codeInternalError        = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the matching service.
type Server struct {
	match         *matchuc.Service
	indexer       *indexeruc.Service
	models        *rankinguc.Loader
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	match *matchuc.Service,
	indexer *indexeruc.Service,
	models *rankinguc.Loader,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		match:   match,
		indexer: indexer,
		models:  models,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, codeEmbeddingUnavailable),
		sentinelHandler(domain.ErrTransient, http.StatusServiceUnavailable, codeInternalError),
	}
	return s
}

// Register mounts the API routes on the given router.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/match", s.Match)
	r.Put("/v1/tutors/{id}", s.UpsertTutor)
	r.Post("/v1/entities/{type}/{id}/invalidate", s.InvalidateEmbedding)
	r.Post("/v1/model/reload", s.ReloadModel)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type matchRequest struct {
	OrderID   string   `json:"order_id"`
	Subject   string   `json:"subject"`
	BudgetMin float64  `json:"budget_min"`
	BudgetMax float64  `json:"budget_max"`
	Schedule  []string `json:"schedule,omitempty"`
	TopK      int      `json:"top_k"`
}

// Match handles POST /v1/match.
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	filters := matching.Filters{
		Subject:   req.Subject,
		BudgetMin: req.BudgetMin,
		BudgetMax: req.BudgetMax,
		Schedule:  req.Schedule,
	}
	res, err := s.match.Match(r.Context(), req.OrderID, filters, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type upsertTutorRequest struct {
	Bio             string    `json:"bio"`
	Subjects        []string  `json:"subjects"`
	HourlyRate      float64   `json:"hourly_rate"`
	Rating          float64   `json:"rating"`
	RatingCount     int       `json:"rating_count"`
	ExperienceYears int       `json:"experience_years"`
	Availability    []string  `json:"availability,omitempty"`
	ResponseMinutes float64   `json:"response_minutes"`
	LastActiveAt    time.Time `json:"last_active_at"`
}

// UpsertTutor handles PUT /v1/tutors/{id}.
func (s *Server) UpsertTutor(w http.ResponseWriter, r *http.Request) {
	var req upsertTutorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	tutor := domain.TutorProfile{
		ID:              chi.URLParam(r, "id"),
		Bio:             req.Bio,
		Subjects:        req.Subjects,
		HourlyRate:      req.HourlyRate,
		Rating:          req.Rating,
		RatingCount:     req.RatingCount,
		ExperienceYears: req.ExperienceYears,
		Availability:    req.Availability,
		ResponseMinutes: req.ResponseMinutes,
		LastActiveAt:    req.LastActiveAt,
	}
	if err := s.indexer.UpsertTutor(r.Context(), tutor); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// InvalidateEmbedding handles POST /v1/entities/{type}/{id}/invalidate.
func (s *Server) InvalidateEmbedding(w http.ResponseWriter, r *http.Request) {
	entityType := domain.EntityType(chi.URLParam(r, "type"))
	entityID := chi.URLParam(r, "id")

	if err := s.indexer.Invalidate(r.Context(), entityID, entityType); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReloadModel handles POST /v1/model/reload.
func (s *Server) ReloadModel(w http.ResponseWriter, r *http.Request) {
	if err := s.models.Load(); err != nil {
		s.logger.Error("Model reload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "model reload failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"model_version": s.models.Version(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":        report.Status,
		"checks":        report.Checks,
		"model_version": report.ModelVersion,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals. Validation messages pass through whole so callers can
// see which field was rejected.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbeddingUnavailable,
		domain.ErrTransient,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
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
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
