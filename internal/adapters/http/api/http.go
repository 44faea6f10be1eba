// Package api exposes the scoring engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/nexus-ssn/internal/adapters/http/swagger"
	service "github.com/okian/nexus-ssn/internal/app"
	"github.com/okian/nexus-ssn/internal/domain/cohort"
	"github.com/okian/nexus-ssn/internal/domain/model"
	"github.com/okian/nexus-ssn/internal/domain/projection"
	"github.com/okian/nexus-ssn/internal/domain/scoring"
	"github.com/okian/nexus-ssn/internal/domain/stage"
	"github.com/okian/nexus-ssn/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	Normalize(req service.NormalizeRequest) service.NormalizeResult
	ComputeSSN(ctx context.Context, assessmentID string) (*scoring.Result, error)
	PersistSSN(ctx context.Context, assessmentID string) (*scoring.Result, error)
	SubmitAsync(ctx context.Context, assessmentID string) (model.ScoringJob, error)
	RecomputeCohort(ctx context.Context, assessmentType string) (scoring.BatchResult, error)
	CohortStats(ctx context.Context, key cohort.Key) (cohort.Snapshot, string, error)
	AuditCohort(ctx context.Context, key cohort.Key) (cohort.Audit, error)
	ScoreStage(ctx context.Context, req service.StageRequest) (stage.Result, error)
	Project(ctx context.Context, studentID string, req projection.Request) (*projection.Result, error)
	Stats(ctx context.Context) service.Stats
}

// Server wires HTTP routes for the scoring API.
type Server struct {
	deps        Dependencies
	corsOrigins []string
	logger      logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{deps: deps, corsOrigins: []string{"*"}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/stats", s.handleStats)
	r.Post("/normalize", s.handleNormalize)

	r.Route("/assessments/{id}/ssn", func(r chi.Router) {
		r.Get("/", s.handleComputeSSN)
		r.Post("/", s.handlePersistSSN)
	})
	r.Route("/cohorts/{type}", func(r chi.Router) {
		r.Get("/", s.handleGetCohort)
		r.Post("/recompute", s.handleRecompute)
		r.Post("/audit", s.handleAudit)
	})
	r.Post("/stage/score", s.handleStageScore)
	r.Post("/students/{id}/projection", s.handleProjection)

	swagger.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps service errors onto status codes. Unknown errors are logged and
// reported as 500 without their message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrDuplicateJob):
		writeError(w, http.StatusConflict, "duplicate", err)
	case errors.Is(err, service.ErrQueueFull), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		s.logger.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal", nil)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
