package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/nexus-ssn/internal/domain/cohort"
)

type cohortResponse struct {
	cohort.Snapshot
	Source string `json:"source"`
}

func cohortKey(r *http.Request) cohort.Key {
	return cohort.Key{Type: chi.URLParam(r, "type"), Version: r.URL.Query().Get("version")}
}

// handleGetCohort handles GET /cohorts/{type}.
func (s *Server) handleGetCohort(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_cohort"

	snap, src, err := s.deps.CohortStats(r.Context(), cohortKey(r))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, cohortResponse{Snapshot: snap, Source: src})
}

// handleRecompute handles POST /cohorts/{type}/recompute.
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.recompute_cohort"

	res, err := s.deps.RecomputeCohort(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAudit handles POST /cohorts/{type}/audit.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	const op = "api.audit_cohort"

	audit, err := s.deps.AuditCohort(r.Context(), cohortKey(r))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, audit)
}
