package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/nexus-ssn/internal/domain/projection"
)

type projectionRequest struct {
	WeeklyHours *float64 `json:"weeklyHours,omitempty"`
	Methodology *float64 `json:"methodology,omitempty"`
}

// handleProjection handles POST /students/{id}/projection. The body is optional.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	const op = "api.projection"

	var req projectionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, r, op, err)
		return
	}

	res, err := s.deps.Project(r.Context(), chi.URLParam(r, "id"), projection.Request{
		WeeklyHours: req.WeeklyHours,
		Methodology: req.Methodology,
	})
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
