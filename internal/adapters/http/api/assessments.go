package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type jobResponse struct {
	JobID        string `json:"jobId"`
	AssessmentID string `json:"assessmentId"`
	Status       string `json:"status"`
}

// handleComputeSSN handles GET /assessments/{id}/ssn.
func (s *Server) handleComputeSSN(w http.ResponseWriter, r *http.Request) {
	const op = "api.compute_ssn"

	res, err := s.deps.ComputeSSN(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handlePersistSSN handles POST /assessments/{id}/ssn[?async=true].
func (s *Server) handlePersistSSN(w http.ResponseWriter, r *http.Request) {
	const op = "api.persist_ssn"
	id := chi.URLParam(r, "id")

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async {
		job, err := s.deps.SubmitAsync(r.Context(), id)
		if err != nil {
			s.fail(w, r, op, err)
			return
		}
		writeJSON(w, http.StatusAccepted, jobResponse{JobID: job.ID, AssessmentID: job.AssessmentID, Status: "accepted"})
		return
	}

	res, err := s.deps.PersistSSN(r.Context(), id)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
