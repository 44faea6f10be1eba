package api

import (
	"fmt"
	"net/http"

	service "github.com/okian/nexus-ssn/internal/app"
)

// handleStageScore handles POST /stage/score.
func (s *Server) handleStageScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.stage_score"

	var req service.StageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	if len(req.Answers) == 0 {
		s.fail(w, r, op, fmt.Errorf("%w: answers must not be empty", ErrBadRequest))
		return
	}

	res, err := s.deps.ScoreStage(r.Context(), req)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
