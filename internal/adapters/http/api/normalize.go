package api

import (
	"fmt"
	"math"
	"net/http"

	service "github.com/okian/nexus-ssn/internal/app"
)

// handleNormalize handles POST /normalize.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	const op = "api.normalize"

	var req service.NormalizeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	if math.IsNaN(req.Raw) || math.IsNaN(req.Mean) || math.IsNaN(req.Std) || req.Std < 0 {
		s.fail(w, r, op, fmt.Errorf("%w: std must be a non-negative number", ErrBadRequest))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Normalize(req))
}
