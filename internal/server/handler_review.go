package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/pitwall/pkg/model"
)

type reviewResolvedResponse struct {
	TeamID     string `json:"team_id"`
	Resolution string `json:"resolution"`
}

// handleReviewSuccess accepts a reviewed run. The run counts toward the
// team's history and the team leaves the arena.
// POST /api/v1/review/{teamID}/success
func (s *Server) handleReviewSuccess(w http.ResponseWriter, r *http.Request) {
	s.resolveReview(w, r, "success", s.engine.ResolveSuccess)
}

// handleReviewFailure rejects a reviewed run. The team returns to the
// waiting queue with a priority re-run and the run does not count.
// POST /api/v1/review/{teamID}/failure
func (s *Server) handleReviewFailure(w http.ResponseWriter, r *http.Request) {
	s.resolveReview(w, r, "failure", s.engine.ResolveFailure)
}

// handleReviewCancel discards a reviewed run without requeueing the team.
// POST /api/v1/review/{teamID}/cancel
func (s *Server) handleReviewCancel(w http.ResponseWriter, r *http.Request) {
	s.resolveReview(w, r, "cancel", s.engine.ResolveCanceled)
}

func (s *Server) resolveReview(w http.ResponseWriter, r *http.Request, resolution string, resolve func(ctx context.Context, teamID string) error) {
	reqID := RequestIDFromContext(r.Context())

	teamID := model.NormalizeTeamID(chi.URLParam(r, "teamID"))
	if teamID == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid review request",
			model.FieldError{Field: "team_id", Message: "required"}))
		return
	}

	if err := resolve(r.Context(), teamID); err != nil {
		respondEngineError(w, reqID, err)
		return
	}

	s.logger.Info("review resolved", "team", teamID, "resolution", resolution, "request_id", reqID)
	respondOK(w, reqID, reviewResolvedResponse{TeamID: teamID, Resolution: resolution})
}
