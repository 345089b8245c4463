package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/me/pitwall/pkg/model"
)

type joinQueueRequest struct {
	TeamID string `json:"team_id"`
}

type queueResponse struct {
	Waiting []model.QueueEntryView `json:"waiting"`
	Review  []model.QueueEntryView `json:"review"`
}

// handleGetQueue returns the waiting queue in scheduling order plus the
// entries parked in review.
// GET /api/v1/queue
func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	waiting, review := s.engine.Queue()
	respondOK(w, reqID, queueResponse{Waiting: waiting, Review: review})
}

// handleJoinQueue adds a team to the waiting queue.
// POST /api/v1/queue
func (s *Server) handleJoinQueue(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req joinQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "invalid JSON body: " + err.Error(),
		})
		return
	}
	if strings.TrimSpace(req.TeamID) == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid join request",
			model.FieldError{Field: "team_id", Message: "required"}))
		return
	}

	entry, err := s.engine.Join(r.Context(), req.TeamID)
	if err != nil {
		respondEngineError(w, reqID, err)
		return
	}

	s.logger.Info("team joined queue", "team", entry.TeamID, "request_id", reqID)
	respondCreated(w, reqID, entry)
}
