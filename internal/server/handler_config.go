package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/me/pitwall/pkg/model"
)

type runDurationResponse struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

type setRunDurationRequest struct {
	Minutes int `json:"minutes"`
}

// handleGetRunDuration returns the run duration applied to future starts.
// GET /api/v1/config/run-duration
func (s *Server) handleGetRunDuration(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	d := s.engine.RunDuration()
	respondOK(w, reqID, runDurationResponse{
		Minutes: int(d / time.Minute),
		Seconds: int(d / time.Second),
	})
}

// handleSetRunDuration changes the run duration for future starts. Runs
// already in flight keep the duration they started with.
// PUT /api/v1/config/run-duration
func (s *Server) handleSetRunDuration(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req setRunDurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "invalid JSON body: " + err.Error(),
		})
		return
	}

	if err := s.engine.SetRunDuration(req.Minutes); err != nil {
		respondEngineError(w, reqID, err)
		return
	}

	s.logger.Info("run duration changed", "minutes", req.Minutes, "request_id", reqID)
	d := s.engine.RunDuration()
	respondOK(w, reqID, runDurationResponse{
		Minutes: int(d / time.Minute),
		Seconds: int(d / time.Second),
	})
}
