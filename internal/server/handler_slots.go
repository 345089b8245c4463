package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/me/pitwall/pkg/model"
)

// slotIDParam parses the {slotID} URL parameter.
func slotIDParam(r *http.Request) (int, *model.APIError) {
	raw := chi.URLParam(r, "slotID")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewValidationError("invalid slot id",
			model.FieldError{Field: "slot_id", Message: "must be an integer, got " + strconv.Quote(raw)})
	}
	return id, nil
}

// handleListSlots returns every slot with its bound team and time accounting.
// GET /api/v1/slots
func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, s.engine.Slots())
}

// handleGetSlot returns a single slot.
// GET /api/v1/slots/{slotID}
func (s *Server) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	id, apiErr := slotIDParam(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	view, err := s.engine.Slot(id)
	if err != nil {
		respondEngineError(w, reqID, err)
		return
	}
	respondOK(w, reqID, view)
}

// handleStartRun pops the next waiting team and starts its run on the slot.
// POST /api/v1/slots/{slotID}/start
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	id, apiErr := slotIDParam(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	view, err := s.engine.RequestStart(r.Context(), id)
	if err != nil {
		respondEngineError(w, reqID, err)
		return
	}

	s.logger.Info("run started", "slot", id, "team", view.TeamID, "request_id", reqID)
	respondOK(w, reqID, view)
}

// handlePauseRun pauses a running run, freezing its elapsed time.
// POST /api/v1/slots/{slotID}/pause
func (s *Server) handlePauseRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	id, apiErr := slotIDParam(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	view, err := s.engine.Pause(id)
	if err != nil {
		respondEngineError(w, reqID, err)
		return
	}

	s.logger.Info("run paused", "slot", id, "team", view.TeamID, "request_id", reqID)
	respondOK(w, reqID, view)
}

// handleResumeRun resumes a paused or dysfunctional run with the time it
// had left.
// POST /api/v1/slots/{slotID}/resume
func (s *Server) handleResumeRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	id, apiErr := slotIDParam(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	view, err := s.engine.Resume(id)
	if err != nil {
		respondEngineError(w, reqID, err)
		return
	}

	s.logger.Info("run resumed", "slot", id, "team", view.TeamID, "request_id", reqID)
	respondOK(w, reqID, view)
}

// handleMarkDysfunctional flags a slot as dysfunctional. The bound team
// keeps its run and is granted a priority re-run.
// POST /api/v1/slots/{slotID}/dysfunctional
func (s *Server) handleMarkDysfunctional(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	id, apiErr := slotIDParam(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	view, err := s.engine.MarkDysfunctional(id)
	if err != nil {
		respondEngineError(w, reqID, err)
		return
	}

	s.logger.Info("slot marked dysfunctional", "slot", id, "team", view.TeamID, "request_id", reqID)
	respondOK(w, reqID, view)
}

// handleEndRun ends the run and moves the team to review.
// POST /api/v1/slots/{slotID}/end
func (s *Server) handleEndRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	id, apiErr := slotIDParam(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	view, err := s.engine.End(r.Context(), id)
	if err != nil {
		respondEngineError(w, reqID, err)
		return
	}

	s.logger.Info("run ended", "slot", id, "request_id", reqID)
	respondOK(w, reqID, view)
}
