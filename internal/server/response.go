package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/me/pitwall/internal/engine"
	"github.com/me/pitwall/pkg/model"
)

// respondOK writes a success response with the standard envelope.
func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, nil)
}

// respondCreated writes a 201 response with the standard envelope.
func respondCreated(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusCreated, reqID, data, nil)
}

// respondError writes an error response with the standard envelope.
func respondError(w http.ResponseWriter, reqID string, status int, apiErr *model.APIError) {
	respondJSON(w, status, reqID, nil, apiErr)
}

// respondEngineError maps an engine error onto an HTTP status and a
// structured API error, then writes the envelope.
func respondEngineError(w http.ResponseWriter, reqID string, err error) {
	status, apiErr := mapEngineError(err)
	respondError(w, reqID, status, apiErr)
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, apiErr *model.APIError) {
	resp := model.Response{
		RequestID: reqID,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Error:     apiErr,
	}
	if apiErr != nil {
		resp.Status = "error"
	} else {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// mapEngineError translates the engine's sentinel errors into HTTP terms.
// State conflicts map to 409 so clients can tell "try again later" apart
// from a malformed request.
func mapEngineError(err error) (int, *model.APIError) {
	switch {
	case errors.Is(err, engine.ErrEmptyTeamID):
		return http.StatusBadRequest, &model.APIError{Code: model.ErrValidation, Message: err.Error()}
	case errors.Is(err, engine.ErrInvalidConfig):
		return http.StatusBadRequest, &model.APIError{Code: model.ErrInvalidConfig, Message: err.Error()}
	case errors.Is(err, engine.ErrSlotNotFound), errors.Is(err, engine.ErrTeamNotFound):
		return http.StatusNotFound, &model.APIError{Code: model.ErrNotFound, Message: err.Error()}
	case errors.Is(err, engine.ErrAlreadyQueued):
		return http.StatusConflict, &model.APIError{Code: model.ErrAlreadyQueued, Message: err.Error()}
	case errors.Is(err, engine.ErrQueueEmpty):
		return http.StatusConflict, &model.APIError{Code: model.ErrQueueEmpty, Message: err.Error()}
	case errors.Is(err, engine.ErrSlotBusy):
		return http.StatusConflict, &model.APIError{Code: model.ErrSlotBusy, Message: err.Error()}
	case errors.Is(err, engine.ErrInvalidTransition):
		return http.StatusConflict, &model.APIError{Code: model.ErrInvalidTransition, Message: err.Error()}
	case errors.Is(err, engine.ErrExpired):
		return http.StatusConflict, &model.APIError{Code: model.ErrRunExpired, Message: err.Error()}
	default:
		return http.StatusInternalServerError, model.NewInternalError(err.Error())
	}
}
