package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/me/pitwall/pkg/model"
)

// handleSSEArena streams arena snapshots via Server-Sent Events.
// GET /api/v1/sse/arena
func (s *Server) handleSSEArena(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	payload, err := json.Marshal(s.engine.Snapshot())
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Send initial state.
	if err := sendSSEEvent(w, flusher, "init", payload); err != nil {
		s.logger.Debug("sse client disconnected", "error", err)
		return
	}

	// Poll until the client disconnects. There is no terminal state for the
	// arena; a RUNNING slot makes nearly every poll an update because its
	// remaining time counts down.
	ticker := time.NewTicker(s.sseInterval)
	defer ticker.Stop()

	last := payload

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			payload, err := json.Marshal(s.engine.Snapshot())
			if err != nil {
				s.logger.Error("sse marshal error", "error", err)
				continue
			}

			if bytes.Equal(payload, last) {
				// Heartbeat keeps proxies from closing the idle stream.
				fmt.Fprintf(w, ": heartbeat\n\n")
				flusher.Flush()
				continue
			}

			if err := sendSSEEvent(w, flusher, "update", payload); err != nil {
				s.logger.Debug("sse client disconnected")
				return
			}
			last = payload
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	if err != nil {
		return err
	}

	flusher.Flush()
	return nil
}
