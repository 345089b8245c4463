package server

import "net/http"

// handleArena returns a full snapshot of the arena: slots, waiting queue in
// scheduling order, review entries, and the run history.
// GET /api/v1/arena
func (s *Server) handleArena(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, s.engine.Snapshot())
}
