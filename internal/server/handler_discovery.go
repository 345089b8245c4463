package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "Pitwall API",
		Version:     "v1",
		Description: "Pitwall arena scheduler: queue management, slot run lifecycle, and review resolution",
		Endpoints: []endpointInfo{
			{"/api/v1/queue", []string{"GET", "POST"}, "Waiting queue in scheduling order plus review entries. POST joins a team"},
			{"/api/v1/slots", []string{"GET"}, "All slots with bound teams and time accounting"},
			{"/api/v1/slots/{slot_id}", []string{"GET"}, "Single slot detail"},
			{"/api/v1/slots/{slot_id}/start", []string{"POST"}, "Bind the next waiting team to an idle slot and start its run"},
			{"/api/v1/slots/{slot_id}/pause", []string{"POST"}, "Pause a running run, freezing elapsed time"},
			{"/api/v1/slots/{slot_id}/resume", []string{"POST"}, "Resume a paused or dysfunctional run with its remaining time"},
			{"/api/v1/slots/{slot_id}/dysfunctional", []string{"POST"}, "Flag a slot as dysfunctional and grant the team a priority re-run"},
			{"/api/v1/slots/{slot_id}/end", []string{"POST"}, "End the run and move the team to review"},
			{"/api/v1/review/{team_id}/success", []string{"POST"}, "Accept the reviewed run and count it"},
			{"/api/v1/review/{team_id}/failure", []string{"POST"}, "Reject the reviewed run and requeue the team with priority"},
			{"/api/v1/review/{team_id}/cancel", []string{"POST"}, "Discard the reviewed run without requeueing"},
			{"/api/v1/config/run-duration", []string{"GET", "PUT"}, "Run duration applied to future starts"},
			{"/api/v1/arena", []string{"GET"}, "Full arena snapshot: slots, queue, review, run history"},
			{"/api/v1/sse/arena", []string{"GET"}, "Server-sent event stream of arena snapshots"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
