package model

import "time"

// ArenaState is the persistent portion of the engine state: queue entries in
// the WAITING or REVIEW stage plus the per-team completed-run history. Slot
// bindings are process-local and never persisted.
type ArenaState struct {
	Entries []*QueueEntry  `json:"entries"`
	History map[string]int `json:"history"`
}

// NewArenaState returns an empty state with an initialized history map.
func NewArenaState() *ArenaState {
	return &ArenaState{History: make(map[string]int)}
}

// SlotView is the externally visible state of one arena slot. Elapsed and
// remaining time are computed at view time, so a RUNNING slot's remaining
// time keeps counting down between views.
type SlotView struct {
	SlotID             int        `json:"slot_id"`
	Status             SlotStatus `json:"status"`
	TeamID             string     `json:"team_id,omitempty"`
	PriorityReRun      bool       `json:"priority_re_run,omitempty"`
	RunDurationSeconds int        `json:"run_duration_seconds"`
	ElapsedSeconds     int        `json:"elapsed_seconds"`
	RemainingSeconds   int        `json:"remaining_seconds"`
}

// QueueEntryView decorates a queue entry with its scheduling inputs.
// Position is the 1-based rank within the freshly ordered waiting queue and
// is zero for review entries.
type QueueEntryView struct {
	Position      int       `json:"position,omitempty"`
	TeamID        string    `json:"team_id"`
	ArrivalTime   time.Time `json:"arrival_time"`
	PriorityReRun bool      `json:"priority_re_run"`
	Stage         Stage     `json:"stage"`
	RunCount      int       `json:"run_count"`
}

// Snapshot is a point-in-time view of the whole arena. The waiting queue is
// already in scheduling order; RunDurationSeconds is the duration applied to
// future starts, not to runs already in flight.
type Snapshot struct {
	Slots              []SlotView       `json:"slots"`
	Waiting            []QueueEntryView `json:"waiting"`
	Review             []QueueEntryView `json:"review"`
	History            map[string]int   `json:"history"`
	RunDurationSeconds int              `json:"run_duration_seconds"`
}
