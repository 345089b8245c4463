package model

import (
	"strings"
	"time"
)

// QueueEntry tracks one team's position in the run lifecycle. A team has at
// most one entry across the WAITING and REVIEW stages, and none at all while
// it is bound to a slot; the entry's data travels with the binding and is
// re-admitted at stage REVIEW when the run ends.
type QueueEntry struct {
	TeamID        string    `json:"team_id"`
	ArrivalTime   time.Time `json:"arrival_time"`
	PriorityReRun bool      `json:"priority_re_run"`
	Stage         Stage     `json:"stage"`
}

// Clone returns a copy of the entry.
func (e *QueueEntry) Clone() *QueueEntry {
	c := *e
	return &c
}

// NormalizeTeamID canonicalizes a team identifier. Identifiers are
// case-insensitive, so "alpha" and "ALPHA" name the same team.
func NormalizeTeamID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
