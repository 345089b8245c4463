package engine

import (
	"sort"

	"github.com/me/pitwall/pkg/model"
)

// Scheduling tiers for the waiting queue. Teams that have never run outrank
// priority re-runs, which outrank everyone else. Within a tier, fewer
// completed runs come first, then earlier arrival.
const (
	tierZeroRuns = iota
	tierPriorityReRun
	tierStandard
)

func tierOf(entry *model.QueueEntry, runCount int) int {
	switch {
	case runCount == 0:
		return tierZeroRuns
	case entry.PriorityReRun:
		return tierPriorityReRun
	default:
		return tierStandard
	}
}

// orderWaiting returns the WAITING entries in scheduling order. The result
// is a fresh slice and the input is left untouched; the team ID breaks any
// remaining tie so the order is total and stable across calls.
func orderWaiting(entries []*model.QueueEntry, history map[string]int) []*model.QueueEntry {
	var waiting []*model.QueueEntry
	for _, entry := range entries {
		if entry.Stage == model.StageWaiting {
			waiting = append(waiting, entry)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		a, b := waiting[i], waiting[j]
		ta, tb := tierOf(a, history[a.TeamID]), tierOf(b, history[b.TeamID])
		if ta != tb {
			return ta < tb
		}
		if history[a.TeamID] != history[b.TeamID] {
			return history[a.TeamID] < history[b.TeamID]
		}
		if !a.ArrivalTime.Equal(b.ArrivalTime) {
			return a.ArrivalTime.Before(b.ArrivalTime)
		}
		return a.TeamID < b.TeamID
	})
	return waiting
}

// nextCandidate returns the entry at the head of the waiting queue, or nil
// when no team is waiting.
func nextCandidate(entries []*model.QueueEntry, history map[string]int) *model.QueueEntry {
	ordered := orderWaiting(entries, history)
	if len(ordered) == 0 {
		return nil
	}
	return ordered[0]
}
