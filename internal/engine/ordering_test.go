package engine

import (
	"testing"
	"time"

	"github.com/me/pitwall/pkg/model"
)

func waitingEntry(team string, arrival time.Time, priority bool) *model.QueueEntry {
	return &model.QueueEntry{
		TeamID:        team,
		ArrivalTime:   arrival,
		PriorityReRun: priority,
		Stage:         model.StageWaiting,
	}
}

func teamOrder(entries []*model.QueueEntry) []string {
	teams := make([]string, 0, len(entries))
	for _, entry := range entries {
		teams = append(teams, entry.TeamID)
	}
	return teams
}

func TestTierOf(t *testing.T) {
	tests := []struct {
		name     string
		priority bool
		runCount int
		want     int
	}{
		{"never ran", false, 0, tierZeroRuns},
		{"never ran with stale flag", true, 0, tierZeroRuns},
		{"priority re-run", true, 2, tierPriorityReRun},
		{"standard", false, 1, tierStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := waitingEntry("X", time.Now(), tt.priority)
			if got := tierOf(entry, tt.runCount); got != tt.want {
				t.Errorf("tierOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOrderWaiting_TierPolicy(t *testing.T) {
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	history := map[string]int{"A": 3, "B": 1, "C": 2, "D": 0}

	// Join order A, C, B, D, E. B carries a priority flag, D has never run,
	// and E is missing from the history entirely.
	entries := []*model.QueueEntry{
		waitingEntry("A", base, false),
		waitingEntry("C", base.Add(1*time.Minute), false),
		waitingEntry("B", base.Add(2*time.Minute), true),
		waitingEntry("D", base.Add(3*time.Minute), false),
		waitingEntry("E", base.Add(4*time.Minute), false),
	}

	got := teamOrder(orderWaiting(entries, history))
	want := []string{"D", "E", "B", "C", "A"}
	if len(got) != len(want) {
		t.Fatalf("orderWaiting() returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %s, want %s (full order %v)", i+1, got[i], want[i], got)
		}
	}
}

func TestOrderWaiting_ZeroRunsBeatPriority(t *testing.T) {
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	history := map[string]int{"VETERAN": 1, "ROOKIE": 0}

	// The priority team joined an hour earlier but has a completed run.
	entries := []*model.QueueEntry{
		waitingEntry("VETERAN", base, true),
		waitingEntry("ROOKIE", base.Add(time.Hour), false),
	}

	got := teamOrder(orderWaiting(entries, history))
	if got[0] != "ROOKIE" {
		t.Errorf("head of queue = %s, want ROOKIE (full order %v)", got[0], got)
	}
}

func TestOrderWaiting_FIFOWithinTier(t *testing.T) {
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	history := map[string]int{"A": 2, "B": 2, "C": 2}

	entries := []*model.QueueEntry{
		waitingEntry("C", base.Add(2*time.Minute), false),
		waitingEntry("A", base, false),
		waitingEntry("B", base.Add(1*time.Minute), false),
	}

	got := teamOrder(orderWaiting(entries, history))
	want := []string{"A", "B", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %s, want %s", i+1, got[i], want[i])
		}
	}
}

func TestOrderWaiting_FewerRunsFirstWithinTier(t *testing.T) {
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	history := map[string]int{"EARLY": 4, "LATE": 1}

	entries := []*model.QueueEntry{
		waitingEntry("EARLY", base, false),
		waitingEntry("LATE", base.Add(time.Hour), false),
	}

	got := teamOrder(orderWaiting(entries, history))
	if got[0] != "LATE" {
		t.Errorf("head of queue = %s, want LATE", got[0])
	}
}

func TestOrderWaiting_SkipsReviewEntries(t *testing.T) {
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	reviewed := waitingEntry("REVIEWED", base, false)
	reviewed.Stage = model.StageReview

	entries := []*model.QueueEntry{
		reviewed,
		waitingEntry("WAITING", base.Add(time.Minute), false),
	}

	got := orderWaiting(entries, map[string]int{"REVIEWED": 0, "WAITING": 0})
	if len(got) != 1 || got[0].TeamID != "WAITING" {
		t.Errorf("orderWaiting() = %v, want only WAITING", teamOrder(got))
	}
}

func TestOrderWaiting_DoesNotMutateInput(t *testing.T) {
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	entries := []*model.QueueEntry{
		waitingEntry("B", base.Add(time.Minute), false),
		waitingEntry("A", base, false),
	}

	orderWaiting(entries, map[string]int{"A": 0, "B": 0})

	if entries[0].TeamID != "B" || entries[1].TeamID != "A" {
		t.Errorf("input order changed: %v", teamOrder(entries))
	}
}

func TestNextCandidate(t *testing.T) {
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	history := map[string]int{"A": 1, "B": 0}

	entries := []*model.QueueEntry{
		waitingEntry("A", base, false),
		waitingEntry("B", base.Add(time.Minute), false),
	}

	got := nextCandidate(entries, history)
	if got == nil || got.TeamID != "B" {
		t.Fatalf("nextCandidate() = %v, want B", got)
	}
}

func TestNextCandidate_EmptyQueue(t *testing.T) {
	if got := nextCandidate(nil, map[string]int{}); got != nil {
		t.Errorf("nextCandidate() = %v, want nil", got)
	}
}
