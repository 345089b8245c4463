package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/me/pitwall/pkg/model"
)

func mustJoin(t *testing.T, eng *Engine, teams ...string) {
	t.Helper()
	for _, team := range teams {
		if _, err := eng.Join(context.Background(), team); err != nil {
			t.Fatalf("Join(%s) error = %v", team, err)
		}
	}
}

func mustStart(t *testing.T, eng *Engine, slotID int) *model.SlotView {
	t.Helper()
	view, err := eng.RequestStart(context.Background(), slotID)
	if err != nil {
		t.Fatalf("RequestStart(%d) error = %v", slotID, err)
	}
	return view
}

func TestRequestStart(t *testing.T) {
	eng, st, _, timers := testEngine(t)
	mustJoin(t, eng, "ALPHA", "BRAVO")

	view := mustStart(t, eng, 1)

	if view.Status != model.SlotRunning {
		t.Errorf("status = %s, want %s", view.Status, model.SlotRunning)
	}
	if view.TeamID != "ALPHA" {
		t.Errorf("team = %s, want ALPHA", view.TeamID)
	}
	if view.RunDurationSeconds != 300 {
		t.Errorf("run duration = %ds, want 300", view.RunDurationSeconds)
	}
	if view.RemainingSeconds != 300 {
		t.Errorf("remaining = %ds, want 300", view.RemainingSeconds)
	}

	if timers.count() != 1 {
		t.Fatalf("armed timers = %d, want 1", timers.count())
	}
	if timers.last().d != 5*time.Minute {
		t.Errorf("timer duration = %s, want 5m", timers.last().d)
	}

	// The bound team left the queue, in memory and on disk.
	if got := waitingTeams(eng); len(got) != 1 || got[0] != "BRAVO" {
		t.Errorf("waiting = %v, want only BRAVO", got)
	}
	if st.entry("ALPHA") != nil {
		t.Error("ALPHA still persisted while bound to a slot")
	}
}

func TestRequestStart_QueueEmpty(t *testing.T) {
	eng, _, _, _ := testEngine(t)

	if _, err := eng.RequestStart(context.Background(), 1); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("RequestStart(1) error = %v, want ErrQueueEmpty", err)
	}
}

func TestRequestStart_SlotBusy(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	mustJoin(t, eng, "ALPHA", "BRAVO")
	mustStart(t, eng, 1)

	if _, err := eng.RequestStart(context.Background(), 1); !errors.Is(err, ErrSlotBusy) {
		t.Errorf("RequestStart(1) error = %v, want ErrSlotBusy", err)
	}

	// The failed start must not consume the candidate.
	if got := waitingTeams(eng); len(got) != 1 || got[0] != "BRAVO" {
		t.Errorf("waiting after failed start = %v, want only BRAVO", got)
	}
}

func TestRequestStart_EmptyQueueWinsOverBusySlot(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	mustStart(t, eng, 1)

	if _, err := eng.RequestStart(context.Background(), 1); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("RequestStart(1) error = %v, want ErrQueueEmpty", err)
	}
}

func TestRequestStart_UnknownSlot(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	mustJoin(t, eng, "ALPHA")

	if _, err := eng.RequestStart(context.Background(), 9); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("RequestStart(9) error = %v, want ErrSlotNotFound", err)
	}
}

// TestRequestStart_SchedulingOrder drives the documented seed scenario end
// to end: with history A=3, B=1, C=2, D=0 and join order A, C, B, D, E
// (B flagged for a priority re-run, E unknown to the history), teams start
// in the order D, E, B, C, A.
func TestRequestStart_SchedulingOrder(t *testing.T) {
	base := time.Date(2026, 5, 30, 14, 0, 0, 0, time.UTC)
	st := newMemStore()
	st.state = &model.ArenaState{
		Entries: []*model.QueueEntry{
			{TeamID: "A", ArrivalTime: base, Stage: model.StageWaiting},
			{TeamID: "C", ArrivalTime: base.Add(1 * time.Minute), Stage: model.StageWaiting},
			{TeamID: "B", ArrivalTime: base.Add(2 * time.Minute), PriorityReRun: true, Stage: model.StageWaiting},
			{TeamID: "D", ArrivalTime: base.Add(3 * time.Minute), Stage: model.StageWaiting},
			{TeamID: "E", ArrivalTime: base.Add(4 * time.Minute), Stage: model.StageWaiting},
		},
		History: map[string]int{"A": 3, "B": 1, "C": 2, "D": 0},
	}

	clock := newTestClock()
	timers := &testTimers{}
	eng, err := New(context.Background(), Config{}, st, testLogger(),
		WithClock(clock.Now), WithTimerFunc(timers.New))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(eng.Close)

	var started []string
	for slotID := 1; slotID <= 4; slotID++ {
		started = append(started, mustStart(t, eng, slotID).TeamID)
	}
	if _, err := eng.End(context.Background(), 1); err != nil {
		t.Fatalf("End(1) error = %v", err)
	}
	started = append(started, mustStart(t, eng, 1).TeamID)

	want := []string{"D", "E", "B", "C", "A"}
	for i := range want {
		if started[i] != want[i] {
			t.Errorf("start %d = %s, want %s (full order %v)", i+1, started[i], want[i], started)
		}
	}
}

func TestPauseResume_TimeAccounting(t *testing.T) {
	eng, _, clock, timers := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	mustStart(t, eng, 1)

	clock.Advance(60 * time.Second)
	view, err := eng.Pause(1)
	if err != nil {
		t.Fatalf("Pause(1) error = %v", err)
	}
	if view.Status != model.SlotPaused {
		t.Errorf("status = %s, want %s", view.Status, model.SlotPaused)
	}
	if view.ElapsedSeconds != 60 {
		t.Errorf("elapsed = %ds, want 60", view.ElapsedSeconds)
	}
	if view.RemainingSeconds != 240 {
		t.Errorf("remaining = %ds, want 240", view.RemainingSeconds)
	}
	if !timers.armed[0].stopped {
		t.Error("pause did not cancel the pending timer")
	}

	// Time spent paused does not count against the run.
	clock.Advance(30 * time.Minute)
	view, err = eng.Resume(1)
	if err != nil {
		t.Fatalf("Resume(1) error = %v", err)
	}
	if view.Status != model.SlotRunning {
		t.Errorf("status = %s, want %s", view.Status, model.SlotRunning)
	}
	if view.ElapsedSeconds != 60 {
		t.Errorf("elapsed after resume = %ds, want 60", view.ElapsedSeconds)
	}
	if timers.last().d != 240*time.Second {
		t.Errorf("resume timer = %s, want 4m0s", timers.last().d)
	}

	clock.Advance(240 * time.Second)
	view, err = eng.Slot(1)
	if err != nil {
		t.Fatalf("Slot(1) error = %v", err)
	}
	if view.ElapsedSeconds != 300 || view.RemainingSeconds != 0 {
		t.Errorf("elapsed/remaining = %d/%d, want 300/0", view.ElapsedSeconds, view.RemainingSeconds)
	}
}

func TestPause_InvalidStates(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	mustJoin(t, eng, "ALPHA")

	if _, err := eng.Pause(1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Pause on IDLE error = %v, want ErrInvalidTransition", err)
	}

	mustStart(t, eng, 1)
	if _, err := eng.Pause(1); err != nil {
		t.Fatalf("Pause(1) error = %v", err)
	}
	if _, err := eng.Pause(1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Pause on PAUSED error = %v, want ErrInvalidTransition", err)
	}
}

func TestResume_InvalidStates(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	mustJoin(t, eng, "ALPHA")

	if _, err := eng.Resume(1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Resume on IDLE error = %v, want ErrInvalidTransition", err)
	}

	mustStart(t, eng, 1)
	if _, err := eng.Resume(1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Resume on RUNNING error = %v, want ErrInvalidTransition", err)
	}
}

func TestResume_Expired(t *testing.T) {
	eng, _, clock, _ := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	mustStart(t, eng, 1)

	// Pause exactly at the full duration; nothing is left to resume.
	clock.Advance(5 * time.Minute)
	if _, err := eng.Pause(1); err != nil {
		t.Fatalf("Pause(1) error = %v", err)
	}

	if _, err := eng.Resume(1); !errors.Is(err, ErrExpired) {
		t.Errorf("Resume(1) error = %v, want ErrExpired", err)
	}
}

func TestMarkDysfunctional_FromRunning(t *testing.T) {
	eng, _, clock, timers := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	mustStart(t, eng, 1)

	clock.Advance(30 * time.Second)
	view, err := eng.MarkDysfunctional(1)
	if err != nil {
		t.Fatalf("MarkDysfunctional(1) error = %v", err)
	}
	if view.Status != model.SlotDysfunctional {
		t.Errorf("status = %s, want %s", view.Status, model.SlotDysfunctional)
	}
	if view.ElapsedSeconds != 30 {
		t.Errorf("elapsed = %ds, want 30", view.ElapsedSeconds)
	}
	if !view.PriorityReRun {
		t.Error("team was not flagged for a priority re-run")
	}
	if !timers.armed[0].stopped {
		t.Error("timer still pending on a dysfunctional slot")
	}

	// Downtime does not burn run time.
	clock.Advance(20 * time.Minute)
	view, err = eng.Resume(1)
	if err != nil {
		t.Fatalf("Resume(1) error = %v", err)
	}
	if view.RemainingSeconds != 270 {
		t.Errorf("remaining after resume = %ds, want 270", view.RemainingSeconds)
	}
	if timers.last().d != 270*time.Second {
		t.Errorf("resume timer = %s, want 4m30s", timers.last().d)
	}
}

func TestMarkDysfunctional_FromPaused(t *testing.T) {
	eng, _, clock, _ := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	mustStart(t, eng, 1)

	clock.Advance(45 * time.Second)
	if _, err := eng.Pause(1); err != nil {
		t.Fatalf("Pause(1) error = %v", err)
	}

	view, err := eng.MarkDysfunctional(1)
	if err != nil {
		t.Fatalf("MarkDysfunctional(1) error = %v", err)
	}
	if view.Status != model.SlotDysfunctional {
		t.Errorf("status = %s, want %s", view.Status, model.SlotDysfunctional)
	}
	if view.ElapsedSeconds != 45 {
		t.Errorf("elapsed = %ds, want 45 (already frozen by the pause)", view.ElapsedSeconds)
	}
	if !view.PriorityReRun {
		t.Error("team was not flagged for a priority re-run")
	}
}

func TestMarkDysfunctional_Idempotent(t *testing.T) {
	eng, _, _, timers := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	mustStart(t, eng, 1)

	if _, err := eng.MarkDysfunctional(1); err != nil {
		t.Fatalf("first MarkDysfunctional(1) error = %v", err)
	}
	armed := timers.count()

	view, err := eng.MarkDysfunctional(1)
	if err != nil {
		t.Errorf("second MarkDysfunctional(1) error = %v, want nil", err)
	}
	if view.Status != model.SlotDysfunctional {
		t.Errorf("status = %s, want %s", view.Status, model.SlotDysfunctional)
	}
	if timers.count() != armed {
		t.Errorf("repeat mark armed a timer: %d -> %d", armed, timers.count())
	}
}

func TestMarkDysfunctional_FromIdle(t *testing.T) {
	eng, _, _, _ := testEngine(t)

	if _, err := eng.MarkDysfunctional(1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("MarkDysfunctional on IDLE error = %v, want ErrInvalidTransition", err)
	}
}

func TestEnd_MovesTeamToReview(t *testing.T) {
	eng, st, _, _ := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	joined := st.entry("ALPHA")
	mustStart(t, eng, 1)

	view, err := eng.End(context.Background(), 1)
	if err != nil {
		t.Fatalf("End(1) error = %v", err)
	}
	if view.Status != model.SlotIdle {
		t.Errorf("status = %s, want %s", view.Status, model.SlotIdle)
	}
	if view.TeamID != "" {
		t.Errorf("ended slot still bound to %s", view.TeamID)
	}

	if got := reviewTeams(eng); len(got) != 1 || got[0] != "ALPHA" {
		t.Fatalf("review = %v, want only ALPHA", got)
	}
	stored := st.entry("ALPHA")
	if stored == nil || stored.Stage != model.StageReview {
		t.Fatalf("persisted entry = %+v, want stage REVIEW", stored)
	}
	if !stored.ArrivalTime.Equal(joined.ArrivalTime) {
		t.Errorf("arrival changed across the run: %s -> %s", joined.ArrivalTime, stored.ArrivalTime)
	}
}

func TestEnd_FromEveryOccupiedStatus(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, eng *Engine)
	}{
		{"running", func(t *testing.T, eng *Engine) {}},
		{"paused", func(t *testing.T, eng *Engine) {
			t.Helper()
			if _, err := eng.Pause(1); err != nil {
				t.Fatalf("Pause(1) error = %v", err)
			}
		}},
		{"dysfunctional", func(t *testing.T, eng *Engine) {
			t.Helper()
			if _, err := eng.MarkDysfunctional(1); err != nil {
				t.Fatalf("MarkDysfunctional(1) error = %v", err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _, _, _ := testEngine(t)
			mustJoin(t, eng, "ALPHA")
			mustStart(t, eng, 1)
			tt.prepare(t, eng)

			view, err := eng.End(context.Background(), 1)
			if err != nil {
				t.Fatalf("End(1) error = %v", err)
			}
			if view.Status != model.SlotIdle {
				t.Errorf("status = %s, want %s", view.Status, model.SlotIdle)
			}
		})
	}
}

func TestEnd_FromIdle(t *testing.T) {
	eng, _, _, _ := testEngine(t)

	if _, err := eng.End(context.Background(), 1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("End on IDLE error = %v, want ErrInvalidTransition", err)
	}
}

func TestEnd_PreservesPriorityFlag(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	mustStart(t, eng, 1)

	if _, err := eng.MarkDysfunctional(1); err != nil {
		t.Fatalf("MarkDysfunctional(1) error = %v", err)
	}
	if _, err := eng.End(context.Background(), 1); err != nil {
		t.Fatalf("End(1) error = %v", err)
	}

	_, review := eng.Queue()
	if len(review) != 1 || !review[0].PriorityReRun {
		t.Errorf("review entry = %+v, want priority flag set", review)
	}
}

func TestTimeout_MovesTeamToReview(t *testing.T) {
	eng, _, _, timers := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	mustStart(t, eng, 1)

	timers.last().fire()

	view, err := eng.Slot(1)
	if err != nil {
		t.Fatalf("Slot(1) error = %v", err)
	}
	if view.Status != model.SlotIdle {
		t.Errorf("status after timeout = %s, want %s", view.Status, model.SlotIdle)
	}
	_, review := eng.Queue()
	if len(review) != 1 || review[0].TeamID != "ALPHA" {
		t.Fatalf("review = %v, want only ALPHA", review)
	}
	if review[0].PriorityReRun {
		t.Error("timeout must not set the priority flag")
	}
}

func TestTimeout_IgnoredAfterPause(t *testing.T) {
	eng, _, _, timers := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	mustStart(t, eng, 1)
	first := timers.last()

	if _, err := eng.Pause(1); err != nil {
		t.Fatalf("Pause(1) error = %v", err)
	}

	// The callback lost the race against the cancel and fires anyway.
	first.fire()

	view, err := eng.Slot(1)
	if err != nil {
		t.Fatalf("Slot(1) error = %v", err)
	}
	if view.Status != model.SlotPaused || view.TeamID != "ALPHA" {
		t.Errorf("slot = %s/%s, want PAUSED/ALPHA", view.Status, view.TeamID)
	}
	if got := reviewTeams(eng); len(got) != 0 {
		t.Errorf("review = %v, want empty", got)
	}
}

// TestTimeout_IgnoredAfterResume pins the stale-callback case the status
// check alone cannot catch: the slot is RUNNING again after a pause and
// resume, but the firing timer belongs to the first arming and must not end
// the resumed run early.
func TestTimeout_IgnoredAfterResume(t *testing.T) {
	eng, _, clock, timers := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	mustStart(t, eng, 1)
	first := timers.last()

	clock.Advance(time.Minute)
	if _, err := eng.Pause(1); err != nil {
		t.Fatalf("Pause(1) error = %v", err)
	}
	if _, err := eng.Resume(1); err != nil {
		t.Fatalf("Resume(1) error = %v", err)
	}

	first.fire()

	view, err := eng.Slot(1)
	if err != nil {
		t.Fatalf("Slot(1) error = %v", err)
	}
	if view.Status != model.SlotRunning {
		t.Errorf("status = %s, want %s after stale timeout", view.Status, model.SlotRunning)
	}

	// The current timer is still the one in charge.
	timers.last().fire()
	view, err = eng.Slot(1)
	if err != nil {
		t.Fatalf("Slot(1) error = %v", err)
	}
	if view.Status != model.SlotIdle {
		t.Errorf("status = %s, want %s after real timeout", view.Status, model.SlotIdle)
	}
}

func TestTimeout_SaveFailureKeepsRunAlive(t *testing.T) {
	eng, st, _, timers := testEngine(t)
	mustJoin(t, eng, "ALPHA")
	mustStart(t, eng, 1)

	st.failSave = errors.New("disk full")
	timers.last().fire()

	view, err := eng.Slot(1)
	if err != nil {
		t.Fatalf("Slot(1) error = %v", err)
	}
	if view.Status != model.SlotRunning || view.TeamID != "ALPHA" {
		t.Errorf("slot = %s/%s, want RUNNING/ALPHA after failed save", view.Status, view.TeamID)
	}
	if got := reviewTeams(eng); len(got) != 0 {
		t.Errorf("review = %v, want empty", got)
	}

	// Once the store recovers, a manual end completes the run.
	st.failSave = nil
	if _, err := eng.End(context.Background(), 1); err != nil {
		t.Fatalf("End(1) error = %v", err)
	}
	if got := reviewTeams(eng); len(got) != 1 || got[0] != "ALPHA" {
		t.Errorf("review = %v, want only ALPHA", got)
	}
}

func TestRequestStart_SaveFailureLeavesQueueIntact(t *testing.T) {
	eng, st, _, timers := testEngine(t)
	mustJoin(t, eng, "ALPHA")

	st.failSave = errors.New("disk full")
	if _, err := eng.RequestStart(context.Background(), 1); err == nil {
		t.Fatal("RequestStart(1) succeeded despite failing store")
	}

	if got := waitingTeams(eng); len(got) != 1 || got[0] != "ALPHA" {
		t.Errorf("waiting = %v, want only ALPHA", got)
	}
	view, err := eng.Slot(1)
	if err != nil {
		t.Fatalf("Slot(1) error = %v", err)
	}
	if view.Status != model.SlotIdle {
		t.Errorf("slot status = %s, want %s", view.Status, model.SlotIdle)
	}
	if timers.count() != 0 {
		t.Errorf("armed timers = %d, want 0 after failed start", timers.count())
	}
}
