package store

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/me/pitwall/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleState() *model.ArenaState {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &model.ArenaState{
		Entries: []*model.QueueEntry{
			{TeamID: "ALPHA", ArrivalTime: base, PriorityReRun: false, Stage: model.StageWaiting},
			{TeamID: "BRAVO", ArrivalTime: base.Add(time.Minute), PriorityReRun: true, Stage: model.StageWaiting},
			{TeamID: "CHARLIE", ArrivalTime: base.Add(2 * time.Minute), PriorityReRun: false, Stage: model.StageReview},
		},
		History: map[string]int{
			"ALPHA":   3,
			"BRAVO":   1,
			"CHARLIE": 0,
		},
	}
}

// --- Migration tests ---

func TestMigrate_Idempotent(t *testing.T) {
	st := testStore(t)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

// --- Load/Save tests ---

func TestLoad_Empty(t *testing.T) {
	st := testStore(t)
	state, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.Entries) != 0 {
		t.Errorf("entries = %d, want 0", len(state.Entries))
	}
	if state.History == nil {
		t.Fatal("history map is nil")
	}
	if len(state.History) != 0 {
		t.Errorf("history = %d, want 0", len(state.History))
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	state := sampleState()

	if err := st.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(got.Entries))
	}

	byTeam := make(map[string]*model.QueueEntry)
	for _, e := range got.Entries {
		byTeam[e.TeamID] = e
	}
	bravo := byTeam["BRAVO"]
	if bravo == nil {
		t.Fatal("BRAVO missing after round trip")
	}
	if !bravo.PriorityReRun {
		t.Error("BRAVO priority_re_run = false, want true")
	}
	if bravo.Stage != model.StageWaiting {
		t.Errorf("BRAVO stage = %q, want WAITING", bravo.Stage)
	}
	if !bravo.ArrivalTime.Equal(state.Entries[1].ArrivalTime) {
		t.Errorf("BRAVO arrival = %v, want %v", bravo.ArrivalTime, state.Entries[1].ArrivalTime)
	}
	if byTeam["CHARLIE"].Stage != model.StageReview {
		t.Errorf("CHARLIE stage = %q, want REVIEW", byTeam["CHARLIE"].Stage)
	}

	if got.History["ALPHA"] != 3 {
		t.Errorf("ALPHA run count = %d, want 3", got.History["ALPHA"])
	}
	if got.History["CHARLIE"] != 0 {
		t.Errorf("CHARLIE run count = %d, want 0", got.History["CHARLIE"])
	}
}

func TestSave_ReplacesPreviousState(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, sampleState()); err != nil {
		t.Fatalf("first save: %v", err)
	}

	next := &model.ArenaState{
		Entries: []*model.QueueEntry{
			{TeamID: "DELTA", ArrivalTime: time.Now().UTC(), Stage: model.StageWaiting},
		},
		History: map[string]int{"DELTA": 0},
	}
	if err := st.Save(ctx, next); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(got.Entries))
	}
	if got.Entries[0].TeamID != "DELTA" {
		t.Errorf("team = %q, want DELTA", got.Entries[0].TeamID)
	}
	if len(got.History) != 1 {
		t.Errorf("history = %d, want 1", len(got.History))
	}
}

func TestSave_EmptyStateClearsTables(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.Save(ctx, model.NewArenaState()); err != nil {
		t.Fatalf("save empty: %v", err)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Entries) != 0 || len(got.History) != 0 {
		t.Errorf("state not cleared: %d entries, %d teams", len(got.Entries), len(got.History))
	}
}

func TestLoad_OrdersByArrival(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	state := &model.ArenaState{
		Entries: []*model.QueueEntry{
			{TeamID: "LATE", ArrivalTime: base.Add(time.Hour), Stage: model.StageWaiting},
			{TeamID: "EARLY", ArrivalTime: base, Stage: model.StageWaiting},
		},
		History: map[string]int{},
	}
	if err := st.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Entries[0].TeamID != "EARLY" {
		t.Errorf("first = %q, want EARLY", got.Entries[0].TeamID)
	}
	if got.Entries[1].TeamID != "LATE" {
		t.Errorf("second = %q, want LATE", got.Entries[1].TeamID)
	}
}
