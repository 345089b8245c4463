// Package engine implements the arena run scheduler: a fixed set of slots,
// a priority-ordered waiting queue, and per-team run history. Every mutation
// is serialized behind a single mutex and written through the store before
// it becomes visible, so the persisted state never reflects a half-applied
// operation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/me/pitwall/internal/store"
	"github.com/me/pitwall/pkg/model"
)

const (
	// DefaultSlots is the number of arena slots when none is configured.
	DefaultSlots = 4
	// DefaultRunDuration is the run length applied when none is configured.
	DefaultRunDuration = 5 * time.Minute
)

// Config holds the engine's tunable parameters.
type Config struct {
	// Slots is the number of arena slots.
	Slots int
	// RunDuration is the run length assigned to each start. Changing it
	// later only affects runs that have not started yet.
	RunDuration time.Duration
}

func (c Config) withDefaults() Config {
	if c.Slots == 0 {
		c.Slots = DefaultSlots
	}
	if c.RunDuration == 0 {
		c.RunDuration = DefaultRunDuration
	}
	return c
}

func (c Config) validate() error {
	if c.Slots <= 0 {
		return fmt.Errorf("%w: slots must be positive, got %d", ErrInvalidConfig, c.Slots)
	}
	if c.RunDuration <= 0 {
		return fmt.Errorf("%w: run duration must be positive, got %s", ErrInvalidConfig, c.RunDuration)
	}
	return nil
}

// Engine owns the waiting queue, the slots, and the run history. All fields
// below mu are guarded by it; operations hold the lock for the whole
// mutation including the synchronous store write, so observers never see an
// intermediate state.
type Engine struct {
	store  store.Store
	logger *slog.Logger

	mu          sync.Mutex
	slots       []*slot
	entries     map[string]*model.QueueEntry // WAITING and REVIEW entries by team ID
	history     map[string]int               // completed run counts by team ID
	runDuration time.Duration
	closed      bool

	// nowFunc allows tests to control time.
	nowFunc func() time.Time
	// newTimer allows tests to trigger timeouts deterministically.
	newTimer TimerFunc
}

// slot is one arena slot. A team is bound iff the status is not IDLE; while
// bound, the entry lives here and not in the queue.
type slot struct {
	id       int
	status   model.SlotStatus
	team     *model.QueueEntry
	duration time.Duration // run length assigned when this run started
	elapsed  time.Duration // running time folded in by completed segments
	segment  time.Time     // start of the current RUNNING segment
	timer    Timer
	timerSeq uint64 // bumped on every arm and cancel to expire stale callbacks
}

// Option configures optional engine behavior.
type Option func(*Engine)

// WithClock replaces the wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.nowFunc = now
	}
}

// WithTimerFunc replaces the timeout scheduler. Used by tests.
func WithTimerFunc(fn TimerFunc) Option {
	return func(e *Engine) {
		e.newTimer = fn
	}
}

// New loads persisted state through the store, repairs anything an unclean
// shutdown left behind, and returns a ready engine. Entries found in REVIEW
// are normalized back to WAITING; if the repair changed anything the result
// is written back before the engine accepts its first operation.
func New(ctx context.Context, cfg Config, st store.Store, logger *slog.Logger, opts ...Option) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		store:       st,
		logger:      logger.With("component", "engine"),
		entries:     make(map[string]*model.QueueEntry),
		history:     make(map[string]int),
		runDuration: cfg.RunDuration,
		nowFunc:     time.Now,
		newTimer:    realTimer,
	}
	for i := 1; i <= cfg.Slots; i++ {
		e.slots = append(e.slots, &slot{id: i, status: model.SlotIdle})
	}
	for _, opt := range opts {
		opt(e)
	}

	state, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	repaired := e.repair(state)
	for _, entry := range state.Entries {
		e.entries[entry.TeamID] = entry
	}
	for team, count := range state.History {
		e.history[team] = count
	}
	if repaired {
		if err := st.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("save repaired state: %w", err)
		}
	}
	e.logger.Info("engine ready", "slots", cfg.Slots, "run_duration", cfg.RunDuration,
		"entries", len(e.entries), "teams", len(e.history))
	return e, nil
}

// repair normalizes persisted state in place and reports whether anything
// changed. A REVIEW entry means the process died before the review was
// resolved; the team returns to the waiting queue and keeps its flags.
func (e *Engine) repair(state *model.ArenaState) bool {
	changed := false
	if state.History == nil {
		state.History = make(map[string]int)
		changed = true
	}

	seen := make(map[string]bool, len(state.Entries))
	kept := state.Entries[:0]
	for _, entry := range state.Entries {
		id := model.NormalizeTeamID(entry.TeamID)
		if id == "" {
			e.logger.Warn("dropping persisted entry without team id")
			changed = true
			continue
		}
		if seen[id] {
			e.logger.Warn("dropping duplicate persisted entry", "team", id)
			changed = true
			continue
		}
		seen[id] = true
		if id != entry.TeamID {
			entry.TeamID = id
			changed = true
		}
		if entry.Stage == model.StageReview {
			e.logger.Info("returning unresolved review entry to queue", "team", id)
			entry.Stage = model.StageWaiting
			changed = true
		} else if !entry.Stage.Valid() {
			entry.Stage = model.StageWaiting
			changed = true
		}
		if entry.ArrivalTime.IsZero() {
			entry.ArrivalTime = e.nowFunc()
			changed = true
		}
		if _, ok := state.History[id]; !ok {
			state.History[id] = 0
			changed = true
		}
		kept = append(kept, entry)
	}
	state.Entries = kept

	for team, count := range state.History {
		if count < 0 {
			state.History[team] = 0
			changed = true
		}
	}
	return changed
}

// Close cancels every pending timer. Pending callbacks that already fired
// become no-ops once they observe the closed flag.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for _, s := range e.slots {
		e.cancelTimerLocked(s)
	}
}

// RunDuration returns the run length that the next start will assign.
func (e *Engine) RunDuration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runDuration
}

// SetRunDuration changes the run length for future starts. Runs already in
// flight keep the duration they were assigned.
func (e *Engine) SetRunDuration(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: run duration must be a positive number of minutes, got %d", ErrInvalidConfig, minutes)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runDuration = time.Duration(minutes) * time.Minute
	e.logger.Info("run duration updated", "minutes", minutes)
	return nil
}

// Slot returns the current view of one slot.
func (e *Engine) Slot(slotID int) (*model.SlotView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.slotLocked(slotID)
	if err != nil {
		return nil, err
	}
	return e.slotViewLocked(s), nil
}

// Slots returns the current view of every slot in slot-ID order.
func (e *Engine) Slots() []model.SlotView {
	e.mu.Lock()
	defer e.mu.Unlock()
	views := make([]model.SlotView, 0, len(e.slots))
	for _, s := range e.slots {
		views = append(views, *e.slotViewLocked(s))
	}
	return views
}

// Snapshot computes a consistent view of the whole arena under one lock
// acquisition: slots with live time accounting, the waiting queue in
// scheduling order, unresolved reviews, and the run history. Nothing in the
// result aliases engine state.
func (e *Engine) Snapshot() *model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &model.Snapshot{
		History:            make(map[string]int, len(e.history)),
		RunDurationSeconds: int(e.runDuration / time.Second),
	}
	for team, count := range e.history {
		snap.History[team] = count
	}
	for _, s := range e.slots {
		snap.Slots = append(snap.Slots, *e.slotViewLocked(s))
	}
	snap.Waiting = e.waitingViewsLocked()
	snap.Review = e.reviewViewsLocked()
	return snap
}

func (e *Engine) waitingViewsLocked() []model.QueueEntryView {
	var views []model.QueueEntryView
	for pos, entry := range orderWaiting(e.entryListLocked(), e.history) {
		views = append(views, e.entryViewLocked(entry, pos+1))
	}
	return views
}

func (e *Engine) reviewViewsLocked() []model.QueueEntryView {
	var views []model.QueueEntryView
	for _, entry := range e.reviewListLocked() {
		views = append(views, e.entryViewLocked(entry, 0))
	}
	return views
}

func (e *Engine) entryViewLocked(entry *model.QueueEntry, position int) model.QueueEntryView {
	return model.QueueEntryView{
		Position:      position,
		TeamID:        entry.TeamID,
		ArrivalTime:   entry.ArrivalTime,
		PriorityReRun: entry.PriorityReRun,
		Stage:         entry.Stage,
		RunCount:      e.history[entry.TeamID],
	}
}

// reviewListLocked returns REVIEW entries ordered by arrival for stable
// display.
func (e *Engine) reviewListLocked() []*model.QueueEntry {
	var review []*model.QueueEntry
	for _, entry := range e.entries {
		if entry.Stage == model.StageReview {
			review = append(review, entry)
		}
	}
	sort.Slice(review, func(i, j int) bool {
		a, b := review[i], review[j]
		if !a.ArrivalTime.Equal(b.ArrivalTime) {
			return a.ArrivalTime.Before(b.ArrivalTime)
		}
		return a.TeamID < b.TeamID
	})
	return review
}

func (e *Engine) slotLocked(slotID int) (*slot, error) {
	if slotID < 1 || slotID > len(e.slots) {
		return nil, fmt.Errorf("%w: slot %d", ErrSlotNotFound, slotID)
	}
	return e.slots[slotID-1], nil
}

func (e *Engine) slotForTeamLocked(teamID string) *slot {
	for _, s := range e.slots {
		if s.team != nil && s.team.TeamID == teamID {
			return s
		}
	}
	return nil
}

func (e *Engine) entryListLocked() []*model.QueueEntry {
	list := make([]*model.QueueEntry, 0, len(e.entries))
	for _, entry := range e.entries {
		list = append(list, entry)
	}
	return list
}

// cloneQueueLocked deep-copies the queue and history so an operation can
// stage its mutation, persist it, and only then commit. On a failed save the
// originals are untouched.
func (e *Engine) cloneQueueLocked() (map[string]*model.QueueEntry, map[string]int) {
	entries := make(map[string]*model.QueueEntry, len(e.entries))
	for id, entry := range e.entries {
		entries[id] = entry.Clone()
	}
	history := make(map[string]int, len(e.history))
	for team, count := range e.history {
		history[team] = count
	}
	return entries, history
}

// saveLocked writes the staged queue and history through the store. Callers
// commit the maps to the engine only after it returns nil.
func (e *Engine) saveLocked(ctx context.Context, entries map[string]*model.QueueEntry, history map[string]int) error {
	state := &model.ArenaState{
		Entries: make([]*model.QueueEntry, 0, len(entries)),
		History: history,
	}
	for _, entry := range entries {
		state.Entries = append(state.Entries, entry)
	}
	return e.store.Save(ctx, state)
}

// elapsedLocked returns the running time the slot has accumulated, including
// the segment currently in flight.
func (e *Engine) elapsedLocked(s *slot) time.Duration {
	elapsed := s.elapsed
	if s.status == model.SlotRunning {
		elapsed += e.nowFunc().Sub(s.segment)
	}
	return elapsed
}

func (e *Engine) remainingLocked(s *slot) time.Duration {
	remaining := s.duration - e.elapsedLocked(s)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// freezeLocked folds the in-flight RUNNING segment into the elapsed total.
func (e *Engine) freezeLocked(s *slot) {
	s.elapsed += e.nowFunc().Sub(s.segment)
	s.segment = time.Time{}
}

// resetSlotLocked returns the slot to IDLE with cleared accounting. The
// caller has already dealt with the timer.
func (e *Engine) resetSlotLocked(s *slot) {
	s.status = model.SlotIdle
	s.team = nil
	s.duration = 0
	s.elapsed = 0
	s.segment = time.Time{}
}

// armTimerLocked schedules the timeout for the slot's current run. The
// generation counter ties the callback to this arm; any later cancel or
// re-arm bumps it and the callback finds a stale value.
func (e *Engine) armTimerLocked(s *slot, d time.Duration) {
	s.timerSeq++
	seq := s.timerSeq
	slotID := s.id
	s.timer = e.newTimer(d, func() {
		e.handleTimeout(slotID, seq)
	})
}

// cancelTimerLocked stops any pending timer and expires its generation, so
// a callback that already slipped past Stop does nothing.
func (e *Engine) cancelTimerLocked(s *slot) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}

func (e *Engine) slotViewLocked(s *slot) *model.SlotView {
	view := &model.SlotView{
		SlotID: s.id,
		Status: s.status,
	}
	if s.team != nil {
		view.TeamID = s.team.TeamID
		view.PriorityReRun = s.team.PriorityReRun
		view.RunDurationSeconds = int(s.duration / time.Second)
		view.ElapsedSeconds = int(e.elapsedLocked(s) / time.Second)
		view.RemainingSeconds = int(e.remainingLocked(s) / time.Second)
	}
	return view
}
