package engine

import (
	"context"
	"fmt"

	"github.com/me/pitwall/pkg/model"
)

// RequestStart pops the head of the waiting queue and binds it to the given
// slot as a RUNNING run. The pop and the bind happen under one lock
// acquisition, so two concurrent requests can never start the same team.
// The queue is checked before the slot so an empty queue wins when both
// would fail.
func (e *Engine) RequestStart(ctx context.Context, slotID int) (*model.SlotView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slotLocked(slotID)
	if err != nil {
		return nil, err
	}
	candidate := nextCandidate(e.entryListLocked(), e.history)
	if candidate == nil {
		return nil, ErrQueueEmpty
	}
	if s.status != model.SlotIdle {
		return nil, fmt.Errorf("%w: slot %d is %s", ErrSlotBusy, slotID, s.status)
	}

	bound := candidate.Clone()
	next, hist := e.cloneQueueLocked()
	delete(next, bound.TeamID)
	if err := e.saveLocked(ctx, next, hist); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	e.entries, e.history = next, hist

	s.status = model.SlotRunning
	s.team = bound
	s.duration = e.runDuration
	s.elapsed = 0
	s.segment = e.nowFunc()
	e.armTimerLocked(s, s.duration)

	e.logger.Info("run started", "slot", slotID, "team", bound.TeamID, "duration", s.duration)
	return e.slotViewLocked(s), nil
}

// Pause freezes a RUNNING run. The in-flight segment is folded into the
// elapsed total and the timeout is cancelled; nothing persistent changes.
func (e *Engine) Pause(slotID int) (*model.SlotView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slotLocked(slotID)
	if err != nil {
		return nil, err
	}
	if !s.status.CanTransitionTo(model.SlotPaused) {
		return nil, invalidTransitionError("pause", slotID, s.status)
	}

	e.freezeLocked(s)
	e.cancelTimerLocked(s)
	s.status = model.SlotPaused
	e.logger.Info("run paused", "slot", slotID, "team", s.team.TeamID, "elapsed", s.elapsed)
	return e.slotViewLocked(s), nil
}

// Resume continues a PAUSED or DYSFUNCTIONAL run with whatever time is
// left. A run with no time left cannot resume; it can only be ended.
func (e *Engine) Resume(slotID int) (*model.SlotView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slotLocked(slotID)
	if err != nil {
		return nil, err
	}
	if !s.status.IsOccupied() || !s.status.CanTransitionTo(model.SlotRunning) {
		return nil, invalidTransitionError("resume", slotID, s.status)
	}

	remaining := s.duration - s.elapsed
	if remaining <= 0 {
		return nil, fmt.Errorf("%w: slot %d has no time left", ErrExpired, slotID)
	}

	s.status = model.SlotRunning
	s.segment = e.nowFunc()
	e.armTimerLocked(s, remaining)
	e.logger.Info("run resumed", "slot", slotID, "team", s.team.TeamID, "remaining", remaining)
	return e.slotViewLocked(s), nil
}

// MarkDysfunctional records a robot failure. From RUNNING the clock freezes
// exactly as for a pause; from PAUSED only the status changes. Either way
// the team's entry is flagged for a priority re-run when it next waits.
// Marking an already DYSFUNCTIONAL slot is a no-op.
func (e *Engine) MarkDysfunctional(slotID int) (*model.SlotView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slotLocked(slotID)
	if err != nil {
		return nil, err
	}
	if s.status == model.SlotDysfunctional {
		return e.slotViewLocked(s), nil
	}
	if !s.status.CanTransitionTo(model.SlotDysfunctional) {
		return nil, invalidTransitionError("mark dysfunctional", slotID, s.status)
	}

	if s.status == model.SlotRunning {
		e.freezeLocked(s)
		e.cancelTimerLocked(s)
	}
	s.status = model.SlotDysfunctional
	s.team.PriorityReRun = true
	e.logger.Warn("run marked dysfunctional", "slot", slotID, "team", s.team.TeamID)
	return e.slotViewLocked(s), nil
}

// End terminates the run in any occupied status and moves the team to the
// review stage, keeping its priority flag for the resolution to act on. The
// slot is IDLE again once End returns.
func (e *Engine) End(ctx context.Context, slotID int) (*model.SlotView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slotLocked(slotID)
	if err != nil {
		return nil, err
	}
	if !s.status.CanTransitionTo(model.SlotIdle) {
		return nil, invalidTransitionError("end", slotID, s.status)
	}

	reviewed := s.team.Clone()
	reviewed.Stage = model.StageReview

	next, hist := e.cloneQueueLocked()
	next[reviewed.TeamID] = reviewed
	if err := e.saveLocked(ctx, next, hist); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	e.entries, e.history = next, hist

	e.cancelTimerLocked(s)
	e.resetSlotLocked(s)
	e.logger.Info("run ended", "slot", slotID, "team", reviewed.TeamID)
	return e.slotViewLocked(s), nil
}

// handleTimeout runs when a slot's timer fires. It takes the engine lock
// and then re-checks both the slot status and the timer generation: the
// operator may have paused, ended, or restarted the slot after the timer
// fired but before the lock was acquired, and a stale callback must do
// nothing. An effective timeout behaves like End.
func (e *Engine) handleTimeout(slotID int, seq uint64) {
	ctx := context.Background()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	s, err := e.slotLocked(slotID)
	if err != nil {
		return
	}
	if s.status != model.SlotRunning || s.timerSeq != seq {
		e.logger.Debug("stale timeout ignored", "slot", slotID)
		return
	}

	reviewed := s.team.Clone()
	reviewed.Stage = model.StageReview

	next, hist := e.cloneQueueLocked()
	next[reviewed.TeamID] = reviewed
	if err := e.saveLocked(ctx, next, hist); err != nil {
		// The run stays RUNNING with no pending timer. The operator can
		// still end it manually, which retries the write.
		e.logger.Error("timeout not applied, save failed",
			"slot", slotID, "team", reviewed.TeamID, "error", err)
		s.timer = nil
		return
	}
	e.entries, e.history = next, hist

	s.timer = nil
	e.resetSlotLocked(s)
	e.logger.Info("run timed out", "slot", slotID, "team", reviewed.TeamID)
}
