package engine

import (
	"context"
	"fmt"

	"github.com/me/pitwall/pkg/model"
)

// Join adds a team to the waiting queue. The ID is uppercased and trimmed
// before any check, so "alpha" and " ALPHA " are the same team. A team
// that is already waiting, under review, or bound to a slot cannot join
// again. First-time teams get a zero-count history row so the scheduler
// can rank them.
func (e *Engine) Join(ctx context.Context, teamID string) (*model.QueueEntry, error) {
	id := model.NormalizeTeamID(teamID)
	if id == "" {
		return nil, ErrEmptyTeamID
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.entries[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyQueued, id)
	}
	if s := e.slotForTeamLocked(id); s != nil {
		return nil, fmt.Errorf("%w: %s is bound to slot %d", ErrAlreadyQueued, id, s.id)
	}

	entry := &model.QueueEntry{
		TeamID:      id,
		ArrivalTime: e.nowFunc(),
		Stage:       model.StageWaiting,
	}

	next, hist := e.cloneQueueLocked()
	next[id] = entry.Clone()
	if _, ok := hist[id]; !ok {
		hist[id] = 0
	}
	if err := e.saveLocked(ctx, next, hist); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	e.entries, e.history = next, hist

	e.logger.Info("team joined queue", "team", id)
	return entry, nil
}

// Queue returns the waiting queue in scheduling order together with the
// unresolved review entries.
func (e *Engine) Queue() (waiting, review []model.QueueEntryView) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waitingViewsLocked(), e.reviewViewsLocked()
}

// ResolveSuccess counts the reviewed run for the team and removes it from
// the arena. Any priority flag is consumed with the entry.
func (e *Engine) ResolveSuccess(ctx context.Context, teamID string) error {
	return e.resolve(ctx, teamID, model.ResolutionSuccess)
}

// ResolveFailure sends the reviewed team back to the waiting queue with the
// priority flag set and its original arrival time intact. The run does not
// count.
func (e *Engine) ResolveFailure(ctx context.Context, teamID string) error {
	return e.resolve(ctx, teamID, model.ResolutionFailure)
}

// ResolveCanceled removes the reviewed team without counting the run.
func (e *Engine) ResolveCanceled(ctx context.Context, teamID string) error {
	return e.resolve(ctx, teamID, model.ResolutionCanceled)
}

func (e *Engine) resolve(ctx context.Context, teamID string, res model.Resolution) error {
	id := model.NormalizeTeamID(teamID)

	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.entries[id]
	if !ok || entry.Stage != model.StageReview {
		return fmt.Errorf("%w: no review entry for %q", ErrTeamNotFound, id)
	}

	next, hist := e.cloneQueueLocked()
	switch res {
	case model.ResolutionSuccess:
		hist[id]++
		delete(next, id)
	case model.ResolutionFailure:
		failed := entry.Clone()
		failed.Stage = model.StageWaiting
		failed.PriorityReRun = true
		next[id] = failed
	case model.ResolutionCanceled:
		delete(next, id)
	default:
		return fmt.Errorf("%w: unknown resolution %q", ErrInvalidConfig, res)
	}
	if err := e.saveLocked(ctx, next, hist); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	e.entries, e.history = next, hist

	e.logger.Info("review resolved", "team", id, "resolution", res)
	return nil
}
