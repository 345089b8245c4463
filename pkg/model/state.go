package model

// SlotStatus represents the lifecycle state of an arena slot.
type SlotStatus string

const (
	SlotIdle          SlotStatus = "IDLE"
	SlotRunning       SlotStatus = "RUNNING"
	SlotPaused        SlotStatus = "PAUSED"
	SlotDysfunctional SlotStatus = "DYSFUNCTIONAL"
)

// String returns the string representation of the slot status.
func (s SlotStatus) String() string {
	return string(s)
}

// IsOccupied returns true if a team is bound to the slot in this status.
// A slot holds a team in every status except IDLE.
func (s SlotStatus) IsOccupied() bool {
	return s != SlotIdle
}

// ValidSlotTransitions defines the allowed status transitions for arena
// slots. IDLE is both the initial status and the reset target whenever a
// run ends, so every occupied status may return to it.
var ValidSlotTransitions = map[SlotStatus][]SlotStatus{
	SlotIdle:          {SlotRunning},
	SlotRunning:       {SlotPaused, SlotDysfunctional, SlotIdle},
	SlotPaused:        {SlotRunning, SlotDysfunctional, SlotIdle},
	SlotDysfunctional: {SlotRunning, SlotIdle},
}

// CanTransitionTo returns true if moving from the current status to next is valid.
func (s SlotStatus) CanTransitionTo(next SlotStatus) bool {
	for _, allowed := range ValidSlotTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Stage represents where a queue entry sits in the run lifecycle. A team
// bound to a slot has no stage; it re-enters the queue at REVIEW when its
// run ends.
type Stage string

const (
	StageWaiting Stage = "WAITING"
	StageReview  Stage = "REVIEW"
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// Valid returns true if the stage is one of the known values.
func (s Stage) Valid() bool {
	return s == StageWaiting || s == StageReview
}

// Resolution is the operator verdict on a run under review.
type Resolution string

const (
	ResolutionSuccess  Resolution = "SUCCESS"
	ResolutionFailure  Resolution = "FAILURE"
	ResolutionCanceled Resolution = "CANCELED"
)

// String returns the string representation of the resolution.
func (r Resolution) String() string {
	return string(r)
}
