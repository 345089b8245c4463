package engine

import (
	"errors"
	"fmt"

	"github.com/me/pitwall/pkg/model"
)

// Sentinel errors for the expected, recoverable failure modes. Callers
// distinguish them with errors.Is and surface a distinct message for each;
// none of them indicates engine corruption.
var (
	ErrAlreadyQueued     = errors.New("team already queued")
	ErrQueueEmpty        = errors.New("waiting queue is empty")
	ErrSlotBusy          = errors.New("slot is busy")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrExpired           = errors.New("run time expired")
	ErrTeamNotFound      = errors.New("team not found")
	ErrSlotNotFound      = errors.New("slot not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrEmptyTeamID       = errors.New("team id is required")
)

// invalidTransitionError reports an operation attempted in the wrong slot status.
func invalidTransitionError(op string, slotID int, status model.SlotStatus) error {
	return fmt.Errorf("%w: cannot %s slot %d while %s", ErrInvalidTransition, op, slotID, status)
}
