package store

import (
	"context"

	"github.com/me/pitwall/pkg/model"
)

// Store defines the persistence layer for the arena state. The engine loads
// once at startup and saves after every mutation that touches queue entries
// or run history; the only consistency it relies on is that Load returns
// whatever the last successful Save wrote.
type Store interface {
	Load(ctx context.Context) (*model.ArenaState, error)
	Save(ctx context.Context, state *model.ArenaState) error

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
