// Package seed loads an optional team roster into an empty store, so a
// fresh deployment can start with known teams and run history instead of a
// blank arena.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/pitwall/internal/store"
	"github.com/me/pitwall/pkg/model"
)

// Roster is the on-disk seed format:
//
//	teams:
//	  - id: ALPHA
//	    runs: 3
//	  - id: BRAVO
//	    runs: 1
//	    queued: true
//	    priority_re_run: true
type Roster struct {
	Teams []Team `yaml:"teams"`
}

// Team is one roster row. Runs primes the history count; Queued puts the
// team into the waiting queue, in file order.
type Team struct {
	ID            string `yaml:"id"`
	Runs          int    `yaml:"runs"`
	Queued        bool   `yaml:"queued"`
	PriorityReRun bool   `yaml:"priority_re_run"`
}

// Parse reads and validates a roster document. Team IDs are normalized the
// same way the queue normalizes them, and the file is rejected if two rows
// collapse onto the same ID.
func Parse(data []byte) (*Roster, error) {
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}

	seen := make(map[string]bool, len(roster.Teams))
	for i := range roster.Teams {
		id := model.NormalizeTeamID(roster.Teams[i].ID)
		if id == "" {
			return nil, fmt.Errorf("team %d: id must not be empty", i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate team id %q", id)
		}
		seen[id] = true
		roster.Teams[i].ID = id
		if roster.Teams[i].Runs < 0 {
			return nil, fmt.Errorf("team %s: runs must not be negative", id)
		}
	}
	return &roster, nil
}

// Loader applies roster files to the store.
type Loader struct {
	logger *slog.Logger
}

// New creates a Loader with the given logger.
func New(logger *slog.Logger) *Loader {
	return &Loader{logger: logger.With("component", "seed")}
}

// Apply loads the roster at path into the store if, and only if, the store
// holds no entries and no history. A non-empty store is left alone, so a
// restart never clobbers live data with the seed file.
func (l *Loader) Apply(ctx context.Context, st store.Store, path string) error {
	state, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if len(state.Entries) > 0 || len(state.History) > 0 {
		l.logger.Info("store not empty, skipping seed", "path", path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	roster, err := Parse(data)
	if err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}

	seeded := model.NewArenaState()
	now := time.Now().UTC()
	queued := 0
	for _, team := range roster.Teams {
		seeded.History[team.ID] = team.Runs
		if team.Queued {
			// Spread arrivals so file order is also FIFO order.
			seeded.Entries = append(seeded.Entries, &model.QueueEntry{
				TeamID:        team.ID,
				ArrivalTime:   now.Add(time.Duration(queued) * time.Millisecond),
				PriorityReRun: team.PriorityReRun,
				Stage:         model.StageWaiting,
			})
			queued++
		}
	}
	if err := st.Save(ctx, seeded); err != nil {
		return fmt.Errorf("save seeded state: %w", err)
	}

	l.logger.Info("seeded arena", "path", path, "teams", len(roster.Teams), "queued", queued)
	return nil
}
