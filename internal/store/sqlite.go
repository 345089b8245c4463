package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/pitwall/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// A single connection serializes writers and keeps ":memory:" databases
	// from splitting across pooled connections.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// Load reads the complete arena state.
func (s *SQLiteStore) Load(ctx context.Context) (*model.ArenaState, error) {
	s.logger.Debug("sql", "op", "load")

	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load queue entries: %w", err)
	}
	history, err := s.loadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load run history: %w", err)
	}
	return &model.ArenaState{Entries: entries, History: history}, nil
}

// Save replaces the persisted state with the given one in a single
// transaction, so a partial write is never observable.
func (s *SQLiteStore) Save(ctx context.Context, state *model.ArenaState) error {
	s.logger.Debug("sql", "op", "save", "entries", len(state.Entries), "teams", len(state.History))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_entries`); err != nil {
		return err
	}
	for _, e := range state.Entries {
		priority := 0
		if e.PriorityReRun {
			priority = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO queue_entries (team_id, arrival_time, priority_re_run, stage)
			 VALUES (?, ?, ?, ?)`,
			e.TeamID, e.ArrivalTime.Format(time.RFC3339Nano), priority, string(e.Stage),
		); err != nil {
			return fmt.Errorf("insert queue entry %s: %w", e.TeamID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_history`); err != nil {
		return err
	}
	for team, count := range state.History {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_history (team_id, run_count) VALUES (?, ?)`,
			team, count,
		); err != nil {
			return fmt.Errorf("insert run history %s: %w", team, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadEntries(ctx context.Context) ([]*model.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT team_id, arrival_time, priority_re_run, stage
		 FROM queue_entries ORDER BY arrival_time, team_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.QueueEntry
	for rows.Next() {
		var e model.QueueEntry
		var arrival, stage string
		var priority int

		if err := rows.Scan(&e.TeamID, &arrival, &priority, &stage); err != nil {
			return nil, err
		}
		e.ArrivalTime, _ = time.Parse(time.RFC3339Nano, arrival)
		e.PriorityReRun = priority != 0
		e.Stage = model.Stage(stage)

		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) loadHistory(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT team_id, run_count FROM run_history`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make(map[string]int)
	for rows.Next() {
		var team string
		var count int
		if err := rows.Scan(&team, &count); err != nil {
			return nil, err
		}
		history[team] = count
	}
	return history, rows.Err()
}
