// Package store persists agent run history and beacon events in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/stigmer/overseer/pkg/beacon"
)

// RunRecord is one recorded agent run.
type RunRecord struct {
	ID          string    `json:"id"`
	Subcommand  string    `json:"subcommand"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	ExitCode    int       `json:"exit_code"`
	SummaryJSON string    `json:"summary_json,omitempty"`
}

// EventRecord is one recorded beacon event.
type EventRecord struct {
	ID        string    `json:"id"`
	Beacon    string    `json:"beacon"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps the history database.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the history database at path.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Init creates the schema.
func (s *Store) Init(ctx context.Context) error {
	ddl := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS agent_runs (
			id TEXT PRIMARY KEY,
			subcommand TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			summary_json TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS beacon_events (
			id TEXT PRIMARY KEY,
			beacon TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_beacon_events_beacon ON beacon_events(beacon);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init history database: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts a run record, assigning an ID when absent.
func (s *Store) RecordRun(ctx context.Context, run RunRecord) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_runs (id, subcommand, started_at, finished_at, exit_code, summary_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Subcommand,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.ExitCode, run.SummaryJSON,
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return run.ID, nil
}

// RecordEvent inserts a beacon event.
func (s *Store) RecordEvent(ctx context.Context, event beacon.Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO beacon_events (id, beacon, payload_json, created_at) VALUES (?, ?, ?, ?)`,
		event.ID, event.Beacon, string(payload),
		event.Time.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Publish implements beacon.Sink; storage failures are logged, never
// propagated into the beacon loop.
func (s *Store) Publish(event beacon.Event) {
	if err := s.RecordEvent(context.Background(), event); err != nil {
		s.logger.Error().Err(err).Str("beacon", event.Beacon).Msg("Failed to record beacon event")
	}
}

// RecentRuns returns the latest n runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, n int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subcommand, started_at, finished_at, exit_code, COALESCE(summary_json, '')
		 FROM agent_runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Subcommand, &started, &finished, &run.ExitCode, &run.SummaryJSON); err != nil {
			return nil, fmt.Errorf("recent runs: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecentEvents returns the latest n beacon events, newest first.
func (s *Store) RecentEvents(ctx context.Context, n int) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, beacon, payload_json, created_at
		 FROM beacon_events ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var event EventRecord
		var created string
		if err := rows.Scan(&event.ID, &event.Beacon, &event.Payload, &created); err != nil {
			return nil, fmt.Errorf("recent events: %w", err)
		}
		event.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		events = append(events, event)
	}
	return events, rows.Err()
}
