// Package history keeps a local journal of every submission outcome.
//
// The journal is an audit log, not a retry queue: entries are written after
// the dispatcher has already decided a play's fate, and nothing is ever
// re-sent from here.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Outcome is what happened to one play on one endpoint.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted" // counted by the service
	OutcomeIgnored  Outcome = "ignored"  // delivered but filtered by the service
	OutcomeRetry    Outcome = "retry"    // kept for the next flush
	OutcomeDropped  Outcome = "dropped"  // permanently rejected or invalid
	OutcomeDisabled Outcome = "disabled" // endpoint credentials were rejected
)

// Entry is one journal row.
type Entry struct {
	ID        string
	Batch     string // groups the entries of one flush
	Endpoint  string
	Artist    string
	Track     string
	Album     string
	Duration  time.Duration
	PlayedAt  time.Time
	Outcome   Outcome
	Error     string
	CreatedAt time.Time
}

// Store is a SQLite-backed journal.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at path. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps ":memory:" databases consistent across calls
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			batch TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			artist TEXT NOT NULL,
			track TEXT NOT NULL,
			album TEXT,
			duration INTEGER NOT NULL,
			played_at INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
		CREATE INDEX IF NOT EXISTS idx_submissions_outcome ON submissions(outcome, created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// NewBatchID returns an identifier for grouping the entries of one flush.
func NewBatchID() string {
	return uuid.NewString()
}

// Record writes entries in a single transaction. Missing IDs and creation
// times are filled in.
func (s *Store) Record(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO submissions (id, batch, endpoint, artist, track, album, duration, played_at, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		_, err := stmt.ExecContext(ctx,
			e.ID,
			e.Batch,
			e.Endpoint,
			e.Artist,
			e.Track,
			e.Album,
			int64(e.Duration.Seconds()),
			e.PlayedAt.Unix(),
			string(e.Outcome),
			nullString(e.Error),
			e.CreatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Query filters Recent.
type Query struct {
	Limit    int
	Endpoint string
	Outcome  Outcome
}

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, q Query) ([]Entry, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.Endpoint != "" {
		where = append(where, "endpoint = ?")
		args = append(args, q.Endpoint)
	}
	if q.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(q.Outcome))
	}

	query := `
		SELECT id, batch, endpoint, artist, track, COALESCE(album, ''), duration, played_at, outcome, COALESCE(error, ''), created_at
		FROM submissions
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, played_at DESC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			outcome     string
			durationSec int64
			playedAt    int64
			createdAt   int64
		)
		err := rows.Scan(
			&e.ID,
			&e.Batch,
			&e.Endpoint,
			&e.Artist,
			&e.Track,
			&e.Album,
			&durationSec,
			&playedAt,
			&outcome,
			&e.Error,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.Duration = time.Duration(durationSec) * time.Second
		e.PlayedAt = time.Unix(playedAt, 0)
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries with the given outcome, or of all
// entries when outcome is empty.
func (s *Store) Count(ctx context.Context, outcome Outcome) (int, error) {
	query := "SELECT COUNT(*) FROM submissions"
	var args []interface{}
	if outcome != "" {
		query += " WHERE outcome = ?"
		args = append(args, string(outcome))
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Cleanup removes entries older than maxAge.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).Unix()

	result, err := s.db.ExecContext(ctx, "DELETE FROM submissions WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup history: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
