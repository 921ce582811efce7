package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"github.com/bytedance/sonic"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS navigation_events (
	id               TEXT PRIMARY KEY,
	kind             TEXT NOT NULL,
	project_id       TEXT NOT NULL,
	session_id       INTEGER NOT NULL,
	path             TEXT NOT NULL,
	prev_path        TEXT,
	duration_ms      INTEGER NOT NULL,
	refs_duration_ms INTEGER NOT NULL,
	features         TEXT,
	candidates       TEXT,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_navigation_events_session
	ON navigation_events (project_id, session_id);
`

// fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteSink stores records in a SQLite database
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path
func OpenSQLite(path string) (*SQLiteSink, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// one writer keeps :memory: databases on a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("SQLite database ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// LogEvent implements Sink
func (s *SQLiteSink) LogEvent(ctx context.Context, ev types.Event) error {
	ev = prepare(ev)

	features, err := encodeNullable(len(ev.Features) > 0, ev.Features)
	if err != nil {
		return err
	}
	candidates, err := encodeNullable(len(ev.Candidates) > 0, ev.Candidates)
	if err != nil {
		return err
	}

	var prev sql.NullString
	if p, ok := ev.PrevPath.Get(); ok {
		prev = sql.NullString{String: p, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO navigation_events
			(id, kind, project_id, session_id, path, prev_path, duration_ms, refs_duration_ms, features, candidates, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Kind), ev.ProjectID, ev.SessionID, ev.Path, prev,
		ev.DurationMs, ev.RefsDurationMs, features, candidates,
		ev.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Recent returns up to limit records for a project, newest first
func (s *SQLiteSink) Recent(ctx context.Context, projectID string, limit int) ([]types.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, project_id, session_id, path, prev_path, duration_ms, refs_duration_ms, features, candidates, created_at
		 FROM navigation_events WHERE project_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []types.Event
	for rows.Next() {
		var (
			ev         types.Event
			kind       string
			prev       sql.NullString
			features   sql.NullString
			candidates sql.NullString
			created    string
		)
		if err := rows.Scan(&ev.ID, &kind, &ev.ProjectID, &ev.SessionID, &ev.Path, &prev,
			&ev.DurationMs, &ev.RefsDurationMs, &features, &candidates, &created); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Kind = types.EventKind(kind)
		if prev.Valid {
			ev.PrevPath = types.Some(prev.String)
		}
		if features.Valid {
			if err := sonic.UnmarshalString(features.String, &ev.Features); err != nil {
				return nil, fmt.Errorf("failed to decode features of %s: %w", ev.ID, err)
			}
		}
		if candidates.Valid {
			if err := sonic.UnmarshalString(candidates.String, &ev.Candidates); err != nil {
				return nil, fmt.Errorf("failed to decode candidates of %s: %w", ev.ID, err)
			}
		}
		if ts, err := time.Parse(timeLayout, created); err == nil {
			ev.Timestamp = ts
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Name implements Store
func (s *SQLiteSink) Name() string { return DriverSQLite }

// Close closes the database
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func encodeNullable(present bool, v interface{}) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	s, err := sonic.MarshalString(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode column: %w", err)
	}
	return sql.NullString{String: s, Valid: true}, nil
}
