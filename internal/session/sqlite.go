// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "sessions.db"

const upsertSuffix = `ON CONFLICT(session_id, name) DO UPDATE SET
	data = excluded.data, size = excluded.size, created_at = excluded.created_at`

// SQLiteStore keeps artifacts in a single SQLite database under dir.
type SQLiteStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewSQLiteStore opens or creates dir/sessions.db and its schema.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if dir == "" {
		dir = "sessions"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(db),
	}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			session_id TEXT NOT NULL,
			name TEXT NOT NULL,
			data BLOB NOT NULL,
			size INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (session_id, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, sessionID, name string, data []byte) error {
	_, err := s.sb.Insert("artifacts").
		Columns("session_id", "name", "data", "size", "created_at").
		Values(sessionID, name, data, len(data), time.Now().UTC().Format(time.RFC3339Nano)).
		Suffix(upsertSuffix).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("storing %s/%s: %w", sessionID, name, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID, name string) ([]byte, error) {
	var data []byte
	err := s.sb.Select("data").
		From("artifacts").
		Where(sq.Eq{"session_id": sessionID, "name": name}).
		QueryRowContext(ctx).
		Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", sessionID, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s/%s: %w", sessionID, name, err)
	}
	return data, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID, name string) error {
	_, err := s.sb.Delete("artifacts").
		Where(sq.Eq{"session_id": sessionID, "name": name}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", sessionID, name, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, sessionID string) ([]Artifact, error) {
	rows, err := s.sb.Select("name", "size", "created_at").
		From("artifacts").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("name").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a := Artifact{SessionID: sessionID}
		var created string
		if err := rows.Scan(&a.Name, &a.Size, &created); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Sessions(ctx context.Context) ([]Summary, error) {
	rows, err := s.sb.Select("session_id", "count(*)", "max(created_at)").
		From("artifacts").
		GroupBy("session_id").
		OrderBy("max(created_at) DESC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var updated string
		if err := rows.Scan(&sum.SessionID, &sum.Artifacts, &updated); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sum.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}
