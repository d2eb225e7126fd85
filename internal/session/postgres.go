// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps artifacts in a shared Postgres database so several
// engine instances can read each other's sessions.
type PostgresStore struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// NewPostgresStore connects to dsn and creates the schema if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres session store requires a DSN")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &PostgresStore{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS artifacts (
		session_id TEXT NOT NULL,
		name TEXT NOT NULL,
		data BYTEA NOT NULL,
		size INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (session_id, name)
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, sessionID, name string, data []byte) error {
	query, args, err := s.sb.Insert("artifacts").
		Columns("session_id", "name", "data", "size", "created_at").
		Values(sessionID, name, data, len(data), time.Now().UTC()).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("storing %s/%s: %w", sessionID, name, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID, name string) ([]byte, error) {
	query, args, err := s.sb.Select("data").
		From("artifacts").
		Where(sq.Eq{"session_id": sessionID, "name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	var data []byte
	err = s.pool.QueryRow(ctx, query, args...).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", sessionID, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s/%s: %w", sessionID, name, err)
	}
	return data, nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID, name string) error {
	query, args, err := s.sb.Delete("artifacts").
		Where(sq.Eq{"session_id": sessionID, "name": name}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", sessionID, name, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, sessionID string) ([]Artifact, error) {
	query, args, err := s.sb.Select("name", "size", "created_at").
		From("artifacts").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a := Artifact{SessionID: sessionID}
		if err := rows.Scan(&a.Name, &a.Size, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Sessions(ctx context.Context) ([]Summary, error) {
	query, args, err := s.sb.Select("session_id", "count(*)", "max(created_at)").
		From("artifacts").
		GroupBy("session_id").
		OrderBy("max(created_at) DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.SessionID, &sum.Artifacts, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
