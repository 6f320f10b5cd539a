package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS stream_status_events (
	id            BIGSERIAL PRIMARY KEY,
	instance      TEXT        NOT NULL,
	stream_id     TEXT        NOT NULL,
	session_id    TEXT        NOT NULL DEFAULT '',
	status        TEXT        NOT NULL,
	code          INTEGER     NOT NULL DEFAULT 0,
	attempt       INTEGER     NOT NULL DEFAULT 0,
	retry_in_ms   BIGINT      NOT NULL DEFAULT 0,
	terminal      BOOLEAN     NOT NULL DEFAULT FALSE,
	authenticated BOOLEAN     NOT NULL DEFAULT FALSE,
	error         TEXT        NOT NULL DEFAULT '',
	at            TIMESTAMPTZ NOT NULL
)`

const createIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_stream_at ON stream_status_events (stream_id, at DESC)`

const insertSQL = `
INSERT INTO stream_status_events
	(instance, stream_id, session_id, status, code, attempt, retry_in_ms, terminal, authenticated, error, at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const recentSQL = `
SELECT id, instance, stream_id, session_id, status, code, attempt, retry_in_ms, terminal, authenticated, error, at
FROM stream_status_events
WHERE stream_id = $1
ORDER BY at DESC, id DESC
LIMIT $2`

// pgConn is the subset of *pgxpool.Pool used by PostgresSink.
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresSink writes entries to PostgreSQL.
type PostgresSink struct {
	db    pgConn
	close func()
}

var (
	_ Sink   = (*PostgresSink)(nil)
	_ Reader = (*PostgresSink)(nil)
)

// NewPostgresSink creates a sink that owns pool and closes it on Close.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{db: pool, close: pool.Close}
}

// EnsureSchema creates the journal table and index if missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if _, err := s.db.Exec(ctx, createIndexSQL); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Write inserts entries in a single round trip using pgx.Batch.
func (s *PostgresSink) Write(ctx context.Context, entries []Entry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(insertSQL,
			e.Instance, e.StreamID, e.SessionID, e.Status, e.Code, e.Attempt,
			e.RetryInMs, e.Terminal, e.Authenticated, e.Error, e.At,
		)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert status event: %w", err)
		}
	}
	return nil
}

// Recent returns up to limit entries for streamID, newest first.
func (s *PostgresSink) Recent(ctx context.Context, streamID string, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, recentSQL, streamID, limit)
	if err != nil {
		return nil, fmt.Errorf("query status events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var id int64
		if err := rows.Scan(
			&id, &e.Instance, &e.StreamID, &e.SessionID, &e.Status, &e.Code, &e.Attempt,
			&e.RetryInMs, &e.Terminal, &e.Authenticated, &e.Error, &e.At,
		); err != nil {
			return nil, fmt.Errorf("scan status event: %w", err)
		}
		e.ID = uint(id)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying pool.
func (s *PostgresSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
