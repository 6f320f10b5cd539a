package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/tradestream/internal/config"
	"github.com/rickgao/tradestream/internal/database"
)

// Open builds a Journal for the configured driver. It returns nil, nil when
// journaling is disabled.
func Open(ctx context.Context, cfg config.JournalConfig, instance string, logger *slog.Logger) (*Journal, error) {
	var sink Sink

	switch cfg.Driver {
	case "":
		return nil, nil
	case "postgres":
		pool, err := database.Connect(ctx, cfg.Postgres, "streamd "+instance)
		if err != nil {
			return nil, fmt.Errorf("connect journal database: %w", err)
		}
		pg := NewPostgresSink(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		sink = pg
	case "sqlite":
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sq, err := NewSQLiteSink(db)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.Close()
			}
			return nil, err
		}
		sink = sq
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	return New(Config{
		Instance:      instance,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		BufferSize:    cfg.BufferSize,
	}, sink, logger), nil
}

// Reader returns the sink as a Reader if it supports queries.
func (j *Journal) Reader() (Reader, bool) {
	r, ok := j.sink.(Reader)
	return r, ok
}
