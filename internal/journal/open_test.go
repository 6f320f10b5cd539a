package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rickgao/tradestream/internal/config"
)

func TestOpen_Disabled(t *testing.T) {
	j, err := Open(context.Background(), config.JournalConfig{}, "dash-1", nil)
	if err != nil || j != nil {
		t.Errorf("Open(disabled) = %v, %v; want nil, nil", j, err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.JournalConfig{Driver: "mysql"}, "dash-1", nil)
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("Open(mysql) error = %v, want ErrUnknownDriver", err)
	}
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.JournalConfig{
		Driver:        "sqlite",
		SQLitePath:    filepath.Join(t.TempDir(), "journal.db"),
		BatchSize:     5,
		FlushInterval: 50 * time.Millisecond,
	}
	j, err := Open(context.Background(), cfg, "dash-1", nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if j.cfg.Instance != "dash-1" || j.cfg.BatchSize != 5 {
		t.Errorf("cfg = %+v", j.cfg)
	}
	if _, ok := j.sink.(*SQLiteSink); !ok {
		t.Errorf("sink = %T, want *SQLiteSink", j.sink)
	}
	j.Start(context.Background())
	if err := j.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
