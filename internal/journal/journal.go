package journal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/tradestream/internal/connection"
)

// ErrUnknownDriver is returned for an unsupported journal driver name.
var ErrUnknownDriver = errors.New("unknown journal driver")

// Sink stores batches of entries.
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
	Close() error
}

// Reader returns the most recent entries of a stream, newest first.
type Reader interface {
	Recent(ctx context.Context, streamID string, limit int) ([]Entry, error)
}

// Config holds batching parameters.
type Config struct {
	Instance      string
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultConfig returns default batching parameters.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1000,
	}
}

// Metrics tracks journal activity.
type Metrics struct {
	Inserts int64
	Errors  int64
	Flushes int64
	Dropped int64
}

// Journal batches status events into a Sink.
type Journal struct {
	cfg    Config
	sink   Sink
	logger *slog.Logger

	input chan Entry

	batch   []Entry
	batchMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

var _ connection.Recorder = (*Journal)(nil)

// New creates a Journal writing to sink.
func New(cfg Config, sink Sink, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &Journal{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		input:  make(chan Entry, cfg.BufferSize),
		batch:  make([]Entry, 0, cfg.BatchSize),
	}
}

// Start begins consuming events and flushing batches.
func (j *Journal) Start(ctx context.Context) error {
	j.ctx, j.cancel = context.WithCancel(ctx)

	j.wg.Add(2)
	go j.consumeLoop()
	go j.flushLoop()

	j.logger.Info("journal started",
		"batch_size", j.cfg.BatchSize,
		"flush_interval", j.cfg.FlushInterval,
	)
	return nil
}

// Stop drains buffered events, flushes the final batch and closes the sink.
func (j *Journal) Stop(ctx context.Context) error {
	j.logger.Info("stopping journal")

	if j.cancel != nil {
		j.cancel()
	}

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		j.logger.Warn("journal stop timed out")
	}

	// Drain anything still buffered
drain:
	for {
		select {
		case e := <-j.input:
			j.batchMu.Lock()
			j.batch = append(j.batch, e)
			j.batchMu.Unlock()
		default:
			break drain
		}
	}

	j.flush(ctx)
	return j.sink.Close()
}

// Stats returns current metrics.
func (j *Journal) Stats() Metrics {
	j.batchMu.Lock()
	defer j.batchMu.Unlock()
	return j.metrics
}

// RecordStatus enqueues a status transition. It never blocks: when the
// buffer is full the event is dropped and counted.
func (j *Journal) RecordStatus(ev connection.StatusEvent) {
	select {
	case j.input <- newEntry(j.cfg.Instance, ev):
	default:
		j.batchMu.Lock()
		j.metrics.Dropped++
		j.batchMu.Unlock()
	}
}

// RecordMessage ignores data frames.
func (j *Journal) RecordMessage(connection.Message) {}

func (j *Journal) consumeLoop() {
	defer j.wg.Done()

	for {
		select {
		case <-j.ctx.Done():
			return
		case e := <-j.input:
			j.batchMu.Lock()
			j.batch = append(j.batch, e)
			shouldFlush := len(j.batch) >= j.cfg.BatchSize
			j.batchMu.Unlock()

			if shouldFlush {
				j.flush(j.ctx)
			}
		}
	}
}

func (j *Journal) flushLoop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.flush(j.ctx)
		}
	}
}

func (j *Journal) flush(ctx context.Context) {
	j.batchMu.Lock()
	if len(j.batch) == 0 {
		j.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := j.batch
	j.batch = make([]Entry, 0, j.cfg.BatchSize)
	j.batchMu.Unlock()

	// Writes must survive the cancellation that triggers the final flush.
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	if err := j.sink.Write(ctx, batch); err != nil {
		j.logger.Error("journal write failed", "error", err, "count", len(batch))
		j.batchMu.Lock()
		j.metrics.Errors++
		j.batchMu.Unlock()
		return
	}

	j.batchMu.Lock()
	j.metrics.Inserts += int64(len(batch))
	j.metrics.Flushes++
	j.batchMu.Unlock()

	j.logger.Debug("flushed status events",
		"count", len(batch),
		"duration", time.Since(start),
	)
}
