// Package telemetry records per-search outcomes off the hot path: an
// asynchronous sink persisting to a storage backend and a history log, and a
// terminal progress printer.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/searchcredit/internal/batch"
	"github.com/FranksOps/searchcredit/internal/storage"
)

var _ batch.Recorder = (*Sink)(nil)

// SinkConfig configures a Sink.
type SinkConfig struct {
	// Backend may be nil, in which case only the history log is written.
	Backend storage.Backend
	// History receives one line per attempt. Nil disables it.
	History *slog.Logger
	// Logger receives the sink's own diagnostics.
	Logger *slog.Logger
	// QueueSize bounds pending records; when full new records are dropped.
	QueueSize int
	// SaveTimeout bounds a single backend write.
	SaveTimeout time.Duration
}

type item struct {
	runID string
	o     batch.SearchOutcome
}

// Sink is a fire-and-forget batch.Recorder.
type Sink struct {
	cfg     SinkConfig
	logger  *slog.Logger
	queue   chan item
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewSink starts the sink's worker.
func NewSink(cfg SinkConfig) *Sink {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sink{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan item, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go s.worker()
	return s
}

// Record enqueues an outcome. It never blocks.
func (s *Sink) Record(_ context.Context, runID string, o batch.SearchOutcome) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- item{runID: runID, o: o}:
	default:
		s.dropped.Add(1)
		s.logger.Debug("telemetry queue full, dropping record", "term", o.Term)
	}
}

func (s *Sink) worker() {
	defer close(s.done)
	for it := range s.queue {
		s.write(it)
	}
}

func (s *Sink) write(it item) {
	if h := s.cfg.History; h != nil {
		if it.o.Succeeded {
			h.Info("SUCCESS", "term", it.o.Term)
		} else {
			h.Error("ERROR", "term", it.o.Term, "err", it.o.Message)
		}
	}

	if s.cfg.Backend == nil {
		return
	}
	rec := &storage.SearchRecord{
		ID:        uuid.NewString(),
		RunID:     it.runID,
		Term:      it.o.Term,
		Succeeded: it.o.Succeeded,
		Message:   it.o.Message,
		Duration:  it.o.Duration,
		CreatedAt: it.o.Timestamp,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SaveTimeout)
	defer cancel()
	if err := s.cfg.Backend.Save(ctx, rec); err != nil {
		s.logger.Debug("telemetry save failed", "term", rec.Term, "err", err)
	}
}

// Close stops accepting records and waits until queued ones are written or
// ctx expires. The backend itself is not closed.
func (s *Sink) Close(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped reports how many records were discarded because the queue was full.
func (s *Sink) Dropped() int {
	return int(s.dropped.Load())
}
