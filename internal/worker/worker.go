package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driving"
)

// ErrInvalidInterval is returned by Start when no positive interval is configured.
var ErrInvalidInterval = errors.New("worker: sync interval must be positive")

// Worker runs the sync orchestrator on a fixed interval.
type Worker struct {
	orchestrator driving.SyncOrchestrator
	logger       *slog.Logger

	// Configuration
	interval   time.Duration
	runOnStart bool

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Orchestrator driving.SyncOrchestrator
	Logger       *slog.Logger

	// Interval between runs
	Interval time.Duration

	// RunOnStart triggers a run immediately instead of after one interval
	RunOnStart bool
}

// NewWorker creates a new periodic sync worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		orchestrator: cfg.Orchestrator,
		logger:       logger,
		interval:     cfg.Interval,
		runOnStart:   cfg.RunOnStart,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return ErrInvalidInterval
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"interval", w.interval,
		"run_on_start", w.runOnStart,
	)

	go func() {
		defer close(w.doneCh)
		w.loop(ctx)
	}()

	return nil
}

// Stop gracefully stops the worker, waiting for an in-flight run.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	w.mu.RLock()
	done := w.doneCh
	w.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// IsRunning returns whether the worker loop is active.
func (w *Worker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Worker) loop(ctx context.Context) {
	if w.runOnStart {
		w.runOnce(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			w.logger.Info("worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce performs one scheduled run and logs its outcome.
func (w *Worker) runOnce(ctx context.Context) {
	startTime := time.Now()
	run, err := w.orchestrator.RunOnce(ctx)
	duration := time.Since(startTime)

	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		w.logger.Info("sync already running, skipping tick")
	case err != nil && run == nil:
		w.logger.Error("sync could not start", "error", err, "duration", duration)
	case err != nil:
		w.logger.Error("scheduled sync failed",
			"run_id", run.ID,
			"strategy", run.Strategy,
			"error", err,
			"duration", duration,
		)
	default:
		w.logger.Info("scheduled sync completed",
			"run_id", run.ID,
			"strategy", run.Strategy,
			"bookmarks_upserted", run.Stats.BookmarksUpserted,
			"bookmarks_deleted", run.Stats.BookmarksDeleted,
			"duration", duration,
		)
	}
}
