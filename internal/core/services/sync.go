package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driving"
)

// Ensure SyncOrchestrator implements driving.SyncOrchestrator
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

const (
	// SyncLockName is the distributed lock guarding runs across instances.
	SyncLockName = "sync-run"

	defaultLockTTL = 10 * time.Minute
)

// SyncOrchestrator decides the sync strategy of each run:
//  1. Refresh the topic list from the remote source
//  2. Apply the change stream when a cursor exists
//  3. Otherwise, or when that fails, fully sync every topic
//  4. After a clean full pass, re-baseline the cursor
//
// At most one run is active at a time. The run token is a single-slot
// semaphore released on every exit path; when a DistributedLock is
// configured the same holds across instances.
type SyncOrchestrator struct {
	remote           driven.RemoteSource
	store            driven.LocalStore
	runs             driven.SyncRunStore
	lock             driven.DistributedLock
	lockTTL          time.Duration
	strictRebaseline bool
	differential     *DifferentialSyncEngine
	full             *FullSyncEngine
	token            *semaphore.Weighted
	running          atomic.Bool
	logger           *slog.Logger
}

// SyncOrchestratorConfig holds dependencies for SyncOrchestrator.
type SyncOrchestratorConfig struct {
	Remote driven.RemoteSource
	Store  driven.LocalStore
	Runs   driven.SyncRunStore    // optional run history
	Lock   driven.DistributedLock // optional multi-instance guard
	Media  *MediaFetcher          // optional

	LockTTL            time.Duration
	TopicPolicy        domain.UnresolvedTopicPolicy
	FullMode           domain.FullSyncMode
	DifferencePageSize int
	MaxDifferencePages int
	TopicMessageCap    int

	// StrictRebaseline keeps the cursor unchanged when any topic of a full
	// pass failed, so the next run goes full again.
	StrictRebaseline bool

	Logger *slog.Logger
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(cfg SyncOrchestratorConfig) *SyncOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}

	return &SyncOrchestrator{
		remote:           cfg.Remote,
		store:            cfg.Store,
		runs:             cfg.Runs,
		lock:             cfg.Lock,
		lockTTL:          ttl,
		strictRebaseline: cfg.StrictRebaseline,
		differential: NewDifferentialSyncEngine(DifferentialSyncConfig{
			Remote:      cfg.Remote,
			Store:       cfg.Store,
			Media:       cfg.Media,
			TopicPolicy: cfg.TopicPolicy,
			PageSize:    cfg.DifferencePageSize,
			MaxPages:    cfg.MaxDifferencePages,
			Logger:      logger,
		}),
		full: NewFullSyncEngine(FullSyncConfig{
			Remote:     cfg.Remote,
			Store:      cfg.Store,
			Media:      cfg.Media,
			Mode:       cfg.FullMode,
			MessageCap: cfg.TopicMessageCap,
			Logger:     logger,
		}),
		token:  semaphore.NewWeighted(1),
		logger: logger,
	}
}

// Running reports whether a run is active in this process.
func (o *SyncOrchestrator) Running() bool {
	return o.running.Load()
}

// RunOnce performs one sync run. A concurrent call returns immediately
// with an already_running run and domain.ErrSyncInProgress. A failed run
// is returned together with the error that failed it.
func (o *SyncOrchestrator) RunOnce(ctx context.Context) (*domain.SyncRun, error) {
	if !o.token.TryAcquire(1) {
		return o.alreadyRunning(), domain.ErrSyncInProgress
	}
	defer o.token.Release(1)

	if o.lock != nil {
		acquired, err := o.lock.Acquire(ctx, SyncLockName, o.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire sync lock: %w", err)
		}
		if !acquired {
			o.logger.Info("sync running on another instance")
			return o.alreadyRunning(), domain.ErrSyncInProgress
		}
		defer func() {
			if err := o.lock.Release(context.WithoutCancel(ctx), SyncLockName); err != nil {
				o.logger.Warn("failed to release sync lock", "error", err)
			}
		}()
		stop := o.heartbeat(ctx)
		defer stop()
	}

	o.running.Store(true)
	defer o.running.Store(false)

	run := &domain.SyncRun{
		ID:        uuid.NewString(),
		Status:    domain.RunStatusRunning,
		Strategy:  domain.SyncStrategyNone,
		StartedAt: time.Now(),
	}
	o.saveRun(ctx, run)
	o.logger.Info("starting sync run", "run_id", run.ID)

	runErr := o.execute(ctx, run)

	completedAt := time.Now()
	run.CompletedAt = &completedAt
	if runErr != nil {
		run.Status = domain.RunStatusFailure
		run.Error = runErr.Error()
	} else {
		run.Status = domain.RunStatusSuccess
	}
	o.saveRun(ctx, run)

	attrs := []any{
		"run_id", run.ID,
		"status", run.Status,
		"strategy", run.Strategy,
		"duration_seconds", run.Duration().Seconds(),
		"topics_synced", run.Stats.TopicsSynced,
		"topics_failed", run.Stats.TopicsFailed,
		"pages_applied", run.Stats.PagesApplied,
		"bookmarks_upserted", run.Stats.BookmarksUpserted,
		"bookmarks_deleted", run.Stats.BookmarksDeleted,
		"messages_dropped", run.Stats.MessagesDropped,
		"media_failures", run.Stats.MediaFailures,
	}
	if runErr != nil {
		o.logger.Error("sync run failed", append(attrs, "error", runErr)...)
		return run, runErr
	}
	o.logger.Info("sync run completed", attrs...)
	return run, nil
}

func (o *SyncOrchestrator) execute(ctx context.Context, run *domain.SyncRun) error {
	// Step 1: refresh topics
	topics, err := o.remote.ListTopics(ctx)
	if err != nil {
		return domain.NewTransportError("list topics", err)
	}
	for _, t := range topics {
		if err := o.store.UpsertTopic(ctx, t.ID, t.Title); err != nil {
			return domain.NewStorageError("upsert topic", err)
		}
	}

	// Step 2: differential
	cursor, err := o.store.GetCursor(ctx)
	if err != nil {
		return domain.NewStorageError("get cursor", err)
	}
	if cursor != nil {
		stats, pts, err := o.differential.Run(ctx)
		run.Stats.Add(stats)
		if err == nil {
			run.Strategy = domain.SyncStrategyDifferential
			run.Cursor = &pts
			return nil
		}
		if errors.Is(err, domain.ErrDifferenceTooLong) {
			o.logger.Info("differential sync not viable, falling back to full sync", "run_id", run.ID)
		} else {
			o.logger.Warn("differential sync failed, falling back to full sync",
				"run_id", run.ID,
				"error", err,
			)
		}
	} else {
		o.logger.Info("no sync cursor, running full sync", "run_id", run.ID)
	}

	// Step 3: full sync of every topic
	run.Strategy = domain.SyncStrategyFull

	// Read before the pass so changes made during it are replayed by the
	// next differential run.
	position, posErr := o.remote.GetCurrentPosition(ctx)
	if posErr != nil {
		o.logger.Warn("failed to read remote position", "run_id", run.ID, "error", posErr)
	}

	for _, t := range topics {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats, err := o.full.SyncTopic(ctx, t.ID)
		run.Stats.Add(stats)
		if err == nil {
			continue
		}
		if domain.IsStorageError(err) {
			return err
		}
		run.Stats.TopicsFailed++
		run.TopicFailures = append(run.TopicFailures, domain.TopicFailure{TopicID: t.ID, Error: err.Error()})
		o.logger.Warn("topic sync failed", "run_id", run.ID, "topic_id", t.ID, "error", err)
	}

	failed := len(run.TopicFailures)
	if failed > 0 && o.strictRebaseline {
		return fmt.Errorf("full sync: %d of %d topics failed", failed, len(topics))
	}

	// Step 4: re-baseline. A failed topic does not hold back the others;
	// it is repaired by later change events or the next full pass.
	if posErr != nil {
		return domain.NewTransportError("get current position", posErr)
	}
	if cursor != nil && position < cursor.Pts {
		position = cursor.Pts
	}
	if err := o.store.SetCursor(ctx, position); err != nil {
		return domain.NewStorageError("set cursor", err)
	}
	run.Cursor = &position

	if failed > 0 {
		return fmt.Errorf("full sync: %d of %d topics failed", failed, len(topics))
	}
	return nil
}

// heartbeat extends the distributed lock until the returned stop is called.
func (o *SyncOrchestrator) heartbeat(ctx context.Context) func() {
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		interval := o.lockTTL / 3
		if interval <= 0 {
			interval = o.lockTTL
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := o.lock.Extend(ctx, SyncLockName, o.lockTTL); err != nil {
					o.logger.Warn("failed to extend sync lock", "error", err)
				}
			}
		}
	}()

	return func() {
		close(stopCh)
		<-doneCh
	}
}

func (o *SyncOrchestrator) alreadyRunning() *domain.SyncRun {
	now := time.Now()
	return &domain.SyncRun{
		ID:          uuid.NewString(),
		Status:      domain.RunStatusAlreadyRunning,
		Strategy:    domain.SyncStrategyNone,
		StartedAt:   now,
		CompletedAt: &now,
	}
}

// saveRun records run history. Failures are logged and never fail the run.
func (o *SyncOrchestrator) saveRun(ctx context.Context, run *domain.SyncRun) {
	if o.runs == nil {
		return
	}
	if err := o.runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		o.logger.Warn("failed to save sync run", "run_id", run.ID, "error", err)
	}
}

// LatestRun returns the most recent recorded run.
func (o *SyncOrchestrator) LatestRun(ctx context.Context) (*domain.SyncRun, error) {
	if o.runs == nil {
		return nil, domain.ErrNotFound
	}
	return o.runs.LatestRun(ctx)
}

// ListRuns returns recent runs, newest first.
func (o *SyncOrchestrator) ListRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	if o.runs == nil {
		return []*domain.SyncRun{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return o.runs.ListRuns(ctx, limit)
}
