package driving

import (
	"context"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
)

// SyncOrchestrator runs mirror synchronization
type SyncOrchestrator interface {
	// RunOnce performs one sync run. When a run is already active it
	// returns immediately with an already_running run and
	// domain.ErrSyncInProgress.
	RunOnce(ctx context.Context) (*domain.SyncRun, error)

	// LatestRun returns the most recent recorded run
	LatestRun(ctx context.Context) (*domain.SyncRun, error)

	// ListRuns returns recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error)

	// Running reports whether a run is active in this process
	Running() bool
}
