package domain

import (
	"fmt"
	"time"
)

// RunStatus is the outcome of a sync run as seen by the trigger
type RunStatus string

const (
	RunStatusRunning        RunStatus = "running"
	RunStatusSuccess        RunStatus = "success"
	RunStatusFailure        RunStatus = "failure"
	RunStatusAlreadyRunning RunStatus = "already_running"
)

// SyncStrategy records which engine ended up applying the run
type SyncStrategy string

const (
	SyncStrategyNone         SyncStrategy = "none"
	SyncStrategyDifferential SyncStrategy = "differential"
	SyncStrategyFull         SyncStrategy = "full"
)

// SyncStats holds counters for a sync run
type SyncStats struct {
	TopicsSynced      int `json:"topics_synced"`
	TopicsFailed      int `json:"topics_failed"`
	PagesApplied      int `json:"pages_applied"`
	BookmarksUpserted int `json:"bookmarks_upserted"`
	BookmarksDeleted  int `json:"bookmarks_deleted"`
	MessagesDropped   int `json:"messages_dropped"`
	MediaFailures     int `json:"media_failures"`
}

// Add accumulates other into s.
func (s *SyncStats) Add(other SyncStats) {
	s.TopicsSynced += other.TopicsSynced
	s.TopicsFailed += other.TopicsFailed
	s.PagesApplied += other.PagesApplied
	s.BookmarksUpserted += other.BookmarksUpserted
	s.BookmarksDeleted += other.BookmarksDeleted
	s.MessagesDropped += other.MessagesDropped
	s.MediaFailures += other.MediaFailures
}

// TopicFailure records one topic that could not be fully synced
type TopicFailure struct {
	TopicID int64  `json:"topic_id"`
	Error   string `json:"error"`
}

// SyncRun is one invocation of the orchestrator
type SyncRun struct {
	ID            string         `json:"id"`
	Status        RunStatus      `json:"status"`
	Strategy      SyncStrategy   `json:"strategy"`
	Stats         SyncStats      `json:"stats"`
	TopicFailures []TopicFailure `json:"topic_failures,omitempty"`
	Error         string         `json:"error,omitempty"`
	Cursor        *int64         `json:"cursor,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// Duration returns the run's wall time, zero while running.
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// UnresolvedTopicPolicy decides what happens to a changed message whose
// topic cannot be determined from its reply reference.
type UnresolvedTopicPolicy string

const (
	// TopicPolicyDrop skips the message.
	TopicPolicyDrop UnresolvedTopicPolicy = "drop"

	// TopicPolicyGeneral attributes the message to GeneralTopicID. This is a
	// workaround for forums whose General topic messages carry no reference.
	TopicPolicyGeneral UnresolvedTopicPolicy = "general"
)

// GeneralTopicID is the id the remote assigns to a forum's General topic.
const GeneralTopicID int64 = 1

// ParseTopicPolicy validates a policy name. Empty means drop.
func ParseTopicPolicy(s string) (UnresolvedTopicPolicy, error) {
	switch UnresolvedTopicPolicy(s) {
	case "", TopicPolicyDrop:
		return TopicPolicyDrop, nil
	case TopicPolicyGeneral:
		return TopicPolicyGeneral, nil
	default:
		return "", fmt.Errorf("%w: unresolved topic policy %q", ErrInvalidInput, s)
	}
}

// FullSyncMode selects how the full engine treats a topic
type FullSyncMode string

const (
	// FullSyncReconcile enumerates the whole topic and prunes by absence.
	FullSyncReconcile FullSyncMode = "reconcile"

	// FullSyncAppend scans only messages newer than the local maximum and
	// never prunes.
	FullSyncAppend FullSyncMode = "append"
)

// ParseFullSyncMode validates a mode name. Empty means reconcile.
func ParseFullSyncMode(s string) (FullSyncMode, error) {
	switch FullSyncMode(s) {
	case "", FullSyncReconcile:
		return FullSyncReconcile, nil
	case FullSyncAppend:
		return FullSyncAppend, nil
	default:
		return "", fmt.Errorf("%w: full sync mode %q", ErrInvalidInput, s)
	}
}
