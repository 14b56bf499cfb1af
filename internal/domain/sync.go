package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncStats holds statistics about a sync operation.
type SyncStats struct {
	RunID        uuid.UUID
	SourceID     string
	ListName     string
	Batches      int
	Processed    int
	Created      int
	Existing     int
	Published    int
	EarlyStopped bool
	StreamErr    error
	StartedAt    time.Time
	Duration     time.Duration
}

// SyncRun is the per-invocation state of one source's sync. It is never persisted.
type SyncRun struct {
	ID                  uuid.UUID
	ListID              string
	ConsecutiveExisting int
	Created             int
}

// NewSyncRun starts a run against the resolved list.
func NewSyncRun(id uuid.UUID, listID string) *SyncRun {
	return &SyncRun{ID: id, ListID: listID}
}

// SyncState is the per-source run history kept by the optional history store.
type SyncState struct {
	ID           int64     `db:"id"`
	SourceID     string    `db:"source_id"`
	LastSyncedAt time.Time `db:"last_synced_at"`
	LastCreated  int64     `db:"last_created"`
	TotalCreated int64     `db:"total_created"`
	TotalRuns    int64     `db:"total_runs"`
}

// RunRecord is one finished run as kept in the sync_runs table.
type RunRecord struct {
	ID           uuid.UUID `db:"id"`
	SourceID     string    `db:"source_id"`
	StartedAt    time.Time `db:"started_at"`
	FinishedAt   time.Time `db:"finished_at"`
	Batches      int       `db:"batches"`
	Processed    int       `db:"processed"`
	Created      int       `db:"created"`
	Existing     int       `db:"existing"`
	EarlyStopped bool      `db:"early_stopped"`
	Error        *string   `db:"error"`
}

// NewRunRecord captures stats of a run that ended with runErr (nil on success).
func NewRunRecord(stats *SyncStats, runErr error) *RunRecord {
	rec := &RunRecord{
		ID:           stats.RunID,
		SourceID:     stats.SourceID,
		StartedAt:    stats.StartedAt,
		FinishedAt:   stats.StartedAt.Add(stats.Duration),
		Batches:      stats.Batches,
		Processed:    stats.Processed,
		Created:      stats.Created,
		Existing:     stats.Existing,
		EarlyStopped: stats.EarlyStopped,
	}
	switch {
	case runErr != nil:
		msg := runErr.Error()
		rec.Error = &msg
	case stats.StreamErr != nil:
		msg := stats.StreamErr.Error()
		rec.Error = &msg
	}
	return rec
}

// Bookmark event actions.
const (
	ActionCreated = "bookmark.created"
	ActionLinked  = "bookmark.linked"
)

// BookmarkEvent announces that an item was reconciled into its list.
type BookmarkEvent struct {
	Action     string    `json:"action"`
	RunID      uuid.UUID `json:"run_id"`
	SourceID   string    `json:"source_id"`
	ListID     string    `json:"list_id"`
	BookmarkID string    `json:"bookmark_id"`
	Item       Item      `json:"item"`
	Timestamp  time.Time `json:"timestamp"`
}
