package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"karakeep_sync/internal/domain"
)

// EarlyStopThreshold is the number of consecutive already-known items after
// which a run is considered caught up.
const EarlyStopThreshold = 5

type SyncService struct {
	sink      Sink
	syncState SyncStateStore
	runs      RunStore
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
}

// NewSyncService builds the engine. The history stores, the transaction
// manager and the publisher may be nil; history is only recorded when all
// three history dependencies are set.
func NewSyncService(
	sink Sink,
	syncState SyncStateStore,
	runs RunStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		sink:      sink,
		syncState: syncState,
		runs:      runs,
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
	}
}

// Sync mirrors src into its sink list and returns the run statistics.
// Stats.Created is the number of bookmarks created by this run.
func (s *SyncService) Sync(ctx context.Context, src Source) (*domain.SyncStats, error) {
	logger := s.logger.With("source", src.ID())
	stats := &domain.SyncStats{
		RunID:     uuid.New(),
		SourceID:  src.ID(),
		ListName:  src.ListName(),
		StartedAt: time.Now(),
	}

	logger.Info("starting sync", "list", stats.ListName, "run_id", stats.RunID)

	runErr := s.run(ctx, src, stats, logger)
	stats.Duration = time.Since(stats.StartedAt)

	if err := s.recordRun(ctx, stats, runErr); err != nil {
		if runErr == nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		logger.Warn("failed to record run", "error", err)
	}

	if runErr != nil {
		logger.Error("sync failed",
			"created", stats.Created,
			"processed", stats.Processed,
			"error", runErr,
		)
		return nil, runErr
	}

	if stats.StreamErr != nil {
		logger.Warn("source stream ended early", "error", stats.StreamErr)
	}

	logger.Info("sync completed",
		"batches", stats.Batches,
		"processed", stats.Processed,
		"created", stats.Created,
		"existing", stats.Existing,
		"published", stats.Published,
		"early_stopped", stats.EarlyStopped,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *SyncService) run(ctx context.Context, src Source, stats *domain.SyncStats, logger *slog.Logger) error {
	listID, err := s.sink.EnsureList(ctx, stats.ListName)
	if err != nil {
		return fmt.Errorf("ensure list %q: %w", stats.ListName, err)
	}

	run := domain.NewSyncRun(stats.RunID, listID)

	stream, err := src.Open(ctx)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

pages:
	for {
		batch, ok := stream.Next(ctx)
		if !ok {
			break
		}
		stats.Batches++
		logger.Debug("processing batch", "batch", stats.Batches, "count", len(batch))

		for _, item := range batch {
			if err := s.syncItem(ctx, src.ID(), run, item, stats, logger); err != nil {
				return err
			}

			if run.ConsecutiveExisting >= EarlyStopThreshold {
				logger.Info("consecutive existing items found, stopping sync",
					"threshold", EarlyStopThreshold,
				)
				stats.EarlyStopped = true
				break pages
			}
		}
	}

	stats.StreamErr = stream.Err()
	return nil
}

func (s *SyncService) syncItem(
	ctx context.Context,
	sourceID string,
	run *domain.SyncRun,
	item domain.Item,
	stats *domain.SyncStats,
	logger *slog.Logger,
) error {
	bookmarkID, found, err := s.sink.FindBookmarkByURL(ctx, item.URL)
	if err != nil {
		return fmt.Errorf("find bookmark %q: %w", item.URL, err)
	}

	action := domain.ActionLinked
	if found {
		run.ConsecutiveExisting++
		stats.Existing++
	} else {
		bookmarkID, err = s.sink.CreateBookmark(ctx, item)
		if err != nil {
			return fmt.Errorf("create bookmark %q: %w", item.URL, err)
		}
		action = domain.ActionCreated
		run.ConsecutiveExisting = 0
		run.Created++
		stats.Created++
	}

	if err := s.sink.AddBookmarkToList(ctx, bookmarkID, run.ListID); err != nil {
		return fmt.Errorf("add bookmark %s to list: %w", bookmarkID, err)
	}
	stats.Processed++

	logger.Debug("bookmark synced", "url", item.URL, "bookmark_id", bookmarkID, "action", action)

	if s.publisher != nil {
		event := &domain.BookmarkEvent{
			Action:     action,
			RunID:      run.ID,
			SourceID:   sourceID,
			ListID:     run.ListID,
			BookmarkID: bookmarkID,
			Item:       item,
			Timestamp:  time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			logger.Warn("failed to publish event", "bookmark_id", bookmarkID, "error", err)
		} else {
			stats.Published++
		}
	}

	return nil
}

func (s *SyncService) historyEnabled() bool {
	return s.syncState != nil && s.runs != nil && s.txManager != nil
}

func (s *SyncService) recordRun(ctx context.Context, stats *domain.SyncStats, runErr error) error {
	if !s.historyEnabled() {
		return nil
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.runs.Insert(txCtx, domain.NewRunRecord(stats, runErr)); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		state, err := s.syncState.Get(txCtx, stats.SourceID)
		if err != nil {
			return fmt.Errorf("get sync state: %w", err)
		}

		state.SourceID = stats.SourceID
		state.LastSyncedAt = stats.StartedAt.Add(stats.Duration)
		state.LastCreated = int64(stats.Created)
		state.TotalCreated += int64(stats.Created)
		state.TotalRuns++

		if err := s.syncState.Update(txCtx, state); err != nil {
			return fmt.Errorf("update sync state: %w", err)
		}
		return nil
	})
}
