// Package testutil holds helpers shared by tests.
package testutil

import (
	"context"
	"io"
	"log/slog"

	"karakeep_sync/internal/domain"
	"karakeep_sync/internal/source"
)

// Logger returns a logger that only reports errors, like the service tests do.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// CollectBatches drains a stream.
func CollectBatches(ctx context.Context, s source.Stream) []domain.Batch {
	var batches []domain.Batch
	for {
		batch, ok := s.Next(ctx)
		if !ok {
			return batches
		}
		batches = append(batches, batch)
	}
}

// BatchSizes returns the length of every batch.
func BatchSizes(batches []domain.Batch) []int {
	sizes := make([]int, len(batches))
	for i, b := range batches {
		sizes[i] = len(b)
	}
	return sizes
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// SliceStream is a scripted source.Stream.
type SliceStream struct {
	Batches []domain.Batch
	Failure error
	pulled  int
}

func (s *SliceStream) Next(context.Context) (domain.Batch, bool) {
	if s.pulled >= len(s.Batches) {
		return nil, false
	}
	b := s.Batches[s.pulled]
	s.pulled++
	return b, true
}

func (s *SliceStream) Err() error {
	if s.pulled >= len(s.Batches) {
		return s.Failure
	}
	return nil
}

// Pulled reports how many batches were consumed.
func (s *SliceStream) Pulled() int {
	return s.pulled
}
