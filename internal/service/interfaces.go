package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"karakeep_sync/internal/domain"
	"karakeep_sync/internal/source"
)

// Sink is the bookmark server items are reconciled into.
type Sink interface {
	EnsureList(ctx context.Context, name string) (string, error)
	FindBookmarkByURL(ctx context.Context, url string) (string, bool, error)
	CreateBookmark(ctx context.Context, item domain.Item) (string, error)
	AddBookmarkToList(ctx context.Context, bookmarkID, listID string) error
}

type Source interface {
	ID() string
	ListName() string
	Open(ctx context.Context) (source.Stream, error)
}

type SyncStateStore interface {
	Get(ctx context.Context, sourceID string) (*domain.SyncState, error)
	Update(ctx context.Context, state *domain.SyncState) error
}

type RunStore interface {
	Insert(ctx context.Context, run *domain.RunRecord) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event *domain.BookmarkEvent) error
	Close() error
}
