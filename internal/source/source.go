// Package source defines the contract every saved-items provider implements
// and the generic pagination driver the providers share.
package source

import (
	"context"
	"log/slog"

	"karakeep_sync/internal/domain"
)

// DefaultSchedule is used when a source has no schedule configured.
const DefaultSchedule = "@daily"

// Source is one provider of saved items.
type Source interface {
	// ID returns the short source identifier ("hn", "reddit", ...).
	ID() string

	// ListName returns the name of the sink list the items are grouped into.
	ListName() string

	// IsActivated reports whether every credential the source needs is present.
	// It never performs I/O.
	IsActivated() bool

	// Schedule returns the cron expression the source runs on.
	Schedule() string

	// Open establishes the session and returns a fresh stream that starts
	// from the most recent item. Every call starts over.
	Open(ctx context.Context) (Stream, error)
}

// Stream is a lazy, finite, order-preserving sequence of batches.
type Stream interface {
	// Next fetches the next batch. It returns false once the stream ended.
	Next(ctx context.Context) (domain.Batch, bool)

	// Err returns the error that ended the stream early, or nil when the
	// source simply ran out of pages.
	Err() error
}

// PageFunc fetches the page at cursor and returns the cursor of the page
// after it. more is false when the page is the last one.
type PageFunc[C any] func(ctx context.Context, cursor C) (batch domain.Batch, next C, more bool, err error)

// Paginate drives fetch from start until it reports no more pages.
//
// A failed page fetch is a soft stop: the stream ends without surfacing the
// failure through Next, the next scheduled run picks the items up again from
// the top. The cause stays available through Err.
func Paginate[C any](start C, fetch PageFunc[C], logger *slog.Logger) Stream {
	return &pager[C]{
		fetch:  fetch,
		cursor: start,
		logger: logger,
	}
}

type pager[C any] struct {
	fetch  PageFunc[C]
	cursor C
	page   int
	done   bool
	err    error
	logger *slog.Logger
}

func (p *pager[C]) Next(ctx context.Context) (domain.Batch, bool) {
	if p.done {
		return nil, false
	}

	batch, next, more, err := p.fetch(ctx, p.cursor)
	if err != nil {
		p.done = true
		p.err = err
		p.logger.Warn("pagination stopped early",
			"page", p.page,
			"error", err,
		)
		return nil, false
	}

	p.logger.Debug("fetched page",
		"page", p.page,
		"items", len(batch),
		"more", more,
	)

	p.page++
	p.cursor = next
	p.done = !more
	return batch, true
}

func (p *pager[C]) Err() error {
	return p.err
}

// Once returns a stream with exactly one batch.
func Once(batch domain.Batch) Stream {
	return &once{batch: batch}
}

type once struct {
	batch    domain.Batch
	consumed bool
}

func (o *once) Next(context.Context) (domain.Batch, bool) {
	if o.consumed {
		return nil, false
	}
	o.consumed = true
	return o.batch, true
}

func (o *once) Err() error {
	return nil
}
