package domain

import "time"

// Item is one saved entry pulled from a remote source.
type Item struct {
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Batch is one page of items in the source's native newest-first order.
type Batch []Item
