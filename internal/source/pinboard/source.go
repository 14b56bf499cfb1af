package pinboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"karakeep_sync/internal/domain"
	"karakeep_sync/internal/source"
)

const (
	SourceID = "pinboard"
	ListName = "Pinboard"
)

// Config holds Pinboard source configuration.
type Config struct {
	Token    string
	Schedule string
	BaseURL  string
	Timeout  time.Duration
}

// Source implements source.Source for every bookmark of a Pinboard account.
// Pinboard returns the whole collection in one response, so the stream always
// has exactly one batch.
type Source struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a new Pinboard source.
func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.Schedule == "" {
		cfg.Schedule = source.DefaultSchedule
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Source{
		cfg:    cfg,
		logger: logger.With("source", SourceID),
	}
}

func (s *Source) ID() string {
	return SourceID
}

func (s *Source) ListName() string {
	return ListName
}

func (s *Source) IsActivated() bool {
	return s.cfg.Token != ""
}

func (s *Source) Schedule() string {
	return s.cfg.Schedule
}

// Open downloads the full dump. Unlike the paginated sources a failure here
// fails the run.
func (s *Source) Open(ctx context.Context) (source.Stream, error) {
	s.logger.Info("fetching pinboard bookmarks")

	posts, err := s.fetchAll(ctx)
	if err != nil {
		return nil, domain.FetchError("fetch pinboard bookmarks", err)
	}

	batch := make(domain.Batch, 0, len(posts))
	for _, p := range posts {
		batch = append(batch, s.toItem(p))
	}

	s.logger.Info("fetched pinboard bookmarks", "count", len(batch))

	return source.Once(batch), nil
}

func (s *Source) fetchAll(ctx context.Context) ([]Post, error) {
	query := url.Values{
		"auth_token": {s.cfg.Token},
		"format":     {"json"},
	}
	endpoint := s.cfg.BaseURL + "/v1/posts/all?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: s.cfg.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		// The request URL carries the token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var posts []Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return posts, nil
}

func (s *Source) toItem(p Post) domain.Item {
	item := domain.Item{Title: p.Description, URL: p.Href}
	if p.Time == "" {
		return item
	}
	created, err := time.Parse(time.RFC3339, p.Time)
	if err != nil {
		s.logger.Warn("failed to parse bookmark time",
			"href", p.Href,
			"time", p.Time,
		)
		return item
	}
	item.CreatedAt = &created
	return item
}
