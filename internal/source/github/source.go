package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"karakeep_sync/internal/domain"
	"karakeep_sync/internal/source"
)

const (
	SourceID = "github"
	ListName = "GitHub Starred"

	// DefaultRate keeps well below the authenticated 5000 requests/hour.
	DefaultRate = 1.2
)

// Config holds GitHub source configuration.
type Config struct {
	Token    string
	Schedule string
	BaseURL  string
	PerPage  int
	Timeout  time.Duration
	// RequestsPerSecond throttles page fetches. Zero means DefaultRate.
	RequestsPerSecond float64
}

// Source implements source.Source for the starred repositories of the
// authenticated GitHub user.
type Source struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a new GitHub source.
func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.Schedule == "" {
		cfg.Schedule = source.DefaultSchedule
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultRate
	}
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

// Open streams starred repositories, most recently starred first, following
// the Link header of each response.
func (s *Source) Open(ctx context.Context) (source.Stream, error) {
	client, err := s.newClient(ctx)
	if err != nil {
		return nil, domain.AuthError("build github client", err)
	}

	limiter := rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), 1)
	return source.Paginate("", s.pageFunc(client, limiter), s.logger), nil
}

func (s *Source) newClient(ctx context.Context) (*gh.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.cfg.Token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = s.cfg.Timeout

	client := gh.NewClient(tc)
	if s.cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(s.cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		client.BaseURL = base
	}
	return client, nil
}

func (s *Source) pageFunc(client *gh.Client, limiter *rate.Limiter) source.PageFunc[string] {
	return func(ctx context.Context, query string) (domain.Batch, string, bool, error) {
		opts := &gh.ActivityListStarredOptions{
			Sort:        "created",
			Direction:   "desc",
			ListOptions: gh.ListOptions{PerPage: s.cfg.PerPage},
		}
		if query != "" {
			page, err := pageFromQuery(query)
			if err != nil {
				return nil, "", false, domain.FetchError("parse github cursor", err)
			}
			opts.Page = page
		}

		if err := limiter.Wait(ctx); err != nil {
			return nil, "", false, domain.FetchError("rate limit wait", err)
		}

		starred, resp, err := client.Activity.ListStarred(ctx, "", opts)
		if err != nil {
			return nil, "", false, domain.FetchError("list github stars", err)
		}

		batch := make(domain.Batch, 0, len(starred))
		for _, star := range starred {
			repo := star.GetRepository()
			if repo == nil {
				continue
			}
			batch = append(batch, domain.Item{
				Title: repo.GetFullName(),
				URL:   repo.GetHTMLURL(),
			})
		}

		next := NextPageQuery(resp.Header.Get("Link"))
		return batch, next, next != "", nil
	}
}
