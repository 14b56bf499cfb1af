package hn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"karakeep_sync/internal/domain"
	"karakeep_sync/internal/source"
)

const (
	SourceID = "hn"
	ListName = "HN Upvoted"
)

// Config holds HN source configuration.
type Config struct {
	// Auth is the raw value of the HN "user" cookie: "<username>&<hash>".
	Auth     string
	Schedule string
	BaseURL  string
	Timeout  time.Duration
}

// Source implements source.Source for the upvoted page of an HN account.
type Source struct {
	auth     string
	schedule string
	baseURL  string
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a new HN source.
func New(cfg Config, logger *slog.Logger) *Source {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = source.DefaultSchedule
	}
	return &Source{
		auth:     cfg.Auth,
		schedule: schedule,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		timeout:  cfg.Timeout,
		logger:   logger.With("source", SourceID),
	}
}

func (s *Source) ID() string {
	return SourceID
}

func (s *Source) ListName() string {
	return ListName
}

func (s *Source) IsActivated() bool {
	return s.auth != ""
}

func (s *Source) Schedule() string {
	return s.schedule
}

// Open builds a cookie session and streams the upvoted pages, newest first.
func (s *Source) Open(ctx context.Context) (source.Stream, error) {
	username, err := usernameFromAuth(s.auth)
	if err != nil {
		return nil, domain.AuthError("extract hn username", err)
	}

	client, err := s.newClient()
	if err != nil {
		return nil, domain.AuthError("build hn session", err)
	}

	start := "upvoted?id=" + url.QueryEscape(username)
	return source.Paginate(start, s.pageFunc(client), s.logger), nil
}

func (s *Source) newClient() (*http.Client, error) {
	if strings.ContainsAny(s.auth, "; \t\r\n\"\\") {
		return nil, errors.New("malformed auth cookie value")
	}

	base, err := url.Parse(s.baseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", s.baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	jar.SetCookies(base, []*http.Cookie{{
		Name:   "user",
		Value:  s.auth,
		Domain: base.Hostname(),
		Path:   "/",
	}})

	return &http.Client{
		Jar:     jar,
		Timeout: s.timeout,
	}, nil
}

func (s *Source) pageFunc(client *http.Client) source.PageFunc[string] {
	return func(ctx context.Context, path string) (domain.Batch, string, bool, error) {
		page, err := s.fetchPage(ctx, client, path)
		if err != nil {
			return nil, "", false, domain.FetchError("fetch hn page", err)
		}

		batch := make(domain.Batch, 0, len(page.Posts))
		for _, post := range page.Posts {
			// HN does not expose when a story was upvoted.
			batch = append(batch, domain.Item{Title: post.Title, URL: post.URL})
		}

		return batch, page.MoreLink, page.MoreLink != "", nil
	}
}

func (s *Source) fetchPage(ctx context.Context, client *http.Client, path string) (*Page, error) {
	pageURL := s.baseURL + "/" + strings.TrimPrefix(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "karakeep-sync/0.1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	page, err := ParsePage(resp.Body, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return page, nil
}

// usernameFromAuth returns the account name part of the user cookie.
func usernameFromAuth(auth string) (string, error) {
	username, _, _ := strings.Cut(auth, "&")
	if username == "" {
		return "", errors.New("auth token has no username")
	}
	return username, nil
}
