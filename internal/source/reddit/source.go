package reddit

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

	"golang.org/x/oauth2"

	"karakeep_sync/internal/domain"
	"karakeep_sync/internal/source"
)

const (
	SourceID = "reddit"
	ListName = "Reddit Saved"

	permalinkBase = "https://reddit.com"
	untitled      = "(unknown title reddit post)"
)

// Config holds Reddit source configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Schedule     string
	UserAgent    string
	TokenURL     string
	APIURL       string
	Timeout      time.Duration
}

// Source implements source.Source for the saved items of a Reddit account.
type Source struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a new Reddit source.
func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.Schedule == "" {
		cfg.Schedule = source.DefaultSchedule
	}
	cfg.APIURL = strings.TrimSuffix(cfg.APIURL, "/")
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
	return s.cfg.ClientID != "" && s.cfg.ClientSecret != "" && s.cfg.RefreshToken != ""
}

func (s *Source) Schedule() string {
	return s.cfg.Schedule
}

// Open exchanges the refresh token for an access token, resolves the account
// name and streams its saved listing using the "after" cursor.
func (s *Source) Open(ctx context.Context) (source.Stream, error) {
	client, err := s.authorize(ctx)
	if err != nil {
		return nil, domain.AuthError("refresh reddit token", err)
	}

	username, err := s.username(ctx, client)
	if err != nil {
		return nil, domain.AuthError("resolve reddit user", err)
	}

	s.logger.Debug("authorized", "username", username)

	return source.Paginate("", s.pageFunc(client, username), s.logger), nil
}

func (s *Source) authorize(ctx context.Context) (*http.Client, error) {
	conf := &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  s.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	base := &http.Client{
		Timeout:   s.cfg.Timeout,
		Transport: &userAgentTransport{agent: s.cfg.UserAgent, next: http.DefaultTransport},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: s.cfg.RefreshToken})
	token, err := ts.Token()
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, ts))
	client.Timeout = s.cfg.Timeout
	return client, nil
}

func (s *Source) username(ctx context.Context, client *http.Client) (string, error) {
	var me identity
	if err := s.getJSON(ctx, client, s.cfg.APIURL+"/api/v1/me", &me); err != nil {
		return "", err
	}
	if me.Name == "" {
		return "", errors.New("identity response has no name")
	}
	return me.Name, nil
}

func (s *Source) pageFunc(client *http.Client, username string) source.PageFunc[string] {
	endpoint := fmt.Sprintf("%s/user/%s/saved", s.cfg.APIURL, url.PathEscape(username))

	return func(ctx context.Context, after string) (domain.Batch, string, bool, error) {
		pageURL := endpoint
		if after != "" {
			pageURL += "?" + url.Values{"after": {after}}.Encode()
		}

		var listing Listing
		if err := s.getJSON(ctx, client, pageURL, &listing); err != nil {
			return nil, "", false, domain.FetchError("list reddit saved", err)
		}

		batch := make(domain.Batch, 0, len(listing.Data.Children))
		for _, child := range listing.Data.Children {
			batch = append(batch, toItem(child.Data))
		}

		next := ""
		if listing.Data.After != nil {
			next = *listing.Data.After
		}
		return batch, next, next != "", nil
	}
}

func toItem(data ChildData) domain.Item {
	title := untitled
	if data.Title != nil {
		title = *data.Title
	}
	return domain.Item{
		Title: title,
		URL:   permalinkBase + data.Permalink,
	}
}

func (s *Source) getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// userAgentTransport sets the User-Agent Reddit requires on every request,
// the token exchange included.
type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.agent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.next.RoundTrip(req)
}
