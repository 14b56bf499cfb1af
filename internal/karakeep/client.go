// Package karakeep is a minimal client for the Karakeep bookmark server API,
// covering the list and bookmark operations the sync engine needs.
package karakeep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"karakeep_sync/internal/domain"
)

// Config holds Karakeep client configuration.
type Config struct {
	URL             string
	Token           string
	ListDescription string
	ListIcon        string
	Timeout         time.Duration
}

type Client struct {
	baseURL         string
	token           string
	listDescription string
	listIcon        string
	httpClient      *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:         strings.TrimSuffix(cfg.URL, "/"),
		token:           cfg.Token,
		listDescription: cfg.ListDescription,
		listIcon:        cfg.ListIcon,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listsResponse struct {
	Lists []List `json:"lists"`
}

type createListRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon"`
}

type Bookmark struct {
	ID      string          `json:"id"`
	Content BookmarkContent `json:"content"`
}

type BookmarkContent struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type searchResponse struct {
	Bookmarks []Bookmark `json:"bookmarks"`
}

type createBookmarkRequest struct {
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type idResponse struct {
	ID string `json:"id"`
}

// HealthCheck verifies the server is reachable and the token is accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/api/v1/lists", nil, nil); err != nil {
		return domain.SinkError("health check", err)
	}
	return nil
}

// EnsureList returns the id of the list called name, creating it when absent.
func (c *Client) EnsureList(ctx context.Context, name string) (string, error) {
	var lists listsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/lists", nil, &lists); err != nil {
		return "", domain.SinkError("get lists", err)
	}

	for _, l := range lists.Lists {
		if l.Name == name && l.ID != "" {
			return l.ID, nil
		}
	}

	var created idResponse
	req := createListRequest{Name: name, Description: c.listDescription, Icon: c.listIcon}
	if err := c.do(ctx, http.MethodPost, "/api/v1/lists", req, &created); err != nil {
		return "", domain.SinkError("create list", err)
	}
	if created.ID == "" {
		return "", domain.SinkError("create list", errors.New("response did not contain an id"))
	}
	return created.ID, nil
}

// FindBookmarkByURL returns the id of the bookmark whose URL equals rawURL.
// Only the top search hit is considered; a malformed URL on either side is
// reported as not found.
func (c *Client) FindBookmarkByURL(ctx context.Context, rawURL string) (string, bool, error) {
	query := url.Values{
		"q":              {rawURL},
		"includeContent": {"false"},
		"limit":          {"1"},
	}

	var result searchResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/bookmarks/search?"+query.Encode(), nil, &result); err != nil {
		return "", false, domain.SinkError("search bookmarks", err)
	}

	if len(result.Bookmarks) == 0 {
		return "", false, nil
	}

	top := result.Bookmarks[0]
	if top.ID == "" || !SameURL(rawURL, top.Content.URL) {
		return "", false, nil
	}
	return top.ID, true, nil
}

// CreateBookmark creates a link bookmark and returns its id.
func (c *Client) CreateBookmark(ctx context.Context, item domain.Item) (string, error) {
	req := createBookmarkRequest{
		Type:      "link",
		Title:     item.Title,
		URL:       item.URL,
		CreatedAt: item.CreatedAt,
	}

	var created idResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/bookmarks", req, &created); err != nil {
		return "", domain.SinkError("create bookmark", err)
	}
	if created.ID == "" {
		return "", domain.SinkError("create bookmark", errors.New("response did not contain an id"))
	}
	return created.ID, nil
}

// AddBookmarkToList puts the bookmark in the list. Adding a bookmark that is
// already a member is not an error.
func (c *Client) AddBookmarkToList(ctx context.Context, bookmarkID, listID string) error {
	path := fmt.Sprintf("/api/v1/lists/%s/bookmarks/%s", url.PathEscape(listID), url.PathEscape(bookmarkID))
	if err := c.do(ctx, http.MethodPut, path, nil, nil); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
			return nil
		}
		return domain.SinkError("add bookmark to list", err)
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d - %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
