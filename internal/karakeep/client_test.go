package karakeep

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"karakeep_sync/internal/domain"
	"karakeep_sync/internal/testutil"
)

type ClientTestSuite struct {
	suite.Suite
	srv    *httptest.Server
	mux    *http.ServeMux
	client *Client
	ctx    context.Context
}

func (s *ClientTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.mux = http.NewServeMux()
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.mux.ServeHTTP(w, r)
	}))
	s.client = NewClient(Config{
		URL:             s.srv.URL + "/",
		Token:           "secret",
		ListDescription: "Auto-created list from karakeep-sync",
		ListIcon:        "🚀",
		Timeout:         5 * time.Second,
	})
}

func (s *ClientTestSuite) TearDownTest() {
	s.srv.Close()
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *ClientTestSuite) TestEnsureList_Existing() {
	s.mux.HandleFunc("GET /api/v1/lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"lists": []List{
			{ID: "l1", Name: "Reddit Saved"},
			{ID: "l2", Name: "HN Upvoted"},
		}})
	})
	s.mux.HandleFunc("POST /api/v1/lists", func(w http.ResponseWriter, r *http.Request) {
		s.Fail("list must not be created")
	})

	id, err := s.client.EnsureList(s.ctx, "HN Upvoted")

	s.NoError(err)
	s.Equal("l2", id)
}

func (s *ClientTestSuite) TestEnsureList_CreatesMissing() {
	var created createListRequest
	s.mux.HandleFunc("GET /api/v1/lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"lists": []List{}})
	})
	s.mux.HandleFunc("POST /api/v1/lists", func(w http.ResponseWriter, r *http.Request) {
		s.NoError(json.NewDecoder(r.Body).Decode(&created))
		writeJSON(w, http.StatusCreated, map[string]string{"id": "new-list"})
	})

	id, err := s.client.EnsureList(s.ctx, "Pinboard")

	s.NoError(err)
	s.Equal("new-list", id)
	s.Equal("Pinboard", created.Name)
	s.Equal("Auto-created list from karakeep-sync", created.Description)
	s.Equal("🚀", created.Icon)
}

func (s *ClientTestSuite) TestEnsureList_CreateWithoutID() {
	s.mux.HandleFunc("GET /api/v1/lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"lists": []List{}})
	})
	s.mux.HandleFunc("POST /api/v1/lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"name": "Pinboard"})
	})

	_, err := s.client.EnsureList(s.ctx, "Pinboard")

	s.ErrorIs(err, domain.ErrSink)
}

func (s *ClientTestSuite) searchReturns(bookmarks ...Bookmark) *string {
	var query string
	s.mux.HandleFunc("GET /api/v1/bookmarks/search", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		s.Equal("false", r.URL.Query().Get("includeContent"))
		s.Equal("1", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{"bookmarks": bookmarks})
	})
	return &query
}

func (s *ClientTestSuite) TestFindBookmarkByURL_Match() {
	query := s.searchReturns(Bookmark{ID: "b1", Content: BookmarkContent{Type: "link", URL: "HTTP://x.com/a?b=1"}})

	id, found, err := s.client.FindBookmarkByURL(s.ctx, "http://x.com/a?b=1")

	s.NoError(err)
	s.True(found)
	s.Equal("b1", id)
	s.Contains(*query, "q=http%3A%2F%2Fx.com%2Fa%3Fb%3D1")
}

func (s *ClientTestSuite) TestFindBookmarkByURL_TopHitDiffers() {
	s.searchReturns(Bookmark{ID: "b1", Content: BookmarkContent{URL: "http://x.com/a?b=2"}})

	_, found, err := s.client.FindBookmarkByURL(s.ctx, "http://x.com/a?b=1")

	s.NoError(err)
	s.False(found)
}

func (s *ClientTestSuite) TestFindBookmarkByURL_MalformedIsNoMatch() {
	s.searchReturns(Bookmark{ID: "b1", Content: BookmarkContent{URL: "http://[::1"}})

	_, found, err := s.client.FindBookmarkByURL(s.ctx, "http://x.com/a")

	s.NoError(err)
	s.False(found)
}

func (s *ClientTestSuite) TestFindBookmarkByURL_NoResults() {
	s.searchReturns()

	_, found, err := s.client.FindBookmarkByURL(s.ctx, "http://x.com/a")

	s.NoError(err)
	s.False(found)
}

func (s *ClientTestSuite) TestFindBookmarkByURL_ServerError() {
	s.mux.HandleFunc("GET /api/v1/bookmarks/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, _, err := s.client.FindBookmarkByURL(s.ctx, "http://x.com/a")

	s.ErrorIs(err, domain.ErrSink)
}

func (s *ClientTestSuite) TestCreateBookmark() {
	var body map[string]any
	s.mux.HandleFunc("POST /api/v1/bookmarks", func(w http.ResponseWriter, r *http.Request) {
		s.NoError(json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, map[string]string{"id": "b9"})
	})

	created := time.Date(2023, 11, 14, 8, 30, 0, 0, time.UTC)
	id, err := s.client.CreateBookmark(s.ctx, domain.Item{
		Title:     "Go",
		URL:       "https://go.dev",
		CreatedAt: testutil.Ptr(created),
	})

	s.NoError(err)
	s.Equal("b9", id)
	s.Equal("link", body["type"])
	s.Equal("Go", body["title"])
	s.Equal("https://go.dev", body["url"])
	s.Equal("2023-11-14T08:30:00Z", body["createdAt"])
}

func (s *ClientTestSuite) TestCreateBookmark_MissingID() {
	s.mux.HandleFunc("POST /api/v1/bookmarks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
	})

	_, err := s.client.CreateBookmark(s.ctx, domain.Item{Title: "Go", URL: "https://go.dev"})

	s.ErrorIs(err, domain.ErrSink)
	s.Contains(err.Error(), "did not contain an id")
}

func (s *ClientTestSuite) TestAddBookmarkToList() {
	var calls int
	s.mux.HandleFunc("PUT /api/v1/lists/l1/bookmarks/b1", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	})

	s.NoError(s.client.AddBookmarkToList(s.ctx, "b1", "l1"))
	s.Equal(1, calls)
}

func (s *ClientTestSuite) TestAddBookmarkToList_AlreadyMember() {
	s.mux.HandleFunc("PUT /api/v1/lists/l1/bookmarks/b1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	s.NoError(s.client.AddBookmarkToList(s.ctx, "b1", "l1"))
}

func (s *ClientTestSuite) TestAddBookmarkToList_Failure() {
	s.mux.HandleFunc("PUT /api/v1/lists/l1/bookmarks/b1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := s.client.AddBookmarkToList(s.ctx, "b1", "l1")

	s.ErrorIs(err, domain.ErrSink)
}

func (s *ClientTestSuite) TestHealthCheck_Unauthorized() {
	client := NewClient(Config{URL: s.srv.URL, Token: "wrong", Timeout: time.Second})

	err := client.HealthCheck(s.ctx)

	s.ErrorIs(err, domain.ErrSink)
	s.Contains(err.Error(), "401")
}
