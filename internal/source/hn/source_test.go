package hn

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karakeep_sync/internal/domain"
	"karakeep_sync/internal/testutil"
)

const pageWithMore = `
<html>
<body>
<table>
	<tr class="athing">
		<td class="title">
			<span class="titleline">
				<a href="https://example.com/story1">First Story Title</a>
			</span>
		</td>
	</tr>
	<tr class="athing">
		<td class="title">
			<span class="titleline">
				<a href="item?id=42">Ask HN: Second Story</a>
			</span>
		</td>
	</tr>
</table>
<a class="morelink" href="?p=2">More</a>
</body>
</html>`

func storyPage(url, title, more string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table><tr class="athing"><td class="title"><span class="titleline">`)
	fmt.Fprintf(&b, `<a href="%s">%s</a>`, url, title)
	b.WriteString(`</span></td></tr></table>`)
	if more != "" {
		fmt.Fprintf(&b, `<a class="morelink" href="%s">More</a>`, more)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func newSource(baseURL, auth string) *Source {
	return New(Config{
		Auth:    auth,
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}, testutil.Logger())
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage(strings.NewReader(pageWithMore), "https://news.ycombinator.com")
	require.NoError(t, err)

	require.Len(t, page.Posts, 2)
	assert.Equal(t, Post{Title: "First Story Title", URL: "https://example.com/story1"}, page.Posts[0])
	assert.Equal(t, "https://news.ycombinator.com/item?id=42", page.Posts[1].URL)
	assert.Equal(t, "?p=2", page.MoreLink)
}

func TestParsePage_NoMoreLink(t *testing.T) {
	page, err := ParsePage(strings.NewReader(storyPage("https://example.com/last", "Last Story", "")), "https://news.ycombinator.com")
	require.NoError(t, err)

	assert.Len(t, page.Posts, 1)
	assert.Empty(t, page.MoreLink)
}

func TestParsePage_UnrelatedMarkup(t *testing.T) {
	page, err := ParsePage(strings.NewReader("<html><body><div>nothing here</div></body></html>"), "https://news.ycombinator.com")
	require.NoError(t, err)

	assert.Empty(t, page.Posts)
	assert.Empty(t, page.MoreLink)
}

func TestSource_Activation(t *testing.T) {
	assert.False(t, newSource("https://news.ycombinator.com", "").IsActivated())

	s := newSource("https://news.ycombinator.com", "alice&abc")
	assert.True(t, s.IsActivated())
	assert.Equal(t, "@daily", s.Schedule())
	assert.Equal(t, "HN Upvoted", s.ListName())
}

func TestSource_StreamFollowsMoreLink(t *testing.T) {
	var cookies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies = append(cookies, r.Header.Get("Cookie"))
		switch {
		case r.URL.Path == "/upvoted" && r.URL.Query().Get("id") == "alice":
			fmt.Fprint(w, storyPage("https://example.com/story1", "Story 1", "?p=2"))
		case r.URL.Path == "/" && r.URL.Query().Get("p") == "2":
			fmt.Fprint(w, storyPage("https://example.com/story2", "Story 2", ""))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	stream, err := newSource(srv.URL, "alice&abc").Open(context.Background())
	require.NoError(t, err)

	batches := testutil.CollectBatches(context.Background(), stream)

	require.Len(t, batches, 2)
	assert.Equal(t, []int{1, 1}, testutil.BatchSizes(batches))
	assert.Equal(t, "https://example.com/story1", batches[0][0].URL)
	assert.Equal(t, "Story 2", batches[1][0].Title)
	assert.Nil(t, batches[1][0].CreatedAt)
	assert.NoError(t, stream.Err())
	assert.Equal(t, []string{"user=alice&abc", "user=alice&abc"}, cookies)
}

func TestSource_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, storyPage("https://example.com/single", "Single", ""))
	}))
	defer srv.Close()

	stream, err := newSource(srv.URL, "alice&abc").Open(context.Background())
	require.NoError(t, err)

	batches := testutil.CollectBatches(context.Background(), stream)
	assert.Equal(t, []int{1}, testutil.BatchSizes(batches))
}

func TestSource_HTTPErrorEndsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	stream, err := newSource(srv.URL, "alice&abc").Open(context.Background())
	require.NoError(t, err)

	batches := testutil.CollectBatches(context.Background(), stream)

	assert.Empty(t, batches)
	assert.ErrorIs(t, stream.Err(), domain.ErrFetch)
}

func TestSource_MidStreamFailureShortensStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("p") == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, storyPage("https://example.com/story1", "Story 1", "?p=2"))
	}))
	defer srv.Close()

	stream, err := newSource(srv.URL, "alice&abc").Open(context.Background())
	require.NoError(t, err)

	batches := testutil.CollectBatches(context.Background(), stream)

	assert.Equal(t, []int{1}, testutil.BatchSizes(batches))
	assert.ErrorIs(t, stream.Err(), domain.ErrFetch)
}

func TestSource_OpenRejectsBadAuth(t *testing.T) {
	_, err := newSource("https://news.ycombinator.com", "&hash").Open(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuth)

	_, err = newSource("https://news.ycombinator.com", "alice&a;b").Open(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestUsernameFromAuth(t *testing.T) {
	name, err := usernameFromAuth("alice&0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	name, err = usernameFromAuth("bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", name)
}
