package hn

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	storySelector = "tr.athing td.title span.titleline > a"
	moreSelector  = "a.morelink"
)

// Post is one story row of a listing page.
type Post struct {
	Title string
	URL   string
}

// Page is the parsed content of one listing page.
type Page struct {
	Posts []Post
	// MoreLink is the relative href of the "More" link, empty on the last page.
	MoreLink string
}

// ParsePage extracts the story rows and the "More" link from a listing page.
// Links to HN items are made absolute against baseURL.
func ParsePage(r io.Reader, baseURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &Page{}
	doc.Find(storySelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" {
			return
		}
		if strings.HasPrefix(href, "item?") {
			href = strings.TrimSuffix(baseURL, "/") + "/" + href
		}
		page.Posts = append(page.Posts, Post{
			Title: strings.TrimSpace(a.Text()),
			URL:   href,
		})
	})

	if more, ok := doc.Find(moreSelector).First().Attr("href"); ok {
		page.MoreLink = more
	}

	return page, nil
}
