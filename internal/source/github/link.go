package github

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// linkRegex matches Link header entries: <url>; rel="type".
var linkRegex = regexp.MustCompile(`<([^>]+)>;\s*rel="([^"]+)"`)

// ParseNextLink extracts the "next" URL from a Link header.
// Returns empty string if no next link is found.
func ParseNextLink(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}

	for _, part := range strings.Split(linkHeader, ",") {
		matches := linkRegex.FindStringSubmatch(strings.TrimSpace(part))
		if len(matches) == 3 && matches[2] == "next" {
			return matches[1]
		}
	}

	return ""
}

// NextPageQuery reduces the "next" link of a Link header to its query string,
// "?page=2" for example. It returns "" when there is no next page.
func NextPageQuery(linkHeader string) string {
	next := ParseNextLink(linkHeader)
	if next == "" {
		return ""
	}

	u, err := url.Parse(next)
	if err != nil || u.RawQuery == "" {
		return ""
	}
	return "?" + u.RawQuery
}

// pageFromQuery reads the page number out of a continuation query.
func pageFromQuery(query string) (int, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(values.Get("page"))
}
