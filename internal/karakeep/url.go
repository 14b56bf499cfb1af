package karakeep

import (
	"net/url"
	"strings"
)

// SameURL reports whether a and b point at the same resource: scheme and host
// compare case-insensitively with default ports dropped, path and query
// exactly. An empty path equals "/".
// Anything that does not parse as an absolute URL matches nothing.
func SameURL(a, b string) bool {
	ua, ok := parseAbsolute(a)
	if !ok {
		return false
	}
	ub, ok := parseAbsolute(b)
	if !ok {
		return false
	}

	return ua.Scheme == ub.Scheme &&
		ua.User.String() == ub.User.String() &&
		ua.Host == ub.Host &&
		ua.EscapedPath() == ub.EscapedPath() &&
		ua.RawQuery == ub.RawQuery
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

func parseAbsolute(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, false
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); port != "" && defaultPorts[u.Scheme] == port {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u, true
}
