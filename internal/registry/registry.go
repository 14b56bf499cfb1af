// Package registry builds the set of known sources from configuration.
package registry

import (
	"log/slog"

	"karakeep_sync/internal/config"
	"karakeep_sync/internal/source"
	"karakeep_sync/internal/source/github"
	"karakeep_sync/internal/source/hn"
	"karakeep_sync/internal/source/pinboard"
	"karakeep_sync/internal/source/reddit"
)

// Sources constructs every known source, activated or not, in a fixed order:
// hn, reddit, github, pinboard.
func Sources(cfg *config.Config, logger *slog.Logger) []source.Source {
	timeout := cfg.HTTP.Timeout
	src := cfg.Sources

	return []source.Source{
		hn.New(hn.Config{
			Auth:     src.HN.Auth,
			Schedule: src.HN.Schedule,
			BaseURL:  src.HN.BaseURL,
			Timeout:  timeout,
		}, logger),
		reddit.New(reddit.Config{
			ClientID:     src.Reddit.ClientID,
			ClientSecret: src.Reddit.ClientSecret,
			RefreshToken: src.Reddit.RefreshToken,
			Schedule:     src.Reddit.Schedule,
			UserAgent:    src.Reddit.UserAgent,
			TokenURL:     src.Reddit.TokenURL,
			APIURL:       src.Reddit.APIURL,
			Timeout:      timeout,
		}, logger),
		github.New(github.Config{
			Token:             src.GitHub.Token,
			Schedule:          src.GitHub.Schedule,
			BaseURL:           src.GitHub.BaseURL,
			PerPage:           src.GitHub.PerPage,
			Timeout:           timeout,
			RequestsPerSecond: src.GitHub.RequestsPerSecond,
		}, logger),
		pinboard.New(pinboard.Config{
			Token:    src.Pinboard.Token,
			Schedule: src.Pinboard.Schedule,
			BaseURL:  src.Pinboard.BaseURL,
			Timeout:  timeout,
		}, logger),
	}
}

// Activated keeps the sources whose credentials are all present.
func Activated(sources []source.Source) []source.Source {
	var active []source.Source
	for _, s := range sources {
		if s.IsActivated() {
			active = append(active, s)
		}
	}
	return active
}
