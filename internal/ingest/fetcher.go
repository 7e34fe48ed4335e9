package ingest

import (
	"os"
	"strings"
)

// NewFetcherFromEnv picks the fetcher implementation. SCRAPER_FETCHER=colly
// selects the Colly backend, SCRAPER_FETCHER=plain the single-shot fetcher
// with no pacing or retries; anything else gets the default rate-limited
// HTTP fetcher.
func NewFetcherFromEnv(cfg FetchConfig) Fetcher {
	switch strings.ToLower(os.Getenv("SCRAPER_FETCHER")) {
	case "colly":
		return CollyFetcherWithConfig(cfg)
	case "plain":
		return NewHTTPFetcher()
	default:
		return NewRateLimitedFetcher(cfg)
	}
}
