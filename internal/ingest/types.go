package ingest

import (
	"context"
	"io"
	"time"
)

// FetchedDocument is the raw result of a fetch. Body is owned by the caller.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
	Headers     map[string][]string
}

// Fetcher retrieves raw content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}

// FetchConfig tunes fetch behavior.
type FetchConfig struct {
	TimeoutSeconds int
	MaxRetries     int
	RateLimitRPS   float64
	AcceptLanguage string
	ProxyURL       string
}
