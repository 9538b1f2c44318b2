package enrich

import (
	"context"
	"net/http"
	"time"
)

// FetchRequest describes a profile page fetch.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse captures the fetched page.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Fetcher retrieves a page, either over plain HTTP or through a browser.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error)
}

// Detector decides whether a static fetch response is a script shell that needs a
// headless render.
type Detector interface {
	ShouldPromote(resp FetchResponse) bool
}

// Limiter throttles requests per host.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}
