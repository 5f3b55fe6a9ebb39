package assetcache

import (
	"context"
	"net/http"
	"time"
)

// Fetcher performs the network side of a request.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

func (f FetcherFunc) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// HTTPFetcher fetches with a plain http.Client. The client must not itself
// route through a cache Transport.
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	c := f.Client
	if c == nil {
		c = http.DefaultClient
	}
	out := req.Clone(ctx)
	out.RequestURI = ""
	return c.Do(out)
}
