package assetcache

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/log"
)

func newOriginServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var apiCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/javascript")
		_, _ = io.WriteString(w, "console.log('shell')")
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"method":"`+r.Method+`"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &apiCalls
}

func TestHandlerServesFromCache(t *testing.T) {
	srv, apiCalls := newOriginServer(t)
	origin, err := url.Parse(srv.URL)
	require.NoError(t, err)
	manifest, err := ResolveManifest(origin, []string{"/app.js"})
	require.NoError(t, err)

	c := New(NewMemoryStorage(), NewHTTPFetcher(5*time.Second), Config{Manifest: manifest}, log.Discard())
	t.Cleanup(c.Wait)
	ctx := context.Background()
	_, err = c.Upgrade(ctx, "v1", nil)
	require.NoError(t, err)

	h := NewHandler(c, origin, "/api/", log.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(ResultHit), rec.Header().Get(HeaderCache))
	assert.Equal(t, "console.log('shell')", rec.Body.String())

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/expenses", strings.NewReader("{}")))
		assert.Equal(t, string(ResultBypass), rec.Header().Get(HeaderCache))
		assert.JSONEq(t, `{"method":"`+method+`"}`, rec.Body.String())
	}
	assert.EqualValues(t, 2, apiCalls.Load())

	c.Wait()
	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	for _, k := range snap["v1"] {
		assert.NotContains(t, k, "/api/")
	}
}

func TestHandlerUpstreamDown(t *testing.T) {
	origin, err := url.Parse("http://127.0.0.1:1")
	require.NoError(t, err)
	c := New(NewMemoryStorage(), NewHTTPFetcher(time.Second), Config{}, log.Discard())
	h := NewHandler(c, origin, "", log.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTransport(t *testing.T) {
	srv, _ := newOriginServer(t)
	c := New(NewMemoryStorage(), NewHTTPFetcher(5*time.Second), Config{Manifest: []string{srv.URL + "/app.js"}}, log.Discard())
	t.Cleanup(c.Wait)
	_, err := c.Upgrade(context.Background(), "v1", nil)
	require.NoError(t, err)

	client := &http.Client{Transport: &Transport{Cache: c}}
	resp, err := client.Get(srv.URL + "/app.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, string(ResultHit), resp.Header.Get(HeaderCache))
}
