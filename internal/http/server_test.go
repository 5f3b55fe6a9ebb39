package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/assetcache"
	"fintrack/internal/log"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, opts ...Option) (*Server, *assetcache.Cache) {
	t.Helper()
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>shell</html>")
	}))
	t.Cleanup(origin.Close)

	u, err := url.Parse(origin.URL)
	require.NoError(t, err)
	manifest, err := assetcache.ResolveManifest(u, []string{"/"})
	require.NoError(t, err)

	c := assetcache.New(assetcache.NewMemoryStorage(), assetcache.NewHTTPFetcher(5*time.Second),
		assetcache.Config{Manifest: manifest}, log.Discard())
	proxy := assetcache.NewHandler(c, u, "/api/", log.Discard())

	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	srv := NewServer(":0", c, proxy, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, c
}

func serve(srv *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader("")))
	return rec
}

func TestHealthAndReady(t *testing.T) {
	srv, c := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = serve(srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "no active generation yet")

	_, err := c.Upgrade(context.Background(), "v1", nil)
	require.NoError(t, err)

	rec = serve(srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())
}

func TestReadyChecksPinger(t *testing.T) {
	srv, c := newTestServer(t, WithPinger(fakePinger{err: errors.New("db down")}))
	_, err := c.Upgrade(context.Background(), "v1", nil)
	require.NoError(t, err)

	rec := serve(srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "data gateway unavailable")
}

func TestShellServedThroughCache(t *testing.T) {
	srv, c := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/")
	assert.Equal(t, string(assetcache.ResultPass), rec.Header().Get(assetcache.HeaderCache))

	_, err := c.Upgrade(context.Background(), "v1", nil)
	require.NoError(t, err)

	rec = serve(srv, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(assetcache.ResultHit), rec.Header().Get(assetcache.HeaderCache))
	assert.Equal(t, "<html>shell</html>", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/healthz")
	assert.True(t, strings.HasPrefix(rec.Header().Get(headerRequestID), "req_"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}

func TestWriteRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, WithWriteLimit(2))

	for i := 0; i < 2; i++ {
		rec := serve(srv, http.MethodPost, "/api/expenses")
		assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
	}
	rec := serve(srv, http.MethodPost, "/api/expenses")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = serve(srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code, "reads are not limited")
	assert.EqualValues(t, 1, srv.SecurityStats().RateLimitHits)
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(1)
	defer rl.stop()
	now := time.Now()

	assert.True(t, rl.allowAt("1.2.3.4", now, nil))
	assert.False(t, rl.allowAt("1.2.3.4", now.Add(time.Second), nil))
	assert.True(t, rl.allowAt("5.6.7.8", now.Add(time.Second), nil))
	assert.True(t, rl.allowAt("1.2.3.4", now.Add(2*time.Minute), nil))

	rl.cleanupStaleEntries(now.Add(time.Hour))
	assert.Empty(t, rl.clients)
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.7:5000", "", "203.0.113.7"},
		{"trusted proxy forwards", "10.0.0.2:5000", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"untrusted proxy ignored", "203.0.113.7:5000", "198.51.100.1", "203.0.113.7"},
		{"invalid forwarded value", "127.0.0.1:5000", "not-an-ip", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, extractClientIP(r))
		})
	}
}

func TestSuspiciousRequestsAreCountedNotBlocked(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/healthz?file=../../etc/passwd")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, srv.SecurityStats().SuspiciousRequests)

	m := &securityMetrics{}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", "sqlmap/1.7")
	assert.True(t, detectSuspiciousRequest(r, m))
	assert.False(t, detectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/app.js", nil), m))
}
