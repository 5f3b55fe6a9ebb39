package assetcache

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"fintrack/internal/log"
)

// HeaderCache carries the Result of a cached or proxied response.
const HeaderCache = "X-Cache"

// Transport is an http.RoundTripper that applies the cache policy, for
// clients that want cached asset reads in-process.
type Transport struct {
	Cache *Cache
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, res, err := t.Cache.Fetch(req.Context(), req)
	if err != nil {
		return nil, err
	}
	resp.Header.Set(HeaderCache, string(res))
	return resp, nil
}

// forwardHeaders are copied from the incoming request to the origin.
var forwardHeaders = []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "User-Agent", "Cookie"}

// Handler serves every request from origin through the cache. Requests for
// the live API host must be addressed to it directly and are never seen
// here unless the API shares the origin, in which case apiPrefix routes
// them around the cache.
type Handler struct {
	cache     *Cache
	origin    *url.URL
	apiPrefix string
	logger    *log.Logger
}

func NewHandler(c *Cache, origin *url.URL, apiPrefix string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{cache: c, origin: origin, apiPrefix: apiPrefix, logger: logger.WithComponent(log.ComponentAssetCache)}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := h.origin.ResolveReference(&url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery})
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	for _, k := range forwardHeaders {
		if v := r.Header.Values(k); len(v) > 0 {
			out.Header[k] = v
		}
	}
	out.ContentLength = r.ContentLength

	var (
		resp *http.Response
		res  Result
	)
	if h.apiPrefix != "" && strings.HasPrefix(r.URL.Path, h.apiPrefix) {
		resp, err = h.cache.fetcher.Fetch(r.Context(), out)
		res = ResultBypass
	} else {
		resp, res, err = h.cache.Fetch(r.Context(), out)
	}
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Upstream fetch failed",
			log.FieldAssetURL, target.String(), log.FieldError, err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.Header().Set(HeaderCache, string(res))
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.DebugContext(r.Context(), "Response copy interrupted", log.FieldError, err)
	}
}
