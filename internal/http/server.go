// Package http serves the application shell through the offline asset cache
// and exposes health probes.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/assetcache"
	"fintrack/internal/gateway"
	"fintrack/internal/log"
)

const headerRequestID = "X-Request-ID"

type Server struct {
	http.Server
	cache   *assetcache.Cache
	pinger  gateway.Pinger
	logger  *log.Logger
	limiter *rateLimiter
	metrics *securityMetrics

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithPinger makes /readyz also probe the data gateway.
func WithPinger(p gateway.Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentHTTP)
		}
	}
}

// WithWriteLimit caps non-GET requests per client per minute.
func WithWriteLimit(perMinute int) Option {
	return func(s *Server) { s.limiter.limit = perMinute }
}

// NewServer routes the probes and sends everything else to proxy, normally
// an assetcache.Handler over cache.
func NewServer(addr string, cache *assetcache.Cache, proxy http.Handler, opts ...Option) *Server {
	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		cache:   cache,
		logger:  log.Default().WithComponent(log.ComponentHTTP),
		limiter: newRateLimiter(60),
		metrics: &securityMetrics{},
	}
	for _, o := range opts {
		o(s)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/", proxy)

	s.Handler = s.withRequestID(
		log.Middleware(s.logger)(
			log.RequestIDMiddleware(func(r *http.Request) string { return r.Header.Get(headerRequestID) })(
				s.withAccessLog(mux))))
	return s
}

// withRequestID keeps an incoming X-Request-ID or assigns one, and echoes it.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > 64 {
			id = generateRequestID()
			r.Header.Set(headerRequestID, id)
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		access := log.NewStructuredLogger(log.FromContext(ctx))
		clientIP := extractClientIP(r)
		access.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			log.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead && !s.limiter.allow(clientIP, s.metrics) {
			log.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		access.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP,
			rw.Header().Get(assetcache.HeaderCache))
	})
}

// Shutdown stops accepting requests, then waits for background cache
// revalidations.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
		if s.cache != nil {
			done := make(chan struct{})
			go func() {
				s.cache.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
				s.logger.WarnContext(ctx, "Background revalidations still running at shutdown")
			}
		}
	})
	return err
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once a cache generation is active and, when
// configured, the gateway answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		if err := s.cache.Ready(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Gateway not ready", log.FieldError, err)
			http.Error(w, "data gateway unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
