// Package assetcache keeps the static application shell available without a
// network round trip.
//
// Assets live in generations named by a version tag. Install populates a
// generation from the manifest, all or nothing. Activate makes it the only
// generation consulted and deletes every other one. Lookups against the
// active generation are stale-while-revalidate: a stored response is
// returned at once while a background fetch refreshes it for the next
// request. Requests to the live data API, and anything but GET, never touch
// the cache.
package assetcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/log"
)

var (
	ErrCacheInstallFailed = errors.New("cache install failed")
	ErrNoActiveGeneration = errors.New("no active cache generation")
	ErrGenerationActive   = errors.New("generation is already active")
	ErrInstallInProgress  = errors.New("generation install already in progress")
	ErrGenerationNotFound = errors.New("generation not installed")
	ErrTooLarge           = errors.New("response too large to cache")
	errUnsuccessfulStatus = errors.New("unsuccessful status")
)

// InstallError reports the asset that made an install fail.
type InstallError struct {
	Version string
	Asset   string
	Err     error
}

func (e *InstallError) Error() string {
	if e.Asset == "" {
		return fmt.Sprintf("install %s: %v", e.Version, e.Err)
	}
	return fmt.Sprintf("install %s: %s: %v", e.Version, e.Asset, e.Err)
}

func (e *InstallError) Unwrap() []error { return []error{ErrCacheInstallFailed, e.Err} }

type State int

const (
	StateUnknown State = iota
	StateInstalling
	StateInstalled
	StateActive
	StateEvicted
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActive:
		return "active"
	case StateEvicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// Result says how a request was satisfied.
type Result string

const (
	ResultBypass Result = "BYPASS" // live API or non-GET, never cached
	ResultPass   Result = "PASS"   // no active generation
	ResultHit    Result = "HIT"    // served from the active generation
	ResultMiss   Result = "MISS"   // fetched from the network
)

type Config struct {
	// APIHosts are the live data-API hosts. A bare host matches any port;
	// "host:port" matches exactly.
	APIHosts []string
	// Manifest is the absolute asset URL list populated on install.
	Manifest []string
	// InstallConcurrency bounds parallel fetches during install.
	InstallConcurrency int
	MaxEntryBytes      int64
}

// Progress is called after each manifest asset is fetched during install.
type Progress func(done, total int)

type Cache struct {
	storage Storage
	fetcher Fetcher
	cfg     Config
	logger  *log.Logger

	mu     sync.RWMutex
	active string
	states map[string]State

	group singleflight.Group
	bg    sync.WaitGroup
}

func New(storage Storage, fetcher Fetcher, cfg Config, logger *log.Logger) *Cache {
	if cfg.InstallConcurrency <= 0 {
		cfg.InstallConcurrency = 4
	}
	if cfg.MaxEntryBytes <= 0 {
		cfg.MaxEntryBytes = DefaultMaxEntryBytes
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		storage: storage,
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.WithComponent(log.ComponentAssetCache),
		states:  map[string]State{},
	}
}

// Restore picks up the active generation recorded in storage, if any.
func (c *Cache) Restore(ctx context.Context) error {
	tag, ok, err := c.storage.Active(ctx)
	if err != nil {
		return fmt.Errorf("restore active generation: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.active = tag
		c.states[tag] = StateActive
	}
	return nil
}

func (c *Cache) Active() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

func (c *Cache) State(tag string) State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.states[tag]
}

// Manifest returns the configured asset list.
func (c *Cache) Manifest() []string { return slices.Clone(c.cfg.Manifest) }

// Install fetches every manifest asset and stores them under tag. Nothing is
// written until all fetches succeeded; a failed write removes the partial
// generation. Installing over the active tag is rejected.
func (c *Cache) Install(ctx context.Context, tag string, progress Progress) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return &InstallError{Version: tag, Err: errors.New("empty version tag")}
	}
	c.mu.Lock()
	switch {
	case tag == c.active:
		c.mu.Unlock()
		return &InstallError{Version: tag, Err: ErrGenerationActive}
	case c.states[tag] == StateInstalling:
		c.mu.Unlock()
		return &InstallError{Version: tag, Err: ErrInstallInProgress}
	}
	prev := c.states[tag]
	c.states[tag] = StateInstalling
	c.mu.Unlock()

	logger := c.logger.With(log.FieldCacheVersion, tag, log.FieldOperation, log.OpInstall)
	logger.InfoContext(ctx, "Installing cache generation", log.FieldCount, len(c.cfg.Manifest))

	fail := func(asset string, err error) error {
		if derr := c.storage.DeleteGeneration(context.WithoutCancel(ctx), tag); derr != nil {
			logger.WarnContext(ctx, "Failed to discard partial generation", log.FieldError, derr)
		}
		c.mu.Lock()
		if prev == StateUnknown {
			delete(c.states, tag)
		} else {
			c.states[tag] = StateEvicted
		}
		c.mu.Unlock()
		logger.ErrorContext(ctx, "Cache install failed", log.FieldAssetURL, asset, log.FieldError, err)
		return &InstallError{Version: tag, Asset: asset, Err: err}
	}

	// Leftovers from an earlier failed or evicted install must not mix in.
	if err := c.storage.DeleteGeneration(ctx, tag); err != nil {
		return fail("", err)
	}

	responses, asset, err := c.fetchAll(ctx, progress)
	if err != nil {
		return fail(asset, err)
	}
	for i, r := range responses {
		if err := c.storage.Put(ctx, tag, c.cfg.Manifest[i], r); err != nil {
			return fail(c.cfg.Manifest[i], err)
		}
	}

	c.mu.Lock()
	c.states[tag] = StateInstalled
	c.mu.Unlock()
	logger.InfoContext(ctx, "Cache generation installed", log.FieldCount, len(responses))
	return nil
}

func (c *Cache) fetchAll(ctx context.Context, progress Progress) ([]Response, string, error) {
	total := len(c.cfg.Manifest)
	out := make([]Response, total)
	var done atomic.Int64
	var (
		failMu sync.Mutex
		failed string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.InstallConcurrency)
	for i, u := range c.cfg.Manifest {
		g.Go(func() error {
			r, err := c.fetchAsset(gctx, u)
			if err != nil {
				failMu.Lock()
				if failed == "" {
					failed = u
				}
				failMu.Unlock()
				return err
			}
			out[i] = r
			n := done.Add(1)
			if progress != nil {
				progress(int(n), total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		failMu.Lock()
		defer failMu.Unlock()
		return nil, failed, err
	}
	return out, "", nil
}

func (c *Cache) fetchAsset(ctx context.Context, u string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Response{}, err
	}
	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return Response{}, err
	}
	r, err := readResponse(u, resp, c.cfg.MaxEntryBytes)
	if err != nil {
		return Response{}, err
	}
	if !r.OK() {
		return Response{}, fmt.Errorf("%w %d", errUnsuccessfulStatus, r.Status)
	}
	return r, nil
}

// Activate makes tag the serving generation and deletes every other stored
// generation. It returns the evicted tags.
func (c *Cache) Activate(ctx context.Context, tag string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gens, err := c.storage.Generations(ctx)
	if err != nil {
		return nil, fmt.Errorf("activate %s: %w", tag, err)
	}
	switch st := c.states[tag]; {
	case st == StateInstalling:
		return nil, fmt.Errorf("activate %s: %w", tag, ErrInstallInProgress)
	case st == StateInstalled, st == StateActive:
	case slices.Contains(gens, tag) && st != StateEvicted:
		// Installed by another process sharing the storage.
	default:
		return nil, fmt.Errorf("activate %s: %w", tag, ErrGenerationNotFound)
	}

	if err := c.storage.SetActive(ctx, tag); err != nil {
		return nil, fmt.Errorf("activate %s: %w", tag, err)
	}
	c.active = tag
	c.states[tag] = StateActive

	var evicted []string
	for _, g := range gens {
		if g == tag || c.states[g] == StateInstalling {
			continue
		}
		if err := c.storage.DeleteGeneration(ctx, g); err != nil {
			return evicted, fmt.Errorf("evict %s: %w", g, err)
		}
		c.states[g] = StateEvicted
		evicted = append(evicted, g)
	}
	for g, st := range c.states {
		if g != tag && st == StateActive {
			c.states[g] = StateEvicted
		}
	}
	c.logger.InfoContext(ctx, "Cache generation activated",
		log.FieldCacheVersion, tag, log.FieldOperation, log.OpActivate, log.FieldCount, len(evicted))
	return evicted, nil
}

// Upgrade installs tag and activates it. A failed install leaves the
// current generation serving.
func (c *Cache) Upgrade(ctx context.Context, tag string, progress Progress) ([]string, error) {
	if err := c.Install(ctx, tag, progress); err != nil {
		return nil, err
	}
	return c.Activate(ctx, tag)
}

// Bypass reports whether req must go straight to the network.
func (c *Cache) Bypass(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return true
	}
	host := strings.ToLower(req.URL.Host)
	name := strings.ToLower(req.URL.Hostname())
	for _, h := range c.cfg.APIHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if h == host || h == name {
			return true
		}
	}
	return false
}

// Fetch serves req by the interception policy. The returned response body
// must be closed by the caller.
func (c *Cache) Fetch(ctx context.Context, req *http.Request) (*http.Response, Result, error) {
	if c.Bypass(req) {
		resp, err := c.fetcher.Fetch(ctx, req)
		return resp, ResultBypass, err
	}
	gen := c.Active()
	if gen == "" {
		resp, err := c.fetcher.Fetch(ctx, req)
		return resp, ResultPass, err
	}

	key := Key(req.URL)
	cached, ok, err := c.storage.Get(ctx, gen, key)
	if err != nil {
		c.logger.WarnContext(ctx, "Cache lookup failed, treating as miss",
			log.FieldCacheVersion, gen, log.FieldCacheKey, key, log.FieldError, err)
		ok = false
	}
	if ok {
		c.revalidate(ctx, gen, key, req)
		return cached.HTTP(req), ResultHit, nil
	}

	r, err := c.refresh(ctx, gen, key, req)
	if errors.Is(err, ErrTooLarge) {
		// Too large to store: stream it through uncached.
		resp, err := c.fetcher.Fetch(ctx, req)
		return resp, ResultMiss, err
	}
	if err != nil {
		return nil, ResultMiss, err
	}
	return r.HTTP(req), ResultMiss, nil
}

// Match looks key up in the active generation only.
func (c *Cache) Match(ctx context.Context, key string) (Response, bool, error) {
	gen := c.Active()
	if gen == "" {
		return Response{}, false, nil
	}
	return c.storage.Get(ctx, gen, key)
}

// Snapshot lists stored keys per generation.
func (c *Cache) Snapshot(ctx context.Context) (map[string][]string, error) {
	gens, err := c.storage.Generations(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(gens))
	for _, g := range gens {
		keys, err := c.storage.Keys(ctx, g)
		if err != nil {
			return nil, err
		}
		out[g] = keys
	}
	return out, nil
}

// Wait blocks until background revalidations have finished.
func (c *Cache) Wait() { c.bg.Wait() }

func (c *Cache) revalidate(ctx context.Context, gen, key string, req *http.Request) {
	bctx := context.WithoutCancel(ctx)
	breq := req.Clone(bctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if _, err := c.refresh(bctx, gen, key, breq); err != nil {
			c.logger.DebugContext(bctx, "Background revalidation failed",
				log.FieldOperation, log.OpRevalidate, log.FieldCacheKey, key, log.FieldError, err)
		}
	}()
}

// refresh fetches key from the network, at most once concurrently. The
// shared fetch outlives any one caller's context; each caller stops waiting
// when its own context ends.
func (c *Cache) refresh(ctx context.Context, gen, key string, req *http.Request) (Response, error) {
	sctx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(gen+"\x00"+key, func() (any, error) {
		return c.fetchAndStore(sctx, gen, key, req.Clone(sctx))
	})
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Response{}, res.Err
		}
		return res.Val.(Response), nil
	}
}

// fetchAndStore stores a successful response in gen while gen is still
// active. The check and the write happen under the read lock, so an
// Activate that evicts gen cannot interleave with the write.
func (c *Cache) fetchAndStore(ctx context.Context, gen, key string, req *http.Request) (Response, error) {
	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return Response{}, err
	}
	r, err := readResponse(key, resp, c.cfg.MaxEntryBytes)
	if err != nil {
		return Response{}, err
	}
	if !r.OK() {
		return r, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active != gen {
		return r, nil
	}
	if err := c.storage.Put(ctx, gen, key, r); err != nil {
		c.logger.WarnContext(ctx, "Failed to store refreshed response",
			log.FieldCacheVersion, gen, log.FieldCacheKey, key, log.FieldError, err)
	}
	return r, nil
}

// Ready fails with ErrNoActiveGeneration until a generation is active.
func (c *Cache) Ready() error {
	if c.Active() == "" {
		return ErrNoActiveGeneration
	}
	return nil
}
