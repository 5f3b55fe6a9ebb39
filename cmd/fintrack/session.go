package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/assetcache"
	"fintrack/internal/backend"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
	"fintrack/web"
)

// session is one principal's loaded store plus what it needs released.
type session struct {
	store    *store.Store
	gateway  *backend.Result
	notifier *amqp.Client
	loc      *time.Location
	loadErr  error
}

func (s *session) Close() {
	if s.notifier != nil {
		_ = s.notifier.Close()
	}
	if s.gateway != nil {
		_ = s.gateway.Cleanup()
	}
}

// openSession builds the configured gateway and loads the principal's
// collections. Collections that failed to load are reported but do not
// abort the session.
func (a *app) openSession(ctx context.Context) (*session, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(a.logger).CreateGateway(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	s := &session{gateway: res, loc: bcfg.Location}

	opts := []store.Option{store.WithLogger(a.logger)}
	if a.cfg.AMQPURL != "" {
		client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger)
		if err != nil {
			a.logger.WarnContext(ctx, "Change notifications disabled", log.FieldError, err)
		} else {
			s.notifier = client
			opts = append(opts, store.WithNotifier(client))
		}
	}

	st, err := store.New(res.Gateway, core.Principal(a.cfg.PrincipalID), opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.store = st

	if err := st.Load(ctx); err != nil {
		s.loadErr = err
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	return s, nil
}

// initCategories seeds the default categories for a principal that has
// none. It refuses when the categories could not be loaded, since an
// unreadable collection is not an empty one.
func (a *app) initCategories(ctx context.Context) (int, error) {
	s, err := a.openSession(ctx)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	if categoriesFailed(s.loadErr) {
		return 0, fmt.Errorf("categories unavailable: %w", s.loadErr)
	}
	return s.store.SeedDefaults(ctx)
}

func categoriesFailed(err error) bool {
	var le *core.LoadError
	for _, e := range unwrapAll(err) {
		if errors.As(e, &le) && le.Kind == core.KindCategory {
			return true
		}
	}
	return false
}

func unwrapAll(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

// openAssetCache builds the cache over the configured storage and restores
// the active generation recorded there.
func (a *app) openAssetCache(ctx context.Context) (*assetcache.Cache, backend.CleanupFunc, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(a.logger).CreateAssetStorage(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	manifest, err := a.manifest()
	if err != nil {
		_ = res.Cleanup()
		return nil, nil, err
	}
	c := assetcache.New(res.Storage, assetcache.NewHTTPFetcher(15*time.Second), assetcache.Config{
		APIHosts: a.cfg.APIHosts,
		Manifest: manifest,
	}, a.logger)
	if err := c.Restore(ctx); err != nil {
		_ = res.Cleanup()
		return nil, nil, err
	}
	return c, res.Cleanup, nil
}

// manifest reads CACHE_MANIFEST_FILE, or the embedded default, and resolves
// it against the asset origin.
func (a *app) manifest() ([]string, error) {
	var (
		entries []string
		err     error
	)
	if a.cfg.CacheManifestFile != "" {
		f, openErr := os.Open(a.cfg.CacheManifestFile)
		if openErr != nil {
			return nil, fmt.Errorf("open manifest: %w", openErr)
		}
		defer f.Close()
		entries, err = assetcache.LoadManifest(f)
	} else {
		entries, err = assetcache.LoadManifest(strings.NewReader(web.Manifest))
	}
	if err != nil {
		return nil, err
	}
	origin, err := a.origin()
	if err != nil {
		return nil, err
	}
	return assetcache.ResolveManifest(origin, entries)
}

func (a *app) origin() (*url.URL, error) {
	u, err := url.Parse(a.cfg.AssetOrigin)
	if err != nil {
		return nil, fmt.Errorf("asset origin: %w", err)
	}
	return u, nil
}
