package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/assetcache"
	"fintrack/internal/backend"
	"fintrack/internal/gateway"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
)

func serveCmd(a *app) *cobra.Command {
	var (
		apiPrefix  string
		writeLimit int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the application shell through the offline asset cache",
		Long: `Serve proxies the asset origin through the offline cache. On start it
restores the active generation and, when CACHE_VERSION differs, installs and
activates the new version. A failed upgrade keeps the current generation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), apiPrefix, writeLimit)
		},
	}
	cmd.Flags().StringVar(&apiPrefix, "api-prefix", "/api/", "path prefix of a data API that shares the asset origin")
	cmd.Flags().IntVar(&writeLimit, "write-limit", 60, "non-GET requests allowed per client per minute (0 disables)")
	return cmd
}

func (a *app) serve(ctx context.Context, apiPrefix string, writeLimit int) error {
	logger := a.logger
	c, cleanup, err := a.openAssetCache(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	if c.Active() != a.cfg.CacheVersion {
		if _, err := c.Upgrade(ctx, a.cfg.CacheVersion, nil); err != nil {
			logger.WarnContext(ctx, "Cache upgrade failed, keeping current generation",
				log.FieldCacheVersion, a.cfg.CacheVersion, log.FieldError, err)
		}
	}

	origin, err := a.origin()
	if err != nil {
		return err
	}

	opts := []apphttp.Option{apphttp.WithLogger(logger), apphttp.WithWriteLimit(writeLimit)}
	if gw, release, err := a.probeGateway(ctx); err != nil {
		logger.WarnContext(ctx, "Gateway unavailable for readiness checks", log.FieldError, err)
	} else if gw != nil {
		defer func() { _ = release() }()
		opts = append(opts, apphttp.WithPinger(gw))
	}

	srv := apphttp.NewServer(":"+a.cfg.Port, c, assetcache.NewHandler(c, origin, apiPrefix, logger), opts...)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", log.FieldOperation, log.OpStartup,
			"addr", srv.Addr, "origin", origin.String(), log.FieldCacheVersion, c.Active())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped", log.FieldOperation, log.OpShutdown)
	return nil
}

// probeGateway opens the configured gateway when it has a health probe.
func (a *app) probeGateway(ctx context.Context) (gateway.Pinger, backend.CleanupFunc, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(a.logger).CreateGateway(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	p, ok := res.Gateway.(gateway.Pinger)
	if !ok {
		return nil, nil, res.Cleanup()
	}
	return p, res.Cleanup, nil
}
