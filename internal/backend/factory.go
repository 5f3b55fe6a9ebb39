package backend

import (
	"context"
	"fmt"

	"fintrack/internal/adapters"
	"fintrack/internal/assetcache"
	"fintrack/internal/config"
	"fintrack/internal/gateway/memory"
	"fintrack/internal/gateway/postgres"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateGateway(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case LocalBackend:
		return f.createLocal(config)
	case PostgresBackend:
		return f.createPostgres(ctx, config)
	case MemoryBackend:
		return f.createMemory(config), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createLocal(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	gw := adapters.NewLocalGateway(repo, config.Location, f.logger)
	f.logger.Info("Initialized local backend", "db_path", config.SQLiteDBPath)
	return &Result{Gateway: gw, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createPostgres(ctx context.Context, config Config) (*Result, error) {
	gw, err := postgres.Open(ctx, config.DatabaseURL, config.Location, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := gw.EnsureSchema(ctx); err != nil {
		_ = gw.Close()
		return nil, err
	}
	f.logger.Info("Initialized postgres backend")
	return &Result{Gateway: gw, Cleanup: gw.Close}, nil
}

func (f *DefaultFactory) createMemory(config Config) *Result {
	var opts []memory.Option
	if config.SeedCategories {
		opts = append(opts, memory.WithDefaultCategories())
	}
	f.logger.Info("Initialized memory backend", "seeded", config.SeedCategories)
	return &Result{Gateway: memory.New(opts...), Cleanup: noop}
}

func (f *DefaultFactory) CreateAssetStorage(ctx context.Context, cfg Config) (*AssetResult, error) {
	switch cfg.CacheBackend {
	case "", config.CacheMemory:
		return &AssetResult{Storage: assetcache.NewMemoryStorage(), Cleanup: noop}, nil
	case config.CacheRedis:
		rdb, err := assetcache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Initialized redis asset storage", "prefix", cfg.RedisPrefix)
		return &AssetResult{Storage: assetcache.NewRedisStorage(rdb, cfg.RedisPrefix), Cleanup: rdb.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.CacheBackend)
	}
}
