package backend

import (
	"context"
	"time"

	"fintrack/internal/assetcache"
	"fintrack/internal/gateway"
)

// CleanupFunc releases resources held by a created backend.
type CleanupFunc func() error

// Result carries the gateway and the function that releases it. Cleanup
// is never nil.
type Result struct {
	Gateway gateway.Gateway
	Cleanup CleanupFunc
}

// AssetResult carries the asset cache storage and its cleanup.
type AssetResult struct {
	Storage assetcache.Storage
	Cleanup CleanupFunc
}

// Factory creates backends from configuration.
type Factory interface {
	CreateGateway(ctx context.Context, config Config) (*Result, error)
	CreateAssetStorage(ctx context.Context, config Config) (*AssetResult, error)
}

// Config holds what the factory needs, detached from environment loading.
type Config struct {
	Type     Type
	Location *time.Location

	// local
	SQLiteDBPath string

	// postgres
	DatabaseURL string

	// memory gateway seeds the default categories for every principal
	SeedCategories bool

	// asset cache storage
	CacheBackend string
	RedisURL     string
	RedisPrefix  string
}

// Type names a gateway implementation.
type Type string

const (
	MemoryBackend   Type = "memory"
	LocalBackend    Type = "local"
	PostgresBackend Type = "postgres"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, LocalBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

func noop() error { return nil }
