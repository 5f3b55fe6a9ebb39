package backend

import (
	"fmt"

	"fintrack/internal/assetcache"
	"fintrack/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	loc, err := appConfig.Location()
	if err != nil {
		return Config{}, fmt.Errorf("timezone: %w", err)
	}
	return Config{
		Type:           t,
		Location:       loc,
		SQLiteDBPath:   appConfig.SQLiteDBPath,
		DatabaseURL:    appConfig.DatabaseURL,
		SeedCategories: true,
		CacheBackend:   appConfig.CacheBackend,
		RedisURL:       appConfig.RedisURL,
		RedisPrefix:    assetcache.DefaultRedisPrefix,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	switch c.Type {
	case LocalBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for local backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	}
	if c.CacheBackend == config.CacheRedis && c.RedisURL == "" {
		return fmt.Errorf("redis URL is required for redis cache backend")
	}
	return nil
}

// Types returns every valid gateway type.
func Types() []Type {
	return []Type{MemoryBackend, LocalBackend, PostgresBackend}
}

func TypeStrings() []string {
	types := Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
