package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendLocal    = "local"
	BackendPostgres = "postgres"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	// HTTP Server
	Port string

	// Entity data
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string
	PrincipalID  string
	Timezone     string

	// AMQP change notifications, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Offline asset cache
	CacheBackend      string
	RedisURL          string
	CacheVersion      string
	AssetOrigin       string
	APIHosts          []string
	CacheManifestFile string

	// Enrichment
	GeminiAPIKey    string
	GeminiModel     string
	EnrichCacheSize int
	EnrichCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		PrincipalID:  getEnv("PRINCIPAL_ID", "local"),
		Timezone:     getEnv("TIMEZONE", "Local"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", ""),

		CacheBackend:      getEnv("CACHE_BACKEND", CacheMemory),
		RedisURL:          getEnv("REDIS_URL", ""),
		CacheVersion:      getEnv("CACHE_VERSION", "v1"),
		AssetOrigin:       getEnv("ASSET_ORIGIN", "http://localhost:5173"),
		APIHosts:          getEnvList("API_HOST"),
		CacheManifestFile: getEnv("CACHE_MANIFEST_FILE", ""),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		EnrichCacheSize: getEnvInt("ENRICH_CACHE_SIZE", 256),
		EnrichCacheTTL:  getEnvDuration("ENRICH_CACHE_TTL", time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Location resolves Timezone; "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	backends := []string{BackendMemory, BackendLocal, BackendPostgres}
	if !slices.Contains(backends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, backends))
	}
	if c.DataBackend == BackendLocal && c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty when using local backend")
	}
	if c.DataBackend == BackendPostgres {
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres backend")
		} else if err := checkScheme(c.DatabaseURL, "postgres", "postgresql"); err != nil {
			errs = append(errs, fmt.Sprintf("invalid database URL: %v", err))
		}
	}
	if strings.TrimSpace(c.PrincipalID) == "" {
		errs = append(errs, "principal id cannot be empty")
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.AMQPURL != "" {
		if err := checkScheme(c.AMQPURL, "amqp", "amqps"); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL: %v", err))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	caches := []string{CacheMemory, CacheRedis}
	if !slices.Contains(caches, c.CacheBackend) {
		errs = append(errs, fmt.Sprintf("invalid cache backend '%s': must be one of %v", c.CacheBackend, caches))
	}
	if c.CacheBackend == CacheRedis {
		if c.RedisURL == "" {
			errs = append(errs, "REDIS_URL is required when using redis cache backend")
		} else if err := checkScheme(c.RedisURL, "redis", "rediss"); err != nil {
			errs = append(errs, fmt.Sprintf("invalid Redis URL: %v", err))
		}
	}
	if strings.TrimSpace(c.CacheVersion) == "" {
		errs = append(errs, "cache version cannot be empty")
	}
	if err := checkScheme(c.AssetOrigin, "http", "https"); err != nil {
		errs = append(errs, fmt.Sprintf("invalid asset origin: %v", err))
	}
	if c.CacheManifestFile != "" {
		if _, err := os.Stat(c.CacheManifestFile); err != nil {
			errs = append(errs, fmt.Sprintf("cache manifest file: %v", err))
		}
	}

	if c.EnrichCacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid enrichment cache size %d: must be at least 1", c.EnrichCacheSize))
	}
	if c.EnrichCacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid enrichment cache ttl %v: must not be negative", c.EnrichCacheTTL))
	}

	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func checkScheme(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !slices.Contains(schemes, u.Scheme) {
		return fmt.Errorf("scheme '%s' must be one of %v", u.Scheme, schemes)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in '%s'", raw)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
