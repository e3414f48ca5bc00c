// Package config loads and validates application configuration from
// environment variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Snapshot store backends accepted by SNAPSHOT_STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// BackendAPIURL is the root of the backend REST API. Required.
	BackendAPIURL string

	// TokenCookie names the cookie that holds the backend bearer token.
	TokenCookie string

	// SessionCookie names the cookie that holds the shopper session id.
	SessionCookie string

	// CookieSecure marks the cookies this server sets as Secure.
	CookieSecure bool

	// SnapshotStore selects where carts and wishlists persist:
	// memory, redis or postgres.
	SnapshotStore string

	// RedisURL is required when SnapshotStore is redis.
	RedisURL string

	// DatabaseURL is required when SnapshotStore is postgres.
	DatabaseURL string

	// SnapshotTTL expires idle snapshots. Zero keeps them forever.
	SnapshotTTL time.Duration

	// PriceRounding names the pricing policy: two-stage or single-stage.
	PriceRounding string

	// ProxyTimeout bounds each proxied backend call. Zero means no timeout.
	ProxyTimeout time.Duration

	// MaxBodyBytes caps request body sizes. Defaults to 10 MiB.
	MaxBodyBytes int64
}

// Load reads configuration from the environment, falling back to a .env file
// in the working directory when one exists.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit .env path. A missing file is not an error;
// environment variables always win over the file.
func LoadFrom(envFile string) (Config, error) {
	v := viper.New()
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config file %s: %w", envFile, err)
			}
		}
	}
	get := func(key, fallback string) string { return getEnvOrViper(v, key, fallback) }

	cfg := Config{
		Port:          get("PORT", "8080"),
		LogLevel:      get("LOG_LEVEL", "info"),
		CORSOrigins:   splitCSV(get("CORS_ORIGINS", "http://localhost:3000")),
		BackendAPIURL: strings.TrimSpace(get("BACKEND_API_URL", "")),
		TokenCookie:   get("TOKEN_COOKIE", "token"),
		SessionCookie: get("SESSION_COOKIE", "cart_session"),
		SnapshotStore: strings.ToLower(get("SNAPSHOT_STORE", StoreMemory)),
		RedisURL:      strings.TrimSpace(get("REDIS_URL", "")),
		DatabaseURL:   strings.TrimSpace(get("DATABASE_URL", "")),
		PriceRounding: get("PRICE_ROUNDING", "two-stage"),
	}

	var missing []string
	var invalid []error

	if cfg.BackendAPIURL == "" {
		missing = append(missing, "BACKEND_API_URL")
	}
	switch cfg.SnapshotStore {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisURL == "" {
			missing = append(missing, "REDIS_URL")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		invalid = append(invalid, fmt.Errorf("SNAPSHOT_STORE must be memory, redis or postgres, got %q", cfg.SnapshotStore))
	}

	var err error
	if cfg.CookieSecure, err = strconv.ParseBool(get("COOKIE_SECURE", "false")); err != nil {
		invalid = append(invalid, fmt.Errorf("COOKIE_SECURE: %w", err))
	}
	if cfg.SnapshotTTL, err = time.ParseDuration(get("SNAPSHOT_TTL", "0s")); err != nil || cfg.SnapshotTTL < 0 {
		invalid = append(invalid, fmt.Errorf("SNAPSHOT_TTL must be a non-negative duration"))
	}
	if cfg.ProxyTimeout, err = time.ParseDuration(get("PROXY_TIMEOUT", "0s")); err != nil || cfg.ProxyTimeout < 0 {
		invalid = append(invalid, fmt.Errorf("PROXY_TIMEOUT must be a non-negative duration"))
	}
	if cfg.MaxBodyBytes, err = strconv.ParseInt(get("MAX_BODY_BYTES", "10485760"), 10, 64); err != nil || cfg.MaxBodyBytes <= 0 {
		invalid = append(invalid, fmt.Errorf("MAX_BODY_BYTES must be a positive integer"))
	}

	if len(missing) > 0 {
		invalid = append([]error{fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))}, invalid...)
	}
	if len(invalid) > 0 {
		return Config{}, errors.Join(invalid...)
	}

	return cfg, nil
}

// getEnvOrViper returns the environment variable named by key, then the
// value read from the .env file, then fallback.
func getEnvOrViper(v *viper.Viper, key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if v.IsSet(key) {
		if val := v.GetString(key); val != "" {
			return val
		}
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
