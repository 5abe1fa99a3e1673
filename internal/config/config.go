// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything the API server needs at startup. Core logic never
// reads the environment directly; values are injected from here.
type Config struct {
	ListenAddr string // HTTP listen address (default ":8080")
	PGDSN      string // PostgreSQL DSN; empty selects the in-memory stores

	AuthSecret string        // HS256 signing secret (required)
	AccessTTL  time.Duration // access token lifetime (default 1800s)
	RefreshTTL time.Duration // refresh token lifetime (default 604800s)

	RateLimitPerSec int // sustained requests per second per client IP
	RateLimitBurst  int // burst capacity
	MaxBodyBytes    int64

	SecureCookies bool // mark auth cookies Secure; off only for local HTTP
}

const (
	defaultAccessTTL  = 1800 * time.Second
	defaultRefreshTTL = 604800 * time.Second
)

// Load reads configuration from BOOKSHOP_* environment variables and applies
// defaults.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:      envOr("BOOKSHOP_LISTEN_ADDR", ":8080"),
		PGDSN:           os.Getenv("BOOKSHOP_PG_DSN"),
		AuthSecret:      os.Getenv("BOOKSHOP_AUTH_SECRET"),
		AccessTTL:       defaultAccessTTL,
		RefreshTTL:      defaultRefreshTTL,
		RateLimitPerSec: 50,
		RateLimitBurst:  100,
		MaxBodyBytes:    1 << 20,
		SecureCookies:   os.Getenv("BOOKSHOP_INSECURE_COOKIES") == "",
	}

	var err error
	if cfg.AccessTTL, err = envSeconds("BOOKSHOP_ACCESS_TTL", cfg.AccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = envSeconds("BOOKSHOP_REFRESH_TTL", cfg.RefreshTTL); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerSec, err = envInt("BOOKSHOP_RATE_LIMIT_PER_SEC", cfg.RateLimitPerSec); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = envInt("BOOKSHOP_RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.AuthSecret == "" {
		return fmt.Errorf("BOOKSHOP_AUTH_SECRET is required")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.RateLimitPerSec <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envSeconds(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if secs <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return time.Duration(secs) * time.Second, nil
}
