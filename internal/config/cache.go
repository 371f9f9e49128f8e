package config

import (
    "fmt"
    "time"

    "github.com/caarlos0/env/v11"
)

// CacheConfig defines settings for the public job listing cache.  When
// Enabled is false or no Redis client is configured, caching is off.
type CacheConfig struct {
    Enabled      bool          `env:"CACHE_ENABLED" envDefault:"true"`
    TTL          time.Duration `env:"CACHE_TTL" envDefault:"30s"`
    Prefix       string        `env:"CACHE_PREFIX" envDefault:"cache"`
    MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`
}

// LoadCacheConfig parses CACHE_*.
func LoadCacheConfig() (CacheConfig, error) {
    var c CacheConfig
    if err := env.Parse(&c); err != nil {
        return c, fmt.Errorf("parse cache env: %w", err)
    }
    if c.TTL <= 0 {
        c.TTL = 30 * time.Second
    }
    return c, nil
}
