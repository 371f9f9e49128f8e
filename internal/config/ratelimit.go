package config

import (
    "fmt"
    "time"

    "github.com/caarlos0/env/v11"
)

// RateLimitConfig drives the token bucket in front of the auth routes.
// Capacity tokens are available at once; RefillTokens are added every
// RefillInterval.
type RateLimitConfig struct {
    Enabled        bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
    Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"10"`
    RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" envDefault:"1"`
    RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"6s"`
    TTL            time.Duration `env:"RATE_LIMIT_TTL" envDefault:"10m"`
    Prefix         string        `env:"RATE_LIMIT_PREFIX" envDefault:"rl"`
}

// LoadRateLimitConfig parses RATE_LIMIT_* and clamps nonsensical values.
func LoadRateLimitConfig() (RateLimitConfig, error) {
    var c RateLimitConfig
    if err := env.Parse(&c); err != nil {
        return c, fmt.Errorf("parse rate limit env: %w", err)
    }
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    // keep idle buckets long enough to refill completely
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c, nil
}
