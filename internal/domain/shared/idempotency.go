package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed keys (event IDs, receipt submissions)
// so a redelivered message is handled once.
type IdempotencyStore interface {
	// MarkProcessed records the key for ttl. It returns false if the key was already recorded.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyConfig holds configuration for idempotent event handling
type IdempotencyConfig struct {
	// TTL after which the same key may be processed again
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns a 24h, enabled configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
