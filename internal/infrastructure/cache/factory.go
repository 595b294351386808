package cache

import (
	"context"
	"fmt"

	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Store modes accepted by CreateStoreForMode
const (
	ModeRedis  = "redis"
	ModeMemory = "memory"
	ModeNone   = "none"
)

// IdempotencyStoreFactory creates idempotency stores based on configuration
type IdempotencyStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory store when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based idempotency store
func (f *IdempotencyStoreFactory) CreateRedisStore(ctx context.Context) (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(ctx, f.redisConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis idempotency store: %w", err)
	}
	return store, nil
}

// CreateInMemoryStore creates an in-memory idempotency store.
// In-memory stores do not share state across process instances, so two
// instances may both accept the same receipt number or handle the same event.
func (f *IdempotencyStoreFactory) CreateInMemoryStore() shared.IdempotencyStore {
	return NewInMemoryIdempotencyStore()
}

// CreateStore tries Redis first and falls back to in-memory when allowed
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context) (shared.IdempotencyStore, error) {
	store, err := f.CreateRedisStore(ctx)
	if err == nil {
		f.logger.Info("using Redis idempotency store")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
		"Duplicates are only detected within this instance.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}

// CreateStoreForMode creates a store for a configured mode.
// ModeNone returns a nil store; callers treat that as "no cache".
func (f *IdempotencyStoreFactory) CreateStoreForMode(ctx context.Context, mode string) (shared.IdempotencyStore, error) {
	switch mode {
	case ModeRedis:
		return f.CreateStore(ctx)
	case ModeMemory:
		return f.CreateInMemoryStore(), nil
	case ModeNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown idempotency store mode %q", mode)
	}
}
