package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const feeStructureKeyPrefix = "ledger:fee_structure:"

// Default lifetimes of cached fee structures
const (
	DefaultStructureL1TTL = time.Minute
	DefaultStructureL2TTL = 15 * time.Minute
)

// StructureCacheStats reports hit counts of the structure cache
type StructureCacheStats struct {
	L1Hits   int64
	L2Hits   int64
	Misses   int64
	L1Size   int
	HitRatio float64
}

type structureEntry struct {
	structure ledger.FeeStructure
	expiresAt time.Time
}

// CachedFeeStructureResolver wraps a FeeStructureResolver with two cache tiers.
// L1 is a local map, L2 is Redis shared across instances. Redis is optional:
// with a nil client only L1 is used, and Redis errors fall through to the
// wrapped resolver. Resolution errors are never cached.
type CachedFeeStructureResolver struct {
	next   ledger.FeeStructureResolver
	client *redis.Client
	clock  shared.Clock
	logger *zap.Logger
	l1TTL  time.Duration
	l2TTL  time.Duration

	mu      sync.RWMutex
	entries map[string]structureEntry

	l1Hits int64
	l2Hits int64
	misses int64
}

// StructureCacheOption configures a CachedFeeStructureResolver
type StructureCacheOption func(*CachedFeeStructureResolver)

// WithStructureTTL sets the L1 and L2 lifetimes; non-positive values keep the defaults
func WithStructureTTL(l1, l2 time.Duration) StructureCacheOption {
	return func(c *CachedFeeStructureResolver) {
		if l1 > 0 {
			c.l1TTL = l1
		}
		if l2 > 0 {
			c.l2TTL = l2
		}
	}
}

// WithStructureClock sets the clock used for L1 expiry
func WithStructureClock(clock shared.Clock) StructureCacheOption {
	return func(c *CachedFeeStructureResolver) {
		c.clock = clock
	}
}

// WithStructureLogger sets the logger
func WithStructureLogger(logger *zap.Logger) StructureCacheOption {
	return func(c *CachedFeeStructureResolver) {
		c.logger = logger
	}
}

// NewCachedFeeStructureResolver creates a cached resolver. client may be nil.
func NewCachedFeeStructureResolver(next ledger.FeeStructureResolver, client *redis.Client, opts ...StructureCacheOption) *CachedFeeStructureResolver {
	c := &CachedFeeStructureResolver{
		next:    next,
		client:  client,
		clock:   shared.SystemClock{},
		logger:  zap.NewNop(),
		l1TTL:   DefaultStructureL1TTL,
		l2TTL:   DefaultStructureL2TTL,
		entries: make(map[string]structureEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve looks up L1, then L2, then the wrapped resolver
func (c *CachedFeeStructureResolver) Resolve(ctx context.Context, schoolID uuid.UUID, query ledger.FeeStructureQuery) (*ledger.FeeStructure, error) {
	key := structureKey(schoolID, query)

	if s, ok := c.getL1(key); ok {
		atomic.AddInt64(&c.l1Hits, 1)
		return s, nil
	}

	if s := c.getL2(ctx, key); s != nil {
		atomic.AddInt64(&c.l2Hits, 1)
		c.setL1(key, s)
		return s, nil
	}
	atomic.AddInt64(&c.misses, 1)

	s, err := c.next.Resolve(ctx, schoolID, query)
	if err != nil {
		return nil, err
	}

	c.setL1(key, s)
	c.setL2(ctx, key, s)
	return s, nil
}

// Invalidate drops every cached structure of a school from both tiers
func (c *CachedFeeStructureResolver) Invalidate(ctx context.Context, schoolID uuid.UUID) error {
	prefix := feeStructureKeyPrefix + schoolID.String() + ":"

	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached fee structures: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cached fee structures: %w", err)
	}
	return nil
}

// Stats returns hit statistics
func (c *CachedFeeStructureResolver) Stats() StructureCacheStats {
	l1Hits := atomic.LoadInt64(&c.l1Hits)
	l2Hits := atomic.LoadInt64(&c.l2Hits)
	misses := atomic.LoadInt64(&c.misses)

	var ratio float64
	if total := l1Hits + l2Hits + misses; total > 0 {
		ratio = float64(l1Hits+l2Hits) / float64(total)
	}

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	return StructureCacheStats{
		L1Hits:   l1Hits,
		L2Hits:   l2Hits,
		Misses:   misses,
		L1Size:   size,
		HitRatio: ratio,
	}
}

func (c *CachedFeeStructureResolver) getL1(key string) (*ledger.FeeStructure, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.clock.Now().Before(e.expiresAt) {
		return nil, false
	}
	s := e.structure
	return &s, true
}

func (c *CachedFeeStructureResolver) setL1(key string, s *ledger.FeeStructure) {
	c.mu.Lock()
	c.entries[key] = structureEntry{structure: *s, expiresAt: c.clock.Now().Add(c.l1TTL)}
	c.mu.Unlock()
}

func (c *CachedFeeStructureResolver) getL2(ctx context.Context, key string) *ledger.FeeStructure {
	if c.client == nil {
		return nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("L2 fee structure cache error", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var s ledger.FeeStructure
	if err := json.Unmarshal(data, &s); err != nil {
		c.logger.Warn("Discarding undecodable cached fee structure", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &s
}

func (c *CachedFeeStructureResolver) setL2(ctx context.Context, key string, s *ledger.FeeStructure) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		c.logger.Warn("Failed to encode fee structure", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.l2TTL).Err(); err != nil {
		c.logger.Warn("Failed to populate L2 fee structure cache", zap.String("key", key), zap.Error(err))
	}
}

func structureKey(schoolID uuid.UUID, q ledger.FeeStructureQuery) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", feeStructureKeyPrefix, schoolID, q.AcademicYearID, q.ClassID, q.Category)
}

// Ensure CachedFeeStructureResolver implements FeeStructureResolver
var _ ledger.FeeStructureResolver = (*CachedFeeStructureResolver)(nil)
