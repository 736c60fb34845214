package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. The only cached
// artifact is the resolved CalcTable; derived aggregates are recomputed on
// every request and never cached (filtering changes the comparison universe).
// All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetCalcTable retrieves a cached resolved table for a dataset.
	GetCalcTable(ctx context.Context, tenantID string, key string) (*CalcTable, error)

	// SetCalcTable caches a resolved table. A re-resolve overwrites the
	// entry as a whole; the table itself is never mutated in place.
	SetCalcTable(ctx context.Context, tenantID string, key string, table *CalcTable, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
