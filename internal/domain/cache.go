package domain

import (
	"context"
	"time"
)

// ListingCache stores the most recent good listing snapshot so a refresh
// cycle can fall back to slightly stale data when the marketplace fetch
// fails.
type ListingCache interface {
	SetSnapshot(ctx context.Context, game string, listings map[string]Listing) error
	// GetSnapshot returns ErrNotFound when no snapshot is cached (or the
	// cached one has expired).
	GetSnapshot(ctx context.Context, game string) (map[string]Listing, time.Time, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Wait blocks until a request for key fits inside the limit-per-window
	// budget, or the context is cancelled.
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
