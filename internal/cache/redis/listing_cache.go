package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkosilov/skinsbot/internal/domain"
)

// ListingCache implements domain.ListingCache using a single Redis string
// per game holding the JSON-encoded snapshot plus its capture time. The TTL
// bounds how stale a fallback snapshot can be.
type ListingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewListingCache creates a ListingCache backed by the given Client. A zero
// ttl means cached snapshots never expire.
func NewListingCache(c *Client, ttl time.Duration) *ListingCache {
	return &ListingCache{rdb: c.Underlying(), ttl: ttl}
}

func listingsKey(game string) string {
	return "listings:" + game
}

// cachedSnapshot is the stored JSON envelope.
type cachedSnapshot struct {
	TakenAt  time.Time                 `json:"taken_at"`
	Listings map[string]domain.Listing `json:"listings"`
}

// SetSnapshot stores the latest good listing snapshot for a game.
func (lc *ListingCache) SetSnapshot(ctx context.Context, game string, listings map[string]domain.Listing) error {
	payload, err := json.Marshal(cachedSnapshot{
		TakenAt:  time.Now().UTC(),
		Listings: listings,
	})
	if err != nil {
		return fmt.Errorf("redis: marshal listing snapshot %s: %w", game, err)
	}

	if err := lc.rdb.Set(ctx, listingsKey(game), payload, lc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set listing snapshot %s: %w", game, err)
	}
	return nil
}

// GetSnapshot returns the cached snapshot and its capture time, or
// domain.ErrNotFound when nothing is cached.
func (lc *ListingCache) GetSnapshot(ctx context.Context, game string) (map[string]domain.Listing, time.Time, error) {
	raw, err := lc.rdb.Get(ctx, listingsKey(game)).Bytes()
	if err == redis.Nil {
		return nil, time.Time{}, domain.ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: get listing snapshot %s: %w", game, err)
	}

	var snap cachedSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: decode listing snapshot %s: %w", game, err)
	}
	return snap.Listings, snap.TakenAt, nil
}

// Compile-time interface check.
var _ domain.ListingCache = (*ListingCache)(nil)
