// Package pipeline contains the long-running loops that keep the
// opportunity queue fresh and drain it into a dispatcher. A Refresher
// periodically rebuilds the queue from reference prices and live
// listings; a Drainer pops one opportunity per tick and hands it to
// the configured Dispatcher.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkosilov/skinsbot/internal/arbitrage"
	"github.com/pkosilov/skinsbot/internal/domain"
)

// Refresher rebuilds the opportunity queue on a fixed interval.
// Reference prices come from the price store, live listings from the
// marketplace export. A failed refresh leaves the queue untouched so
// the drainer keeps working against the last good snapshot.
type Refresher struct {
	prices   domain.PriceStore
	listings domain.ListingSource
	cache    domain.ListingCache
	queue    *arbitrage.Queue
	params   arbitrage.Params
	table    string
	logger   *slog.Logger
}

// NewRefresher builds a Refresher. cache may be nil; when set it is
// updated after every successful listing fetch and consulted as a
// fallback when the marketplace export is unavailable.
func NewRefresher(prices domain.PriceStore, listings domain.ListingSource, cache domain.ListingCache, queue *arbitrage.Queue, params arbitrage.Params, table string, logger *slog.Logger) *Refresher {
	return &Refresher{
		prices:   prices,
		listings: listings,
		cache:    cache,
		queue:    queue,
		params:   params,
		table:    table,
		logger:   logger.With(slog.String("component", "refresher")),
	}
}

// Refresh runs a single refresh cycle: load reference prices, fetch
// listings, evaluate, and replace the queue contents.
func (r *Refresher) Refresh(ctx context.Context) error {
	cycle := uuid.NewString()
	start := time.Now()

	prices, err := r.prices.Load(ctx, r.table)
	if err != nil {
		return err
	}

	listings, err := r.fetchListings(ctx)
	if err != nil {
		return err
	}

	opps := arbitrage.Evaluate(prices, listings, r.params)
	r.queue.Replace(opps)

	r.logger.Info("refresh cycle complete",
		slog.String("cycle", cycle),
		slog.Int("reference_prices", len(prices)),
		slog.Int("listings", len(listings)),
		slog.Int("opportunities", len(opps)),
		slog.Int("queue_len", r.queue.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *Refresher) fetchListings(ctx context.Context) (map[string]domain.Listing, error) {
	listings, err := r.listings.Listings(ctx)
	if err == nil {
		if r.cache != nil {
			if cerr := r.cache.SetSnapshot(ctx, r.params.Game, listings); cerr != nil {
				r.logger.Warn("caching listing snapshot failed", slog.Any("error", cerr))
			}
		}
		return listings, nil
	}

	if r.cache == nil {
		return nil, err
	}
	cached, takenAt, cerr := r.cache.GetSnapshot(ctx, r.params.Game)
	if cerr != nil {
		return nil, err
	}
	r.logger.Warn("marketplace export unavailable, using cached snapshot",
		slog.Any("error", err),
		slog.Time("snapshot_taken_at", takenAt))
	return cached, nil
}

// RunLoop refreshes immediately and then on every interval tick until
// the context is cancelled. Refresh errors are logged and the loop
// continues; the queue simply goes stale until the next success.
func (r *Refresher) RunLoop(ctx context.Context, interval time.Duration) error {
	r.logger.Info("refresh loop started", slog.Duration("interval", interval))

	if err := r.Refresh(ctx); err != nil {
		r.logger.Error("refresh failed", slog.Any("error", err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Error("refresh failed", slog.Any("error", err))
			}
		}
	}
}
