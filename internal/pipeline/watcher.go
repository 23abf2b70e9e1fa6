package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkosilov/skinsbot/internal/arbitrage"
	"github.com/pkosilov/skinsbot/internal/domain"
)

// Watcher evaluates individual marketplace events from the live feed
// against a locally cached copy of the reference prices. Matching
// events go straight to the dispatcher without passing through the
// queue, since push events are already rare and fresh.
type Watcher struct {
	prices     domain.PriceStore
	dispatcher Dispatcher
	params     arbitrage.Params
	table      string
	logger     *slog.Logger

	mu  sync.RWMutex
	ref map[string]float64
}

func NewWatcher(prices domain.PriceStore, dispatcher Dispatcher, params arbitrage.Params, table string, logger *slog.Logger) *Watcher {
	return &Watcher{
		prices:     prices,
		dispatcher: dispatcher,
		params:     params,
		table:      table,
		logger:     logger.With(slog.String("component", "watcher")),
	}
}

// RefreshPrices reloads the reference price snapshot used to judge
// incoming events.
func (w *Watcher) RefreshPrices(ctx context.Context) error {
	ref, err := w.prices.Load(ctx, w.table)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.ref = ref
	w.mu.Unlock()
	w.logger.Info("reference prices refreshed", slog.Int("count", len(ref)))
	return nil
}

// RunPriceRefresh keeps the reference snapshot current. Failures are
// logged and the previous snapshot stays in use.
func (w *Watcher) RunPriceRefresh(ctx context.Context, interval time.Duration) error {
	if err := w.RefreshPrices(ctx); err != nil {
		w.logger.Error("price refresh failed", slog.Any("error", err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RefreshPrices(ctx); err != nil {
				w.logger.Error("price refresh failed", slog.Any("error", err))
			}
		}
	}
}

// HandleEvent evaluates a single feed event and dispatches it when it
// lands inside the profit band. Deletions and unknown items are
// ignored.
func (w *Watcher) HandleEvent(ctx context.Context, ev domain.SkinEvent) {
	if ev.Event == domain.EventSkinDeleted || ev.Name == "" || ev.Price <= 0 {
		return
	}

	w.mu.RLock()
	ref, ok := w.ref[ev.Name]
	w.mu.RUnlock()
	if !ok {
		return
	}

	listing := map[string]domain.Listing{
		ev.Name: {Name: ev.Name, MinPrice: ev.Price, ListingID: ev.ID},
	}
	opps := arbitrage.Evaluate(map[string]float64{ev.Name: ref}, listing, w.params)
	if len(opps) == 0 {
		return
	}

	opp := opps[0]
	w.logger.Info("feed event in profit band",
		slog.String("event", ev.Event),
		slog.String("item", opp.Name),
		slog.Float64("profit_pct", opp.ProfitPct))
	if err := w.dispatcher.Dispatch(ctx, opp); err != nil {
		w.logger.Error("dispatch failed",
			slog.String("item", opp.Name),
			slog.Any("error", err))
	}
}
