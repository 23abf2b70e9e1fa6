package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pkosilov/skinsbot/internal/arbitrage"
	"github.com/pkosilov/skinsbot/internal/crypto"
	"github.com/pkosilov/skinsbot/internal/feed"
	"github.com/pkosilov/skinsbot/internal/pipeline"
)

// purchaserLockTTL bounds how long a crashed buyer replica keeps the
// purchase lock before another replica can take over.
const purchaserLockTTL = 10 * time.Minute

func (a *App) scanParams() arbitrage.Params {
	return arbitrage.Params{
		Game:     a.cfg.LisSkins.Game,
		FeeRate:  a.cfg.Scanner.FeeRate,
		MinRatio: a.cfg.Scanner.MinRatio,
		MaxRatio: a.cfg.Scanner.MaxRatio,
	}
}

// NotifyMode runs the refresh loop and drains the queue into alert
// notifications.
func (a *App) NotifyMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting notify mode")

	queue := arbitrage.NewQueue(a.cfg.Scanner.QueueCapacity)
	refresher := pipeline.NewRefresher(
		deps.PriceStore, deps.Market, deps.ListingCache,
		queue, a.scanParams(), a.cfg.Scanner.PriceTable, a.logger)

	dispatcher := pipeline.NewNotifyDispatcher(deps.Notifier, a.logger)
	drainer := pipeline.NewDrainer(queue, dispatcher, pipeline.DrainPolicy{
		Interval: a.cfg.Scanner.DrainInterval.Duration,
	}, a.logger)

	orch := pipeline.NewOrchestrator(refresher, drainer, a.cfg.Scanner.RefreshInterval.Duration, a.logger)
	return orch.Run(ctx)
}

// BuyMode runs the refresh loop and drains the queue into buy orders.
// When Redis is enabled a distributed lock ensures only one replica
// submits purchases at a time.
func (a *App) BuyMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting buy mode")

	if deps.LockManager != nil {
		unlock, err := deps.LockManager.Acquire(ctx, "purchaser", purchaserLockTTL)
		if err != nil {
			return fmt.Errorf("app: acquire purchaser lock: %w", err)
		}
		defer unlock()
	}

	queue := arbitrage.NewQueue(a.cfg.Scanner.QueueCapacity)
	refresher := pipeline.NewRefresher(
		deps.PriceStore, deps.Market, deps.ListingCache,
		queue, a.scanParams(), a.cfg.Scanner.PriceTable, a.logger)

	dispatcher := pipeline.NewPurchaseDispatcher(
		deps.Market, deps.Notifier, deps.RateLimiter,
		pipeline.PurchaseConfig{
			Partner:         a.cfg.Buy.Partner,
			Token:           a.cfg.Buy.Token,
			MaxPriceFactor:  a.cfg.Buy.MaxPriceFactor,
			SkipUnavailable: a.cfg.Buy.SkipUnavailable,
			RateLimit:       a.cfg.Buy.RateLimit,
			RateLimitWindow: a.cfg.Buy.RateLimitWindow.Duration,
		}, a.logger)

	drainer := pipeline.NewDrainer(queue, dispatcher, pipeline.DrainPolicy{
		Interval:     a.cfg.Scanner.DrainInterval.Duration,
		SuccessPause: a.cfg.Buy.SuccessPause.Duration,
		FailurePause: a.cfg.Buy.FailurePause.Duration,
	}, a.logger)

	orch := pipeline.NewOrchestrator(refresher, drainer, a.cfg.Scanner.RefreshInterval.Duration, a.logger)
	return orch.Run(ctx)
}

// ListenMode subscribes to the marketplace WebSocket feed and alerts on
// individual listings that land in the profit band, skipping the queue
// entirely. Reference prices are refreshed in the background.
func (a *App) ListenMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting listen mode")

	dispatcher := pipeline.NewNotifyDispatcher(deps.Notifier, a.logger)
	watcher := pipeline.NewWatcher(
		deps.PriceStore, dispatcher, a.scanParams(), a.cfg.Scanner.PriceTable, a.logger)

	wsFeed := feed.NewLisSkinsFeed(
		a.cfg.LisSkins.WsURL,
		deps.Market.WSToken,
		watcher.HandleEvent,
		a.logger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.RunPriceRefresh(gctx, a.cfg.Scanner.RefreshInterval.Duration)
	})
	g.Go(func() error {
		defer wsFeed.Close()
		return wsFeed.Run(gctx)
	})

	if err := g.Wait(); ctx.Err() == nil && err != nil {
		return err
	}
	return nil
}

// DumpMode periodically archives the raw marketplace export to object
// storage and prunes archives past the retention window.
func (a *App) DumpMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting dump mode",
		slog.Duration("interval", a.cfg.Archive.Interval.Duration),
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)

	loop := pipeline.NewArchiveLoop(
		deps.Market, deps.Archiver,
		a.cfg.LisSkins.Game, a.cfg.Archive.RetentionDays, a.logger)

	err := loop.RunLoop(ctx, a.cfg.Archive.Interval.Duration)
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		a.logger.Info("dump mode stopped")
		return nil
	}
	return err
}

// EncryptKeyMode encrypts the configured API key with the configured
// password and writes the blob to encrypted_key_path. It is a one-shot
// helper used when provisioning a host.
func (a *App) EncryptKeyMode(_ context.Context) error {
	key := a.cfg.LisSkins.ApiKey
	if key == "" {
		return fmt.Errorf("app: encrypt-key: lisskins.api_key (or SKINSBOT_LISSKINS_API_KEY) must be set")
	}
	if a.cfg.LisSkins.KeyPassword == "" {
		return fmt.Errorf("app: encrypt-key: lisskins.key_password must be set")
	}
	path := a.cfg.LisSkins.EncryptedKeyPath
	if path == "" {
		return fmt.Errorf("app: encrypt-key: lisskins.encrypted_key_path must be set")
	}

	blob, err := crypto.EncryptToken(key, a.cfg.LisSkins.KeyPassword)
	if err != nil {
		return fmt.Errorf("app: encrypt-key: %w", err)
	}
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return fmt.Errorf("app: encrypt-key: write %s: %w", path, err)
	}

	a.logger.Info("encrypted api key written", slog.String("path", path))
	return nil
}
