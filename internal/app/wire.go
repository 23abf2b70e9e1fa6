package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/pkosilov/skinsbot/internal/blob/s3"
	"github.com/pkosilov/skinsbot/internal/cache/redis"
	"github.com/pkosilov/skinsbot/internal/config"
	"github.com/pkosilov/skinsbot/internal/crypto"
	"github.com/pkosilov/skinsbot/internal/domain"
	"github.com/pkosilov/skinsbot/internal/notify"
	"github.com/pkosilov/skinsbot/internal/platform/lisskins"
	"github.com/pkosilov/skinsbot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Reference prices
	PriceStore domain.PriceStore

	// Marketplace
	Market *lisskins.Client

	// Caches (nil unless Redis is enabled)
	ListingCache domain.ListingCache
	RateLimiter  domain.RateLimiter
	LockManager  domain.LockManager

	// Blob storage (dump mode only)
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that scan against reference prices.
func needsPostgres(mode string) bool {
	switch mode {
	case "notify", "buy", "listen":
		return true
	default:
		return false
	}
}

// needsAPIKey returns true for modes that call authenticated endpoints.
func needsAPIKey(mode string) bool {
	switch mode {
	case "buy", "listen":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Marketplace client ---
	apiKey := cfg.LisSkins.ApiKey
	if needsAPIKey(mode) {
		key, err := crypto.LoadToken(crypto.TokenConfig{
			RawToken:           cfg.LisSkins.ApiKey,
			EncryptedTokenPath: cfg.LisSkins.EncryptedKeyPath,
			Password:           cfg.LisSkins.KeyPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: api key: %w", err)
		}
		apiKey = key
	}
	deps.Market = lisskins.NewClient(cfg.LisSkins.ApiBase, cfg.LisSkins.ExportBase, apiKey, cfg.LisSkins.Game)

	// --- PostgreSQL (only for modes that read reference prices) ---
	if needsPostgres(mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.PriceStore = postgres.NewPriceStore(pgClient.Pool())
	}

	// --- Redis (optional: snapshot fallback, purchase rate limit, lock) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.ListingCache = redis.NewListingCache(redisClient, cfg.Redis.SnapshotTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
	}

	// --- S3 blob storage (dump mode only) ---
	if mode == "dump" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), s3blob.NewReader(s3Client))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
