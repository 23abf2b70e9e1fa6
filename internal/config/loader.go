package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SKINSBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SKINSBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── LisSkins ──
	setStr(&cfg.LisSkins.ApiKey, "SKINSBOT_LISSKINS_API_KEY")
	setStr(&cfg.LisSkins.EncryptedKeyPath, "SKINSBOT_LISSKINS_ENCRYPTED_KEY_PATH")
	setStr(&cfg.LisSkins.KeyPassword, "SKINSBOT_LISSKINS_KEY_PASSWORD")
	setStr(&cfg.LisSkins.ApiBase, "SKINSBOT_LISSKINS_API_BASE")
	setStr(&cfg.LisSkins.ExportBase, "SKINSBOT_LISSKINS_EXPORT_BASE")
	setStr(&cfg.LisSkins.WsURL, "SKINSBOT_LISSKINS_WS_URL")
	setStr(&cfg.LisSkins.Game, "SKINSBOT_LISSKINS_GAME")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.DSN, "SKINSBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SKINSBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SKINSBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SKINSBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SKINSBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SKINSBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SKINSBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SKINSBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SKINSBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SKINSBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SKINSBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SKINSBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SKINSBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SKINSBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SKINSBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SKINSBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SKINSBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.SnapshotTTL, "SKINSBOT_REDIS_SNAPSHOT_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SKINSBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SKINSBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "SKINSBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SKINSBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SKINSBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SKINSBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SKINSBOT_S3_FORCE_PATH_STYLE")

	// ── Scanner ──
	setStr(&cfg.Scanner.PriceTable, "SKINSBOT_SCANNER_PRICE_TABLE")
	setFloat64(&cfg.Scanner.FeeRate, "SKINSBOT_SCANNER_FEE_RATE")
	setFloat64(&cfg.Scanner.MinRatio, "SKINSBOT_SCANNER_MIN_RATIO")
	setFloat64(&cfg.Scanner.MaxRatio, "SKINSBOT_SCANNER_MAX_RATIO")
	setInt(&cfg.Scanner.QueueCapacity, "SKINSBOT_SCANNER_QUEUE_CAPACITY")
	setDuration(&cfg.Scanner.RefreshInterval, "SKINSBOT_SCANNER_REFRESH_INTERVAL")
	setDuration(&cfg.Scanner.DrainInterval, "SKINSBOT_SCANNER_DRAIN_INTERVAL")

	// ── Buy ──
	setStr(&cfg.Buy.Partner, "SKINSBOT_BUY_PARTNER")
	setStr(&cfg.Buy.Token, "SKINSBOT_BUY_TOKEN")
	setFloat64(&cfg.Buy.MaxPriceFactor, "SKINSBOT_BUY_MAX_PRICE_FACTOR")
	setBool(&cfg.Buy.SkipUnavailable, "SKINSBOT_BUY_SKIP_UNAVAILABLE")
	setDuration(&cfg.Buy.SuccessPause, "SKINSBOT_BUY_SUCCESS_PAUSE")
	setDuration(&cfg.Buy.FailurePause, "SKINSBOT_BUY_FAILURE_PAUSE")
	setInt(&cfg.Buy.RateLimit, "SKINSBOT_BUY_RATE_LIMIT")
	setDuration(&cfg.Buy.RateLimitWindow, "SKINSBOT_BUY_RATE_LIMIT_WINDOW")

	// ── Archive ──
	setDuration(&cfg.Archive.Interval, "SKINSBOT_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.RetentionDays, "SKINSBOT_ARCHIVE_RETENTION_DAYS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SKINSBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SKINSBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SKINSBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SKINSBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SKINSBOT_MODE")
	setStr(&cfg.LogLevel, "SKINSBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
