// Package config defines the top-level configuration for the skins bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SKINSBOT_* environment variables.
type Config struct {
	LisSkins LisSkinsConfig `toml:"lisskins"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Scanner  ScannerConfig  `toml:"scanner"`
	Buy      BuyConfig      `toml:"buy"`
	Archive  ArchiveConfig  `toml:"archive"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// LisSkinsConfig holds lis-skins API credentials and endpoints.
type LisSkinsConfig struct {
	ApiKey           string `toml:"api_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	ApiBase          string `toml:"api_base"`
	ExportBase       string `toml:"export_base"`
	WsURL            string `toml:"ws_url"`
	Game             string `toml:"game"`
}

// PostgresConfig holds PostgreSQL connection parameters for the reference
// price database.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	Password    string   `toml:"password"`
	DB          int      `toml:"db"`
	PoolSize    int      `toml:"pool_size"`
	MaxRetries  int      `toml:"max_retries"`
	TLSEnabled  bool     `toml:"tls_enabled"`
	SnapshotTTL duration `toml:"snapshot_ttl"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archiving.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ScannerConfig holds the arbitrage scan parameters: the profit band, the
// queue size, and the loop timings.
type ScannerConfig struct {
	PriceTable string  `toml:"price_table"`
	FeeRate    float64 `toml:"fee_rate"`
	MinRatio   float64 `toml:"min_ratio"`
	// MaxRatio caps the accepted profit ratio; listings above it are treated
	// as data errors. Zero or negative disables the cap.
	MaxRatio float64 `toml:"max_ratio"`

	QueueCapacity   int      `toml:"queue_capacity"`
	RefreshInterval duration `toml:"refresh_interval"`
	DrainInterval   duration `toml:"drain_interval"`
}

// BuyConfig holds auto-purchase parameters. Partner and Token identify the
// Steam trade link the bought items are sent to.
type BuyConfig struct {
	Partner         string   `toml:"partner"`
	Token           string   `toml:"token"`
	MaxPriceFactor  float64  `toml:"max_price_factor"`
	SkipUnavailable bool     `toml:"skip_unavailable"`
	SuccessPause    duration `toml:"success_pause"`
	FailurePause    duration `toml:"failure_pause"`
	// RateLimit caps buy submissions per window when Redis is enabled.
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// ArchiveConfig holds snapshot archiving parameters for dump mode.
type ArchiveConfig struct {
	Interval      duration `toml:"interval"`
	RetentionDays int      `toml:"retention_days"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		LisSkins: LisSkinsConfig{
			ApiBase:    "https://api.lis-skins.com",
			ExportBase: "https://lis-skins.com",
			WsURL:      "wss://ws.lis-skins.com/connection/websocket",
			Game:       "cs2",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:     false,
			Addr:        "localhost:6379",
			DB:          0,
			PoolSize:    20,
			MaxRetries:  3,
			SnapshotTTL: duration{30 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "skinsbot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Scanner: ScannerConfig{
			PriceTable:      "cs2_sales_data",
			FeeRate:         0.144,
			MinRatio:        1.1,
			MaxRatio:        1.9,
			QueueCapacity:   500,
			RefreshInterval: duration{5 * time.Minute},
			DrainInterval:   duration{5 * time.Second},
		},
		Buy: BuyConfig{
			MaxPriceFactor:  1.0,
			SkipUnavailable: true,
			SuccessPause:    duration{15 * time.Second},
			FailurePause:    duration{2 * time.Second},
			RateLimit:       30,
			RateLimitWindow: duration{time.Minute},
		},
		Archive: ArchiveConfig{
			Interval:      duration{time.Hour},
			RetentionDays: 90,
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity", "purchase"},
		},
		Mode:     "notify",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"notify":      true,
	"buy":         true,
	"listen":      true,
	"dump":        true,
	"encrypt-key": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: notify, buy, listen, dump, encrypt-key)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// LisSkins. The API key is needed everywhere except encrypt-key (which
	// produces it) and dump (public export only).
	if mode == "buy" || mode == "listen" {
		if c.LisSkins.ApiKey == "" && c.LisSkins.EncryptedKeyPath == "" {
			errs = append(errs, "lisskins: either api_key or encrypted_key_path must be set for mode "+mode)
		}
		if c.LisSkins.EncryptedKeyPath != "" && c.LisSkins.KeyPassword == "" {
			errs = append(errs, "lisskins: key_password is required when encrypted_key_path is set")
		}
	}
	if c.LisSkins.ExportBase == "" {
		errs = append(errs, "lisskins: export_base must not be empty")
	}
	if c.LisSkins.Game == "" {
		errs = append(errs, "lisskins: game must not be empty")
	}

	// Postgres is the reference price source for every scanning mode.
	if mode != "dump" && mode != "encrypt-key" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if mode == "dump" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty for dump mode")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty for dump mode")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	// Scanner band.
	if c.Scanner.FeeRate < 0 || c.Scanner.FeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("scanner: fee_rate must be in [0, 1), got %g", c.Scanner.FeeRate))
	}
	if c.Scanner.MinRatio <= 0 {
		errs = append(errs, "scanner: min_ratio must be > 0")
	}
	if c.Scanner.MaxRatio > 0 && c.Scanner.MaxRatio < c.Scanner.MinRatio {
		errs = append(errs, "scanner: max_ratio must be >= min_ratio (or <= 0 to disable)")
	}
	if c.Scanner.QueueCapacity < 1 {
		errs = append(errs, "scanner: queue_capacity must be >= 1")
	}
	if c.Scanner.RefreshInterval.Duration <= 0 {
		errs = append(errs, "scanner: refresh_interval must be > 0")
	}
	if c.Scanner.DrainInterval.Duration <= 0 {
		errs = append(errs, "scanner: drain_interval must be > 0")
	}
	if c.Scanner.PriceTable == "" {
		errs = append(errs, "scanner: price_table must not be empty")
	}

	// Buy credentials. Partner and token come from the Steam trade link and
	// are mandatory on the purchase endpoint.
	if mode == "buy" {
		if c.Buy.Partner == "" {
			errs = append(errs, "buy: partner must not be empty for buy mode")
		}
		if c.Buy.Token == "" {
			errs = append(errs, "buy: token must not be empty for buy mode")
		}
		if c.Buy.MaxPriceFactor < 0 {
			errs = append(errs, "buy: max_price_factor must be >= 0")
		}
	}

	// Notify modes need at least one channel configured.
	if mode == "notify" || mode == "listen" {
		hasTelegram := c.Notify.TelegramToken != "" && c.Notify.TelegramChatID != ""
		if !hasTelegram && c.Notify.DiscordWebhookURL == "" {
			errs = append(errs, "notify: at least one channel (telegram or discord) is required for mode "+mode)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
