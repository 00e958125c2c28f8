// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBSCAN_* environment variables.
type Config struct {
	Symbols  []string       `toml:"symbols"`
	Venues   []VenueConfig  `toml:"venues"`
	Scan     ScanConfig     `toml:"scan"`
	Fees     FeesConfig     `toml:"fees"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Archive  ArchiveConfig  `toml:"archive"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// VenueConfig declares one venue connector. Kind selects the adapter at
// construction time; the remaining fields are adapter-specific.
type VenueConfig struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"` // cex | cex_ws | dex | bridge | sim

	// cex / cex_ws / bridge
	Exchange string   `toml:"exchange"` // cex: binance, okx, bybit, gate, kucoin
	WsURL    string   `toml:"ws_url"`
	WsMaxAge duration `toml:"ws_max_age"` // staleness cutoff for streamed quotes

	// bridge
	NodeURL   string  `toml:"node_url"`
	SpreadPct float64 `toml:"spread_pct"`

	// dex
	RPCURL        string  `toml:"rpc_url"`
	PoolAddress   string  `toml:"pool_address"`
	PoolSymbol    string  `toml:"pool_symbol"` // canonical pair the pool serves
	BaseIsToken0  bool    `toml:"base_is_token0"`
	Token0Decimal int     `toml:"token0_decimals"`
	Token1Decimal int     `toml:"token1_decimals"`
	PoolFeePct    float64 `toml:"pool_fee_pct"`

	// sim
	SimBasePrice float64 `toml:"sim_base_price"`
	SimSpreadPct float64 `toml:"sim_spread_pct"`
	SimSeed      int64   `toml:"sim_seed"`
}

// ScanConfig holds the scan-cycle parameters.
type ScanConfig struct {
	// ThresholdPct is the minimum net-profit percentage an opportunity must
	// strictly exceed to be reported.
	ThresholdPct float64  `toml:"threshold_pct"`
	Interval     duration `toml:"interval"`
	FetchTimeout duration `toml:"fetch_timeout"`
	// RefreshFees controls whether venue-reported withdrawal fees are merged
	// into the fee model between scans.
	RefreshFees bool `toml:"refresh_fees"`
}

// FeesConfig holds the static fee tables: a default schedule applied to any
// venue without an explicit entry, and per-venue overrides.
type FeesConfig struct {
	DefaultTakerRate  float64                      `toml:"default_taker_rate"`
	DefaultWithdrawal map[string]float64           `toml:"default_withdrawal"`
	Venues            map[string]VenueFeeOverrides `toml:"venues"`
}

// VenueFeeOverrides is the per-venue fee entry.
type VenueFeeOverrides struct {
	TakerRate  float64            `toml:"taker_rate"`
	Withdrawal map[string]float64 `toml:"withdrawal"`
}

// PostgresConfig holds PostgreSQL connection parameters for tick history.
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
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// ArchiveConfig holds S3 archival parameters for aged-out tick history.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	Endpoint      string `toml:"endpoint"`
	Region        string `toml:"region"`
	Bucket        string `toml:"bucket"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	RetentionDays int    `toml:"retention_days"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "10s", "5m").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Symbols: []string{"BTC/USDT", "ETH/USDT"},
		Venues: []VenueConfig{
			{Name: "binance", Kind: "sim", SimBasePrice: 50000, SimSpreadPct: 0.0004},
			{Name: "okx", Kind: "sim", SimBasePrice: 50000, SimSpreadPct: 0.0004},
			{Name: "bybit", Kind: "sim", SimBasePrice: 50000, SimSpreadPct: 0.0004},
		},
		Scan: ScanConfig{
			ThresholdPct: 0.2,
			Interval:     duration{10 * time.Second},
			FetchTimeout: duration{5 * time.Second},
			RefreshFees:  true,
		},
		Fees: FeesConfig{
			DefaultTakerRate:  0.002,
			DefaultWithdrawal: map[string]float64{},
			Venues:            map[string]VenueFeeOverrides{},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbscan",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Region:        "us-east-1",
			Bucket:        "arbscan-history",
			RetentionDays: 90,
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected", "scan_error"},
		},
		Mode:     "demo",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":  true,
	"watch": true,
	"demo":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validVenueKinds = map[string]bool{
	"cex":    true,
	"cex_ws": true,
	"dex":    true,
	"bridge": true,
	"sim":    true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, watch, demo)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(c.Symbols) == 0 {
		errs = append(errs, "symbols: at least one symbol is required")
	}
	for _, s := range c.Symbols {
		if !strings.Contains(s, "/") {
			errs = append(errs, fmt.Sprintf("symbols: %q is not in BASE/QUOTE form", s))
		}
	}

	if len(c.Venues) < 2 {
		errs = append(errs, "venues: at least two venues are required to scan for arbitrage")
	}
	seen := map[string]bool{}
	for i, v := range c.Venues {
		if v.Name == "" {
			errs = append(errs, fmt.Sprintf("venues[%d]: name must not be empty", i))
		}
		if seen[v.Name] {
			errs = append(errs, fmt.Sprintf("venues[%d]: duplicate name %q", i, v.Name))
		}
		seen[v.Name] = true
		if !validVenueKinds[v.Kind] {
			errs = append(errs, fmt.Sprintf("venues[%d]: unknown kind %q (valid: cex, cex_ws, dex, bridge, sim)", i, v.Kind))
			continue
		}
		switch v.Kind {
		case "cex":
			if v.Exchange == "" {
				errs = append(errs, fmt.Sprintf("venues[%d]: exchange is required for kind cex", i))
			}
		case "cex_ws":
			if v.WsURL == "" {
				errs = append(errs, fmt.Sprintf("venues[%d]: ws_url is required for kind cex_ws", i))
			}
		case "dex":
			if v.RPCURL == "" {
				errs = append(errs, fmt.Sprintf("venues[%d]: rpc_url is required for kind dex", i))
			}
			if v.PoolAddress == "" {
				errs = append(errs, fmt.Sprintf("venues[%d]: pool_address is required for kind dex", i))
			}
			if v.PoolSymbol == "" {
				errs = append(errs, fmt.Sprintf("venues[%d]: pool_symbol is required for kind dex", i))
			}
		}
	}

	if c.Scan.ThresholdPct < 0 {
		errs = append(errs, "scan: threshold_pct must be >= 0")
	}
	if c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be positive")
	}
	if c.Scan.FetchTimeout.Duration <= 0 {
		errs = append(errs, "scan: fetch_timeout must be positive")
	}

	if c.Fees.DefaultTakerRate < 0 {
		errs = append(errs, "fees: default_taker_rate must be >= 0")
	}
	for name, v := range c.Fees.Venues {
		if v.TakerRate < 0 {
			errs = append(errs, fmt.Sprintf("fees.venues.%s: taker_rate must be >= 0", name))
		}
		for asset, amt := range v.Withdrawal {
			if amt < 0 {
				errs = append(errs, fmt.Sprintf("fees.venues.%s: withdrawal fee for %s must be >= 0", name, asset))
			}
		}
	}

	// Postgres is only dialled in scan/watch modes, but the pool bounds must
	// always be coherent.
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty when enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1 when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
