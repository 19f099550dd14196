package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PUMPWATCH_* environment variable overrides,
// and returns the final Config. An empty path skips the file and uses
// defaults plus overrides. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PUMPWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// Stream
	setStr(&cfg.Stream.Endpoint, "PUMPWATCH_STREAM_ENDPOINT")

	// Storage
	setStr(&cfg.Postgres.DSN, "PUMPWATCH_POSTGRES_DSN")
	setBool(&cfg.Postgres.RunMigrations, "PUMPWATCH_POSTGRES_RUN_MIGRATIONS")
	setBool(&cfg.ClickHouse.Enabled, "PUMPWATCH_CLICKHOUSE_ENABLED")
	setStr(&cfg.ClickHouse.DSN, "PUMPWATCH_CLICKHOUSE_DSN")
	setBool(&cfg.ClickHouse.RunMigrations, "PUMPWATCH_CLICKHOUSE_RUN_MIGRATIONS")

	// Providers
	setStr(&cfg.Solana.RPCEndpoint, "PUMPWATCH_SOLANA_RPC_ENDPOINT")
	setStr(&cfg.GMGN.BaseURL, "PUMPWATCH_GMGN_BASE_URL")
	setStr(&cfg.PumpFun.BaseURL, "PUMPWATCH_PUMPFUN_BASE_URL")

	// Wallets
	setStr(&cfg.Wallets.KnownFile, "PUMPWATCH_WALLETS_KNOWN_FILE")
	setStr(&cfg.Wallets.SmartFile, "PUMPWATCH_WALLETS_SMART_FILE")
	setDuration(&cfg.Wallets.RefreshInterval, "PUMPWATCH_WALLETS_REFRESH_INTERVAL")

	// Trading
	setFloat64(&cfg.Trading.SizeSOL, "PUMPWATCH_TRADING_SIZE_SOL")
	setFloat64(&cfg.Trading.TakeProfitPct, "PUMPWATCH_TRADING_TAKE_PROFIT_PCT")
	setFloat64(&cfg.Trading.StopLossPct, "PUMPWATCH_TRADING_STOP_LOSS_PCT")
	setInt(&cfg.Trading.MaxOpenPositions, "PUMPWATCH_TRADING_MAX_OPEN_POSITIONS")
	setDuration(&cfg.Trading.MaxDuration, "PUMPWATCH_TRADING_MAX_DURATION")

	// Notify
	setStr(&cfg.Notify.TelegramToken, "PUMPWATCH_NOTIFY_TELEGRAM_TOKEN")
	setInt64(&cfg.Notify.TelegramChatID, "PUMPWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PUMPWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PUMPWATCH_NOTIFY_EVENTS")

	// Monitor
	setInt(&cfg.Monitor.Workers, "PUMPWATCH_MONITOR_WORKERS")
	setInt(&cfg.Monitor.QueueSize, "PUMPWATCH_MONITOR_QUEUE_SIZE")
	setBool(&cfg.Monitor.UseMemory, "PUMPWATCH_MONITOR_USE_MEMORY")

	// Server
	setStr(&cfg.Server.MetricsAddr, "PUMPWATCH_SERVER_METRICS_ADDR")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
