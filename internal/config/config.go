// Package config defines the top-level configuration for the watcher and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"pumpwatch/internal/screening"
	"pumpwatch/internal/trading"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PUMPWATCH_* environment
// variables.
type Config struct {
	Stream     StreamConfig     `toml:"stream"`
	Aggregator AggregatorConfig `toml:"aggregator"`
	Motion     MotionConfig     `toml:"motion"`
	Deep       DeepConfig       `toml:"deep"`
	Trading    TradingConfig    `toml:"trading"`
	Wallets    WalletsConfig    `toml:"wallets"`
	Postgres   PostgresConfig   `toml:"postgres"`
	ClickHouse ClickHouseConfig `toml:"clickhouse"`
	Solana     SolanaConfig     `toml:"solana"`
	GMGN       GMGNConfig       `toml:"gmgn"`
	PumpFun    PumpFunConfig    `toml:"pumpfun"`
	Notify     NotifyConfig     `toml:"notify"`
	Monitor    MonitorConfig    `toml:"monitor"`
	Server     ServerConfig     `toml:"server"`
}

// StreamConfig holds PumpPortal WebSocket parameters.
type StreamConfig struct {
	Endpoint     string   `toml:"endpoint"`
	PingInterval duration `toml:"ping_interval"`
	ReadTimeout  duration `toml:"read_timeout"`
	WriteTimeout duration `toml:"write_timeout"`
	ReconnectMin duration `toml:"reconnect_min"`
	ReconnectMax duration `toml:"reconnect_max"`
}

// AggregatorConfig holds sliding-window parameters.
type AggregatorConfig struct {
	Windows              []int    `toml:"windows"`                // minutes
	PrimaryWindowMinutes int      `toml:"primary_window_minutes"` // must appear in windows
	WalletWindowMinutes  int      `toml:"wallet_window_minutes"`
	IdleTimeout          duration `toml:"idle_timeout"` // evict tokens with no trades for this long
}

// MotionConfig holds motion screen thresholds.
type MotionConfig struct {
	MinTimeSinceLaunchSec float64 `toml:"min_time_since_launch_sec"`
	MinBuyVolumeSOL       float64 `toml:"min_buy_volume_sol"`
	MinUniqueBuyers       int     `toml:"min_unique_buyers"`
	MinBuySellRatio       float64 `toml:"min_buy_sell_ratio"`
	MinTxnVelocity        float64 `toml:"min_txn_velocity"`
	MinKnownWallets       int     `toml:"min_known_wallets"`
	MaxMarketCapUSD       float64 `toml:"max_market_cap_usd"`
	MaxBondingCurvePct    float64 `toml:"max_bonding_curve_pct"`
}

// DeepConfig holds deep screen thresholds.
type DeepConfig struct {
	MinMarketCapUSD        float64 `toml:"min_market_cap_usd"`
	MaxMarketCapUSD        float64 `toml:"max_market_cap_usd"`
	MinSmartWallets        int     `toml:"min_smart_wallets"`
	SmartWalletWindowMin   int     `toml:"smart_wallet_window_min"`
	MaxTopConcentrationPct float64 `toml:"max_top_concentration_pct"`
	TopHolderCount         int     `toml:"top_holder_count"`
	MinVolumeMcapRatio     float64 `toml:"min_volume_mcap_ratio"`
	MaxVolumeMcapRatio     float64 `toml:"max_volume_mcap_ratio"`
	MinActiveMinutes       float64 `toml:"min_active_minutes"`
	MinHolderCount         int     `toml:"min_holder_count"`
}

// TradingConfig holds paper trading parameters.
type TradingConfig struct {
	SizeSOL          float64  `toml:"size_sol"`
	TakeProfitPct    float64  `toml:"take_profit_pct"`
	StopLossPct      float64  `toml:"stop_loss_pct"`
	MaxOpenPositions int      `toml:"max_open_positions"`
	MaxDuration      duration `toml:"max_duration"`
}

// WalletsConfig holds tracked wallet set parameters.
type WalletsConfig struct {
	KnownFile       string   `toml:"known_file"` // optional seed files, one address per line
	SmartFile       string   `toml:"smart_file"`
	RefreshInterval duration `toml:"refresh_interval"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ClickHouseConfig holds ClickHouse connection parameters. Snapshots are
// skipped entirely when disabled.
type ClickHouseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	RunMigrations bool   `toml:"run_migrations"`
}

// SolanaConfig holds RPC parameters for holder concentration queries.
type SolanaConfig struct {
	RPCEndpoint string `toml:"rpc_endpoint"`
}

// GMGNConfig holds the holder count API parameters.
type GMGNConfig struct {
	BaseURL string `toml:"base_url"`
}

// PumpFunConfig holds pump.fun API parameters.
type PumpFunConfig struct {
	BaseURL string `toml:"base_url"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    int64    `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// MonitorConfig holds orchestration parameters.
type MonitorConfig struct {
	Workers          int      `toml:"workers"`
	QueueSize        int      `toml:"queue_size"`
	DeepInterval     duration `toml:"deep_interval"`
	SweepInterval    duration `toml:"sweep_interval"`
	SnapshotInterval duration `toml:"snapshot_interval"`
	AggSweepInterval duration `toml:"agg_sweep_interval"`
	UseMemory        bool     `toml:"use_memory"`
}

// ServerConfig holds the diagnostics HTTP server parameters.
type ServerConfig struct {
	MetricsAddr string `toml:"metrics_addr"`
}

// duration wraps time.Duration for TOML decoding.
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

// Defaults returns the built-in configuration.
func Defaults() Config {
	motion := screening.DefaultMotionConfig()
	deep := screening.DefaultDeepConfig()
	trade := trading.DefaultConfig()

	return Config{
		Stream: StreamConfig{
			Endpoint:     "wss://pumpportal.fun/api/data",
			PingInterval: duration{30 * time.Second},
			ReadTimeout:  duration{60 * time.Second},
			WriteTimeout: duration{10 * time.Second},
			ReconnectMin: duration{1 * time.Second},
			ReconnectMax: duration{30 * time.Second},
		},
		Aggregator: AggregatorConfig{
			Windows:              []int{1, 3, 5, 10},
			PrimaryWindowMinutes: 3,
			WalletWindowMinutes:  3,
			IdleTimeout:          duration{30 * time.Minute},
		},
		Motion: MotionConfig{
			MinTimeSinceLaunchSec: motion.MinTimeSinceLaunchSeconds,
			MinBuyVolumeSOL:       motion.MinBuyVolumeSOL,
			MinUniqueBuyers:       int(motion.MinUniqueBuyers),
			MinBuySellRatio:       motion.MinBuySellRatio,
			MinTxnVelocity:        motion.MinTxnVelocity,
			MinKnownWallets:       int(motion.MinKnownWallets),
			MaxMarketCapUSD:       motion.MaxMarketCapUSD,
			MaxBondingCurvePct:    motion.MaxBondingCurvePct,
		},
		Deep: DeepConfig{
			MinMarketCapUSD:        deep.MinMarketCapUSD,
			MaxMarketCapUSD:        deep.MaxMarketCapUSD,
			MinSmartWallets:        int(deep.MinSmartWallets),
			SmartWalletWindowMin:   deep.SmartWalletWindowMin,
			MaxTopConcentrationPct: deep.MaxTopConcentrationPct,
			TopHolderCount:         10,
			MinVolumeMcapRatio:     deep.MinVolumeMcapRatio,
			MaxVolumeMcapRatio:     deep.MaxVolumeMcapRatio,
			MinActiveMinutes:       deep.MinActiveMinutes,
			MinHolderCount:         int(deep.MinHolderCount),
		},
		Trading: TradingConfig{
			SizeSOL:          trade.SizeSOL,
			TakeProfitPct:    trade.TakeProfitPct,
			StopLossPct:      trade.StopLossPct,
			MaxOpenPositions: trade.MaxOpenPositions,
			MaxDuration:      duration{trade.MaxDuration},
		},
		Wallets: WalletsConfig{
			RefreshInterval: duration{10 * time.Minute},
		},
		Postgres: PostgresConfig{
			RunMigrations: true,
		},
		ClickHouse: ClickHouseConfig{
			RunMigrations: true,
		},
		Solana: SolanaConfig{
			RPCEndpoint: "https://api.mainnet-beta.solana.com",
		},
		GMGN: GMGNConfig{
			BaseURL: "https://gmgn.ai",
		},
		PumpFun: PumpFunConfig{
			BaseURL: "https://frontend-api.pump.fun",
		},
		Monitor: MonitorConfig{
			Workers:          4,
			QueueSize:        4096,
			DeepInterval:     duration{30 * time.Second},
			SweepInterval:    duration{30 * time.Second},
			SnapshotInterval: duration{60 * time.Second},
			AggSweepInterval: duration{10 * time.Minute},
		},
		Server: ServerConfig{
			MetricsAddr: ":9090",
		},
	}
}

// Validate checks the configuration for inconsistencies. All problems are
// reported at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Stream.Endpoint == "" {
		errs = append(errs, "stream: endpoint must not be empty")
	}

	if len(c.Aggregator.Windows) == 0 {
		errs = append(errs, "aggregator: windows must not be empty")
	}
	primaryFound := false
	for _, w := range c.Aggregator.Windows {
		if w <= 0 {
			errs = append(errs, fmt.Sprintf("aggregator: window %d must be positive", w))
		}
		if w == c.Aggregator.PrimaryWindowMinutes {
			primaryFound = true
		}
	}
	if !primaryFound {
		errs = append(errs, fmt.Sprintf("aggregator: primary window %dm must appear in windows", c.Aggregator.PrimaryWindowMinutes))
	}
	if c.Aggregator.WalletWindowMinutes <= 0 {
		errs = append(errs, "aggregator: wallet_window_minutes must be positive")
	}

	if c.Deep.MinMarketCapUSD >= c.Deep.MaxMarketCapUSD {
		errs = append(errs, "deep: min_market_cap_usd must be below max_market_cap_usd")
	}
	if c.Deep.MinVolumeMcapRatio >= c.Deep.MaxVolumeMcapRatio {
		errs = append(errs, "deep: min_volume_mcap_ratio must be below max_volume_mcap_ratio")
	}

	if err := c.TradingConfig().Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("trading: %v", err))
	}

	if !c.Monitor.UseMemory && c.Postgres.DSN == "" {
		errs = append(errs, "postgres: dsn is required unless monitor.use_memory is set")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.DSN == "" {
		errs = append(errs, "clickhouse: dsn is required when enabled")
	}
	if c.Monitor.Workers <= 0 {
		errs = append(errs, "monitor: workers must be positive")
	}
	if c.Monitor.QueueSize <= 0 {
		errs = append(errs, "monitor: queue_size must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// MotionConfig converts the TOML section to screening thresholds.
func (c *Config) MotionConfig() screening.MotionConfig {
	return screening.MotionConfig{
		PrimaryWindowMinutes:      c.Aggregator.PrimaryWindowMinutes,
		WalletWindowMinutes:       c.Aggregator.WalletWindowMinutes,
		MinTimeSinceLaunchSeconds: c.Motion.MinTimeSinceLaunchSec,
		MinBuyVolumeSOL:           c.Motion.MinBuyVolumeSOL,
		MinUniqueBuyers:           float64(c.Motion.MinUniqueBuyers),
		MinBuySellRatio:           c.Motion.MinBuySellRatio,
		MinTxnVelocity:            c.Motion.MinTxnVelocity,
		MinKnownWallets:           float64(c.Motion.MinKnownWallets),
		MaxMarketCapUSD:           c.Motion.MaxMarketCapUSD,
		MaxBondingCurvePct:        c.Motion.MaxBondingCurvePct,
	}
}

// DeepConfig converts the TOML section to screening thresholds.
func (c *Config) DeepConfig() screening.DeepConfig {
	return screening.DeepConfig{
		MinMarketCapUSD:        c.Deep.MinMarketCapUSD,
		MaxMarketCapUSD:        c.Deep.MaxMarketCapUSD,
		MinSmartWallets:        float64(c.Deep.MinSmartWallets),
		SmartWalletWindowMin:   c.Deep.SmartWalletWindowMin,
		MaxTopConcentrationPct: c.Deep.MaxTopConcentrationPct,
		MinVolumeMcapRatio:     c.Deep.MinVolumeMcapRatio,
		MaxVolumeMcapRatio:     c.Deep.MaxVolumeMcapRatio,
		MinActiveMinutes:       c.Deep.MinActiveMinutes,
		MinHolderCount:         float64(c.Deep.MinHolderCount),
	}
}

// TradingConfig converts the TOML section to trading parameters.
func (c *Config) TradingConfig() trading.Config {
	return trading.Config{
		SizeSOL:          c.Trading.SizeSOL,
		TakeProfitPct:    c.Trading.TakeProfitPct,
		StopLossPct:      c.Trading.StopLossPct,
		MaxOpenPositions: c.Trading.MaxOpenPositions,
		MaxDuration:      c.Trading.MaxDuration.Duration,
	}
}
