// Package main runs the live watcher: the PumpPortal stream feeds the
// aggregation and screening pipeline, passing tokens open paper positions,
// and diagnostics are served over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pumpwatch/internal/aggregator"
	"pumpwatch/internal/config"
	"pumpwatch/internal/features"
	"pumpwatch/internal/gmgn"
	"pumpwatch/internal/monitor"
	"pumpwatch/internal/notify"
	"pumpwatch/internal/observability"
	"pumpwatch/internal/pumpfun"
	"pumpwatch/internal/pumpportal"
	"pumpwatch/internal/screening"
	"pumpwatch/internal/solana"
	"pumpwatch/internal/storage"
	chstore "pumpwatch/internal/storage/clickhouse"
	"pumpwatch/internal/storage/memory"
	"pumpwatch/internal/storage/migrations"
	pgstore "pumpwatch/internal/storage/postgres"
	"pumpwatch/internal/trading"
	"pumpwatch/internal/wallets"
)

// appStores holds the storage backends selected by configuration.
type appStores struct {
	tokens     storage.TokenStore
	trades     storage.TradeStore
	alerts     storage.AlertStore
	positions  storage.PositionStore
	walletSets storage.WalletSetStore
	snapshots  storage.SnapshotStore
}

func main() {
	configPath := flag.String("config", os.Getenv("PUMPWATCH_CONFIG"), "Path to TOML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Diagnostics HTTP address (overrides config)")
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *useMemory {
		cfg.Monitor.UseMemory = true
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Create stores: %v", err)
	}
	defer cleanup()

	app, err := buildApp(ctx, cfg, stores, logger)
	if err != nil {
		logger.Fatalf("Build pipeline: %v", err)
	}

	done := make(chan error, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()

		select {
		case <-sigCh:
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go app.startHTTPServer(cfg.Server.MetricsAddr)

	err = app.Run(ctx)
	done <- err

	if err != nil && err != context.Canceled {
		logger.Fatalf("Watcher error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores selects memory or PostgreSQL backends and runs migrations
// when configured. Snapshots go to ClickHouse when enabled, memory
// otherwise.
func createStores(ctx context.Context, cfg *config.Config) (*appStores, func(), error) {
	if cfg.Monitor.UseMemory {
		stores := &appStores{
			tokens:     memory.NewTokenStore(),
			trades:     memory.NewTradeStore(),
			alerts:     memory.NewAlertStore(),
			positions:  memory.NewPositionStore(),
			walletSets: memory.NewWalletSetStore(),
			snapshots:  memory.NewSnapshotStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}

	stores := &appStores{
		tokens:     pgstore.NewTokenStore(pool),
		trades:     pgstore.NewTradeStore(pool),
		alerts:     pgstore.NewAlertStore(pool),
		positions:  pgstore.NewPositionStore(pool),
		walletSets: pgstore.NewWalletSetStore(pool),
		snapshots:  memory.NewSnapshotStore(),
	}
	cleanup := func() { pool.Close() }

	if cfg.ClickHouse.Enabled {
		var conn *chstore.Conn
		if cfg.ClickHouse.RunMigrations {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		}
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		stores.snapshots = chstore.NewSnapshotStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// app holds the assembled pipeline.
type app struct {
	cfg     *config.Config
	stream  *pumpportal.Client
	runner  *monitor.Runner
	agg     *aggregator.Aggregator
	trading *trading.Manager
	logger  *log.Logger
	started time.Time
}

// buildApp wires the stream, screens, trading manager and runner.
func buildApp(ctx context.Context, cfg *config.Config, stores *appStores, logger *log.Logger) (*app, error) {
	known, err := wallets.NewTracker(wallets.TrackerOptions{
		Name:   "known",
		Store:  stores.walletSets,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	smart, err := wallets.NewTracker(wallets.TrackerOptions{
		Name:   "smart",
		Store:  stores.walletSets,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	if err := seedWallets(ctx, known, cfg.Wallets.KnownFile, logger); err != nil {
		return nil, err
	}
	if err := seedWallets(ctx, smart, cfg.Wallets.SmartFile, logger); err != nil {
		return nil, err
	}

	agg := aggregator.New()
	engine, err := features.NewEngine(features.EngineOptions{
		Aggregator:           agg,
		Tokens:               stores.tokens,
		Trades:               stores.trades,
		KnownWallets:         known,
		Windows:              cfg.Aggregator.Windows,
		WalletWindowMinutes:  cfg.Aggregator.WalletWindowMinutes,
		PrimaryWindowMinutes: cfg.Aggregator.PrimaryWindowMinutes,
	})
	if err != nil {
		return nil, err
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint)
	deep, err := screening.NewDeepScreen(screening.DeepScreenOptions{
		Config:       cfg.DeepConfig(),
		Aggregator:   agg,
		SmartWallets: smart,
		Concentration: &concentrationProvider{
			rpc:  rpc,
			topN: cfg.Deep.TopHolderCount,
		},
		Holders: gmgn.NewClient(gmgn.WithBaseURL(cfg.GMGN.BaseURL)),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	mgr, err := trading.NewManager(trading.ManagerOptions{
		Config: cfg.TradingConfig(),
		Store:  stores.positions,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	if err := mgr.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restore positions: %w", err)
	}

	notifier := buildNotifier(cfg, logger)

	// The stream and the runner reference each other: the stream delivers
	// events to the runner, the runner manages trade subscriptions on the
	// stream. The handler closures resolve the runner after construction.
	var runner *monitor.Runner
	streamCfg := pumpportal.ClientConfig{
		PingInterval: cfg.Stream.PingInterval.Duration,
		ReadTimeout:  cfg.Stream.ReadTimeout.Duration,
		WriteTimeout: cfg.Stream.WriteTimeout.Duration,
		ReconnectMin: cfg.Stream.ReconnectMin.Duration,
		ReconnectMax: cfg.Stream.ReconnectMax.Duration,
	}
	stream, err := pumpportal.NewClient(pumpportal.ClientOptions{
		Endpoint: cfg.Stream.Endpoint,
		Config:   &streamCfg,
		OnLaunch: func(l *pumpportal.Launch) { runner.HandleLaunch(l) },
		OnTrade:  func(t *pumpportal.Trade) { runner.HandleTrade(t) },
		OnParseError: func(err error) {
			observability.RecordParseError()
			logger.Printf("Stream parse error: %v", err)
		},
		OnReconnect: observability.RecordReconnect,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	runner, err = monitor.NewRunner(monitor.RunnerOptions{
		Workers:               cfg.Monitor.Workers,
		QueueSize:             cfg.Monitor.QueueSize,
		DeepInterval:          cfg.Monitor.DeepInterval.Duration,
		SweepInterval:         cfg.Monitor.SweepInterval.Duration,
		SnapshotInterval:      cfg.Monitor.SnapshotInterval.Duration,
		WalletRefreshInterval: cfg.Wallets.RefreshInterval.Duration,
		AggSweepInterval:      cfg.Monitor.AggSweepInterval.Duration,
		IdleTimeout:           cfg.Aggregator.IdleTimeout.Duration,
		Aggregator:            agg,
		Features:              engine,
		Motion:                screening.NewMotionScreen(cfg.MotionConfig()),
		Deep:                  deep,
		Guard:                 screening.NewGuard(),
		Trading:               mgr,
		Tokens:                stores.tokens,
		Trades:                stores.trades,
		Alerts:                stores.alerts,
		Snapshots:             stores.snapshots,
		KnownWallets:          known,
		SmartWallets:          smart,
		Tracker:               stream,
		Coins:                 pumpfun.NewClient(pumpfun.WithBaseURL(cfg.PumpFun.BaseURL)),
		Notifier:              notifier,
		Logger:                logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		stream:  stream,
		runner:  runner,
		agg:     agg,
		trading: mgr,
		logger:  logger,
		started: time.Now(),
	}, nil
}

// seedWallets loads a seed file into a tracker, falling back to the
// stored set when no file is configured.
func seedWallets(ctx context.Context, tracker *wallets.Tracker, path string, logger *log.Logger) error {
	if path == "" {
		return tracker.Refresh(ctx)
	}
	addresses, dropped, err := wallets.LoadFile(path)
	if err != nil {
		return fmt.Errorf("seed %s wallets: %w", tracker.Name(), err)
	}
	if dropped > 0 {
		logger.Printf("Dropped %d invalid address(es) from %s", dropped, path)
	}
	if err := tracker.Replace(ctx, addresses, time.Now()); err != nil {
		return fmt.Errorf("seed %s wallets: %w", tracker.Name(), err)
	}
	logger.Printf("Seeded %d %s wallet(s) from %s", len(addresses), tracker.Name(), path)
	return nil
}

func buildNotifier(cfg *config.Config, logger *log.Logger) *notify.Notifier {
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" {
		tg, err := notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			logger.Printf("Telegram sender disabled: %v", err)
		} else {
			senders = append(senders, tg)
		}
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	return notify.NewNotifier(notify.NotifierOptions{
		Senders: senders,
		Events:  cfg.Notify.Events,
		Logger:  logger,
	})
}

// concentrationProvider adapts the Solana RPC client to the deep screen,
// fixing the holder count from configuration.
type concentrationProvider struct {
	rpc  *solana.HTTPClient
	topN int
}

func (p *concentrationProvider) TopHolderConcentration(ctx context.Context, mint string) (float64, error) {
	start := time.Now()
	pct, err := p.rpc.TopHolderConcentration(ctx, mint, p.topN)
	observability.RecordProviderCall("solana", "topHolderConcentration", time.Since(start).Seconds(), err)
	return pct, err
}

// Run starts the stream and the runner, returning when both have stopped.
func (a *app) Run(ctx context.Context) error {
	a.logger.Println("Starting watcher...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.stream.Run(ctx)
	})
	g.Go(func() error {
		return a.runner.Run(ctx)
	})
	return g.Wait()
}

// startHTTPServer serves health, metrics and status diagnostics.
func (a *app) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", a.handleStatus)

	mux.HandleFunc("/positions/close", a.handleClosePosition)

	a.logger.Printf("Diagnostics HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		a.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON payload of the /status endpoint.
type StatusResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	TrackedTokens int     `json:"tracked_tokens"`
	Subscriptions int     `json:"subscriptions"`
	OpenPositions int     `json:"open_positions"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	TotalPnLSOL   float64 `json:"total_pnl_sol"`
}

func (a *app) handleStatus(w http.ResponseWriter, r *http.Request) {
	perf := a.trading.Performance()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(a.started).String(),
		TrackedTokens: a.agg.TrackedTokens(),
		Subscriptions: a.stream.TrackedCount(),
		OpenPositions: perf.OpenPositions,
		Wins:          perf.Wins,
		Losses:        perf.Losses,
		WinRate:       perf.WinRate(),
		TotalPnLSOL:   perf.TotalPnLSOL,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleClosePosition force-closes an open position at its last observed
// price: POST /positions/close?mint=<mint>.
func (a *app) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mint := r.URL.Query().Get("mint")
	if mint == "" {
		http.Error(w, "missing mint parameter", http.StatusBadRequest)
		return
	}

	pos, err := a.trading.Close(r.Context(), mint, time.Now())
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "no open position for mint", http.StatusNotFound)
		return
	}
	if err != nil {
		a.logger.Printf("Manual close %s: %v", mint, err)
		http.Error(w, "close failed", http.StatusInternalServerError)
		return
	}

	observability.RecordPositionClosed(pos.ExitReason)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pos)
}
