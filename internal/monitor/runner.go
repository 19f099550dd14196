// Package monitor orchestrates the live pipeline: stream events feed the
// aggregator and screens, deep screen passes open paper positions, and
// periodic tickers drive sweeps, snapshots and wallet refreshes.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pumpwatch/internal/aggregator"
	"pumpwatch/internal/domain"
	"pumpwatch/internal/features"
	"pumpwatch/internal/idhash"
	"pumpwatch/internal/notify"
	"pumpwatch/internal/observability"
	"pumpwatch/internal/pumpfun"
	"pumpwatch/internal/pumpportal"
	"pumpwatch/internal/screening"
	"pumpwatch/internal/storage"
	"pumpwatch/internal/trading"
	"pumpwatch/internal/wallets"
)

// TokenTracker manages per-token trade subscriptions on the stream. The
// pumpportal client implements this.
type TokenTracker interface {
	TrackToken(mint string) error
	UntrackToken(mint string) error
}

// Notifier delivers operator notifications. notify.Notifier implements this.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// CoinProvider supplies pump.fun coin state for graduation and bonding
// curve refreshes. The pumpfun client implements this.
type CoinProvider interface {
	GetCoin(ctx context.Context, mint string) (*pumpfun.CoinData, error)
}

// Default orchestration parameters.
const (
	DefaultWorkers          = 4
	DefaultQueueSize        = 4096
	DefaultDeepInterval     = 30 * time.Second
	DefaultSweepInterval    = 30 * time.Second
	DefaultSnapshotInterval = 60 * time.Second
	DefaultWalletRefresh    = 10 * time.Minute
	DefaultAggSweepInterval = 10 * time.Minute
	DefaultIdleTimeout      = 30 * time.Minute

	// pendingTTL drops motion candidates that never pass the deep screen.
	pendingTTL = 60 * time.Minute

	// snapshotLookback selects tokens considered active for snapshots.
	snapshotLookback = 5 * time.Minute

	// coinRefreshPerTick caps pump.fun lookups per snapshot tick.
	coinRefreshPerTick = 20
)

// RunnerOptions configures a Runner. Aggregator, Features, Motion, Deep,
// Guard, Trading and the three stores are required; the rest is optional.
type RunnerOptions struct {
	Workers   int
	QueueSize int

	DeepInterval          time.Duration
	SweepInterval         time.Duration
	SnapshotInterval      time.Duration
	WalletRefreshInterval time.Duration
	AggSweepInterval      time.Duration
	IdleTimeout           time.Duration

	Aggregator *aggregator.Aggregator
	Features   *features.Engine
	Motion     *screening.MotionScreen
	Deep       *screening.DeepScreen
	Guard      *screening.Guard
	Trading    *trading.Manager

	Tokens storage.TokenStore
	Trades storage.TradeStore
	Alerts storage.AlertStore

	// Snapshots receives periodic token state rows. Optional.
	Snapshots storage.SnapshotStore

	// KnownWallets and SmartWallets are refreshed periodically. Optional.
	KnownWallets *wallets.Tracker
	SmartWallets *wallets.Tracker

	// Tracker subscribes trade feeds for newly launched tokens. Optional.
	Tracker TokenTracker

	// Coins refreshes graduation and bonding curve state. Optional.
	Coins CoinProvider

	// Notifier delivers alert and position events. Optional.
	Notifier Notifier

	Logger *log.Logger
}

// Runner consumes stream events and drives the screening and trading
// pipeline. Trades are sharded across workers by mint so each token's
// events stay ordered.
type Runner struct {
	workers   int
	queueSize int

	deepInterval     time.Duration
	sweepInterval    time.Duration
	snapshotInterval time.Duration
	walletRefresh    time.Duration
	aggSweepInterval time.Duration
	idleTimeout      time.Duration

	agg     *aggregator.Aggregator
	engine  *features.Engine
	motion  *screening.MotionScreen
	deep    *screening.DeepScreen
	guard   *screening.Guard
	trading *trading.Manager

	tokens    storage.TokenStore
	trades    storage.TradeStore
	alerts    storage.AlertStore
	snapshots storage.SnapshotStore

	knownWallets *wallets.Tracker
	smartWallets *wallets.Tracker
	tracker      TokenTracker
	coins        CoinProvider
	notifier     Notifier
	logger       *log.Logger

	launchCh chan *pumpportal.Launch
	tradeChs []chan *pumpportal.Trade

	// pending holds mints that fired a motion alert and await the deep
	// screen, keyed by mint with the motion trigger time.
	pending   map[string]int64
	pendingMu sync.Mutex
}

// NewRunner creates a runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	switch {
	case opts.Aggregator == nil:
		return nil, fmt.Errorf("runner requires an aggregator")
	case opts.Features == nil:
		return nil, fmt.Errorf("runner requires a feature engine")
	case opts.Motion == nil:
		return nil, fmt.Errorf("runner requires a motion screen")
	case opts.Deep == nil:
		return nil, fmt.Errorf("runner requires a deep screen")
	case opts.Guard == nil:
		return nil, fmt.Errorf("runner requires an alert guard")
	case opts.Trading == nil:
		return nil, fmt.Errorf("runner requires a trading manager")
	case opts.Tokens == nil || opts.Trades == nil || opts.Alerts == nil:
		return nil, fmt.Errorf("runner requires token, trade and alert stores")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	r := &Runner{
		workers:          workers,
		queueSize:        queueSize,
		deepInterval:     orDefault(opts.DeepInterval, DefaultDeepInterval),
		sweepInterval:    orDefault(opts.SweepInterval, DefaultSweepInterval),
		snapshotInterval: orDefault(opts.SnapshotInterval, DefaultSnapshotInterval),
		walletRefresh:    orDefault(opts.WalletRefreshInterval, DefaultWalletRefresh),
		aggSweepInterval: orDefault(opts.AggSweepInterval, DefaultAggSweepInterval),
		idleTimeout:      orDefault(opts.IdleTimeout, DefaultIdleTimeout),
		agg:              opts.Aggregator,
		engine:           opts.Features,
		motion:           opts.Motion,
		deep:             opts.Deep,
		guard:            opts.Guard,
		trading:          opts.Trading,
		tokens:           opts.Tokens,
		trades:           opts.Trades,
		alerts:           opts.Alerts,
		snapshots:        opts.Snapshots,
		knownWallets:     opts.KnownWallets,
		smartWallets:     opts.SmartWallets,
		tracker:          opts.Tracker,
		coins:            opts.Coins,
		notifier:         opts.Notifier,
		logger:           logger,
		launchCh:         make(chan *pumpportal.Launch, queueSize),
		pending:          make(map[string]int64),
	}

	r.tradeChs = make([]chan *pumpportal.Trade, workers)
	for i := range r.tradeChs {
		r.tradeChs[i] = make(chan *pumpportal.Trade, queueSize)
	}
	return r, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// HandleLaunch enqueues a launch event. Safe for concurrent use; drops
// the event when the queue is full.
func (r *Runner) HandleLaunch(l *pumpportal.Launch) {
	observability.RecordLaunchEvent()
	select {
	case r.launchCh <- l:
	default:
		observability.RecordDrop("launch")
	}
}

// HandleTrade enqueues a trade event on its mint's shard. Safe for
// concurrent use; drops the event when the shard queue is full.
func (r *Runner) HandleTrade(t *pumpportal.Trade) {
	observability.RecordTradeEvent(t.Side)
	select {
	case r.tradeChs[r.shard(t.Mint)] <- t:
	default:
		observability.RecordDrop("trade")
	}
}

func (r *Runner) shard(mint string) int {
	h := fnv.New32a()
	h.Write([]byte(mint))
	return int(h.Sum32()) % r.workers
}

// Run processes events and runs the periodic tasks until the context is
// canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("[monitor] starting: %d workers, queue %d", r.workers, r.queueSize)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.launchWorker(ctx)
	})
	for i := range r.tradeChs {
		ch := r.tradeChs[i]
		g.Go(func() error {
			return r.tradeWorker(ctx, ch)
		})
	}
	g.Go(func() error {
		return r.tickerLoop(ctx)
	})

	err := g.Wait()
	r.logger.Println("[monitor] stopped")
	return err
}

func (r *Runner) launchWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l := <-r.launchCh:
			r.processLaunch(ctx, l)
		}
	}
}

func (r *Runner) tradeWorker(ctx context.Context, ch <-chan *pumpportal.Trade) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-ch:
			r.processTrade(ctx, t)
		}
	}
}

func (r *Runner) tickerLoop(ctx context.Context) error {
	deepTicker := time.NewTicker(r.deepInterval)
	defer deepTicker.Stop()
	sweepTicker := time.NewTicker(r.sweepInterval)
	defer sweepTicker.Stop()
	snapshotTicker := time.NewTicker(r.snapshotInterval)
	defer snapshotTicker.Stop()
	walletTicker := time.NewTicker(r.walletRefresh)
	defer walletTicker.Stop()
	aggTicker := time.NewTicker(r.aggSweepInterval)
	defer aggTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deepTicker.C:
			r.runDeepScreens(ctx, time.Now())
		case <-sweepTicker.C:
			r.sweepPositions(ctx, time.Now())
		case <-snapshotTicker.C:
			r.writeSnapshots(ctx, time.Now())
		case <-walletTicker.C:
			r.refreshWallets(ctx)
		case <-aggTicker.C:
			r.sweepAggregator(time.Now())
		}
	}
}

// processLaunch registers a new token and subscribes to its trade feed.
func (r *Runner) processLaunch(ctx context.Context, l *pumpportal.Launch) {
	rec := &domain.TokenRecord{
		Mint:          l.Mint,
		Name:          l.Name,
		Symbol:        l.Symbol,
		Creator:       l.Creator,
		LaunchedAt:    l.ReceivedAt,
		InitialBuySOL: l.InitialBuySOL,
		MarketCapSOL:  l.MarketCapSOL,
		CreatedAt:     l.ReceivedAt,
	}

	if err := r.tokens.Insert(ctx, rec); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			r.logger.Printf("[monitor] store token %s: %v", l.Mint, err)
			return
		}
	}

	if r.tracker != nil {
		if err := r.tracker.TrackToken(l.Mint); err != nil {
			r.logger.Printf("[monitor] subscribe trades for %s: %v", l.Mint, err)
		}
	}
}

// processTrade feeds a trade through aggregation, position management and
// the motion screen. The durable insert runs first: its signature key
// makes redelivered trades no-ops for the whole pipeline, so the
// aggregator never counts the same trade twice.
func (r *Runner) processTrade(ctx context.Context, t *pumpportal.Trade) {
	trade := domain.TradeEvent{
		Mint:         t.Mint,
		TxSignature:  t.TxSignature,
		Trader:       t.Trader,
		Side:         t.Side,
		SOLAmount:    t.SOLAmount,
		TokenAmount:  t.TokenAmount,
		MarketCapSOL: t.MarketCapSOL,
		Timestamp:    t.ReceivedAt,
		CreatedAt:    t.ReceivedAt,
	}

	if err := r.trades.Insert(ctx, &trade); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return
		}
		r.logger.Printf("[monitor] store trade %s: %v", t.TxSignature, err)
		return
	}

	r.agg.Add(trade)
	r.touchToken(ctx, &trade)

	// Exit checks run on every price observation for the mint.
	if price := trade.Price(); price > 0 {
		closed, err := r.trading.OnPrice(ctx, t.Mint, price, time.UnixMilli(t.ReceivedAt))
		if err != nil {
			r.logger.Printf("[monitor] position exit check %s: %v", t.Mint, err)
		}
		if closed != nil {
			r.onPositionClosed(ctx, closed)
		}
	}

	// The motion screen triggers on buy pressure only; sells still feed
	// the aggregator and exit checks above.
	if trade.Side == domain.TradeSideBuy {
		r.runMotionScreen(ctx, t.Mint, t.ReceivedAt)
	}
}

// touchToken updates mutable token state from the latest trade.
func (r *Runner) touchToken(ctx context.Context, trade *domain.TradeEvent) {
	rec, err := r.tokens.GetByMint(ctx, trade.Mint)
	if err != nil {
		// Tokens launched before startup are not registered; trades for
		// them still aggregate.
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Printf("[monitor] load token %s: %v", trade.Mint, err)
		}
		return
	}

	rec.MarketCapSOL = trade.MarketCapSOL
	rec.LastTradeAt = trade.Timestamp
	if err := r.tokens.Update(ctx, rec); err != nil {
		r.logger.Printf("[monitor] update token %s: %v", trade.Mint, err)
	}
}

// runMotionScreen evaluates the motion criteria for a mint. A pass fires
// a motion alert once per token and queues it for the deep screen.
func (r *Runner) runMotionScreen(ctx context.Context, mint string, asOfMs int64) {
	if r.guard.Fired(mint, domain.AlertKindMotion) {
		return
	}

	rec, err := r.engine.Compute(ctx, mint, time.UnixMilli(asOfMs))
	if err != nil {
		r.logger.Printf("[monitor] features for %s: %v", mint, err)
		return
	}

	pass, criteria := r.motion.Evaluate(rec)
	observability.RecordScreen("motion", pass)
	if !pass {
		return
	}
	if !r.guard.TryAcquire(mint, domain.AlertKindMotion) {
		return
	}

	alert := r.buildAlert(mint, domain.AlertKindMotion, asOfMs, rec, criteria)
	if !r.persistAlert(ctx, alert) {
		return
	}
	observability.RecordAlert(string(domain.AlertKindMotion))
	r.logger.Printf("[monitor] motion alert %s (mc %.1f SOL)", mint, alert.MarketCapSOL)

	r.pendingMu.Lock()
	r.pending[mint] = asOfMs
	r.pendingMu.Unlock()

	if r.notifier != nil {
		title, body := notify.FormatAlert(alert)
		if err := r.notifier.Notify(ctx, notify.EventMotionAlert, title, body); err != nil {
			r.logger.Printf("[monitor] notify motion alert: %v", err)
		}
	}
}

// runDeepScreens evaluates the deep criteria for every pending motion
// candidate. A pass fires the deep alert and opens a paper position; a
// failed candidate stays queued for the next tick until its TTL lapses.
func (r *Runner) runDeepScreens(ctx context.Context, now time.Time) {
	nowMs := now.UnixMilli()
	ttlCutoff := nowMs - pendingTTL.Milliseconds()

	r.pendingMu.Lock()
	candidates := make(map[string]int64, len(r.pending))
	for mint, firedAt := range r.pending {
		if firedAt < ttlCutoff {
			delete(r.pending, mint)
			continue
		}
		candidates[mint] = firedAt
	}
	r.pendingMu.Unlock()

	for mint := range candidates {
		if r.guard.Fired(mint, domain.AlertKindDeep) {
			r.dropPending(mint)
			continue
		}

		rec, err := r.engine.Compute(ctx, mint, now)
		if err != nil {
			r.logger.Printf("[monitor] features for %s: %v", mint, err)
			continue
		}

		pass, criteria := r.deep.Evaluate(ctx, mint, rec, nowMs)
		observability.RecordScreen("deep", pass)
		if !pass {
			continue
		}
		if !r.guard.TryAcquire(mint, domain.AlertKindDeep) {
			r.dropPending(mint)
			continue
		}

		alert := r.buildAlert(mint, domain.AlertKindDeep, nowMs, rec, criteria)
		if !r.persistAlert(ctx, alert) {
			r.dropPending(mint)
			continue
		}
		observability.RecordAlert(string(domain.AlertKindDeep))
		r.logger.Printf("[monitor] deep alert %s (mc %.1f SOL)", mint, alert.MarketCapSOL)
		r.dropPending(mint)

		if r.notifier != nil {
			title, body := notify.FormatAlert(alert)
			if err := r.notifier.Notify(ctx, notify.EventDeepAlert, title, body); err != nil {
				r.logger.Printf("[monitor] notify deep alert: %v", err)
			}
		}

		r.openPosition(ctx, mint, rec, now)
	}
}

func (r *Runner) dropPending(mint string) {
	r.pendingMu.Lock()
	delete(r.pending, mint)
	r.pendingMu.Unlock()
}

func (r *Runner) openPosition(ctx context.Context, mint string, rec *domain.FeatureRecord, now time.Time) {
	price := rec.Get("price_sol")
	if price <= 0 {
		r.logger.Printf("[monitor] no price for %s, skipping entry", mint)
		return
	}

	pos, err := r.trading.Open(ctx, mint, price, now)
	if err != nil {
		r.logger.Printf("[monitor] open position %s: %v", mint, err)
		return
	}
	if pos == nil {
		return
	}

	observability.RecordPositionOpened()
	r.updateTradingGauges()

	if r.notifier != nil {
		title, body := notify.FormatPositionOpen(pos)
		if err := r.notifier.Notify(ctx, notify.EventPositionOpen, title, body); err != nil {
			r.logger.Printf("[monitor] notify position open: %v", err)
		}
	}
}

// sweepPositions closes stale positions at their last observed price.
func (r *Runner) sweepPositions(ctx context.Context, now time.Time) {
	closed, err := r.trading.SweepStale(ctx, now)
	if err != nil {
		r.logger.Printf("[monitor] sweep positions: %v", err)
	}
	for _, pos := range closed {
		r.onPositionClosed(ctx, pos)
	}
}

func (r *Runner) onPositionClosed(ctx context.Context, pos *domain.Position) {
	observability.RecordPositionClosed(pos.ExitReason)
	r.updateTradingGauges()

	if r.notifier != nil {
		title, body := notify.FormatPositionClosed(pos)
		if err := r.notifier.Notify(ctx, notify.EventPositionClosed, title, body); err != nil {
			r.logger.Printf("[monitor] notify position close: %v", err)
		}
	}
}

func (r *Runner) updateTradingGauges() {
	perf := r.trading.Performance()
	observability.UpdateTradingState(perf.OpenPositions, perf.TotalPnLSOL)
}

// writeSnapshots records current state for recently active tokens and
// refreshes graduation state from pump.fun for a bounded batch.
func (r *Runner) writeSnapshots(ctx context.Context, now time.Time) {
	nowMs := now.UnixMilli()
	active, err := r.tokens.GetActiveSince(ctx, nowMs-snapshotLookback.Milliseconds())
	if err != nil {
		r.logger.Printf("[monitor] list active tokens: %v", err)
		return
	}
	if len(active) == 0 {
		return
	}

	refreshed := 0
	snapshots := make([]*domain.Snapshot, 0, len(active))
	for _, tok := range active {
		if r.coins != nil && refreshed < coinRefreshPerTick {
			refreshed++
			if coin, err := r.coins.GetCoin(ctx, tok.Mint); err != nil {
				r.logger.Printf("[monitor] coin data for %s: %v", tok.Mint, err)
			} else if coin != nil {
				tok.Graduated = coin.Complete
				tok.BondingCurvePct = coin.BondingCurvePct()
				if coin.MarketCapSOL > 0 {
					tok.MarketCapSOL = coin.MarketCapSOL
				}
				if err := r.tokens.Update(ctx, tok); err != nil {
					r.logger.Printf("[monitor] update token %s: %v", tok.Mint, err)
				}
			}
		}

		snapshots = append(snapshots, &domain.Snapshot{
			Mint:            tok.Mint,
			TimestampMs:     nowMs,
			PriceSOL:        tok.MarketCapSOL / 1e9,
			MarketCapSOL:    tok.MarketCapSOL,
			BondingCurvePct: tok.BondingCurvePct,
		})
	}

	if r.snapshots == nil {
		return
	}
	if err := r.snapshots.InsertBulk(ctx, snapshots); err != nil {
		r.logger.Printf("[monitor] write %d snapshots: %v", len(snapshots), err)
	}
}

func (r *Runner) refreshWallets(ctx context.Context) {
	for _, tracker := range []*wallets.Tracker{r.knownWallets, r.smartWallets} {
		if tracker == nil {
			continue
		}
		if err := tracker.Refresh(ctx); err != nil {
			r.logger.Printf("[monitor] refresh %s wallets: %v", tracker.Name(), err)
		}
	}
}

// sweepAggregator evicts tokens with no trades inside the idle window and
// unsubscribes their trade feeds.
func (r *Runner) sweepAggregator(now time.Time) {
	evicted := r.agg.Sweep(now.Add(-r.idleTimeout).UnixMilli())
	if len(evicted) > 0 {
		r.logger.Printf("[monitor] evicted %d idle token(s)", len(evicted))
		observability.RecordSweep(len(evicted))
	}
	if r.tracker != nil {
		for _, mint := range evicted {
			if err := r.tracker.UntrackToken(mint); err != nil {
				r.logger.Printf("[monitor] unsubscribe trades for %s: %v", mint, err)
			}
		}
	}
	observability.UpdateTrackedTokens(r.agg.TrackedTokens())
}

func (r *Runner) buildAlert(mint string, kind domain.AlertKind, triggeredAt int64, rec *domain.FeatureRecord, criteria []domain.CriterionResult) *domain.Alert {
	return &domain.Alert{
		AlertID:      idhash.ComputeAlertID(mint, kind, triggeredAt),
		Mint:         mint,
		Kind:         kind,
		TriggeredAt:  triggeredAt,
		MarketCapSOL: rec.Get("market_cap_sol"),
		Features:     rec.Values,
		Criteria:     criteria,
		CreatedAt:    triggeredAt,
	}
}

// persistAlert stores an alert. A duplicate ID means the same alert was
// already recorded in a previous run; it is not re-announced.
func (r *Runner) persistAlert(ctx context.Context, alert *domain.Alert) bool {
	if err := r.alerts.Insert(ctx, alert); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return false
		}
		r.logger.Printf("[monitor] store alert %s: %v", alert.AlertID, err)
	}
	return true
}
