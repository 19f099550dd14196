package features

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"pumpwatch/internal/aggregator"
	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage/memory"
	"pumpwatch/internal/wallets"
)

type engineFixture struct {
	engine  *Engine
	agg     *aggregator.Aggregator
	tokens  *memory.TokenStore
	trades  *memory.TradeStore
	tracker *wallets.Tracker
}

func newTestEngine(t *testing.T) engineFixture {
	t.Helper()

	agg := aggregator.New()
	tokens := memory.NewTokenStore()
	trades := memory.NewTradeStore()
	tracker, err := wallets.NewTracker(wallets.TrackerOptions{
		Name:   domain.WalletSetKnown,
		Store:  memory.NewWalletSetStore(),
		Logger: log.New(os.Stderr, "", 0),
	})
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	engine, err := NewEngine(EngineOptions{
		Aggregator:           agg,
		Tokens:               tokens,
		Trades:               trades,
		KnownWallets:         tracker,
		Windows:              []int{1, 3, 5, 10},
		WalletWindowMinutes:  3,
		PrimaryWindowMinutes: 3,
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engineFixture{engine: engine, agg: agg, tokens: tokens, trades: trades, tracker: tracker}
}

func addBuy(agg *aggregator.Aggregator, mint, trader, sig string, sol float64, ts int64) {
	agg.Add(domain.TradeEvent{
		Mint: mint, Trader: trader, TxSignature: sig,
		Side: domain.TradeSideBuy, SOLAmount: sol, TokenAmount: sol * 10000, Timestamp: ts,
	})
}

func addSell(agg *aggregator.Aggregator, mint, trader, sig string, sol float64, ts int64) {
	agg.Add(domain.TradeEvent{
		Mint: mint, Trader: trader, TxSignature: sig,
		Side: domain.TradeSideSell, SOLAmount: sol, TokenAmount: sol * 10000, Timestamp: ts,
	})
}

func TestCompute_WindowFeatures(t *testing.T) {
	fx := newTestEngine(t)
	engine, agg := fx.engine, fx.agg
	asOf := time.UnixMilli(10 * 60_000)
	asOfMs := asOf.UnixMilli()

	for i := 0; i < 12; i++ {
		addBuy(agg, "M1", fmt.Sprintf("B%d", i), fmt.Sprintf("b%d", i), 40.0/12, asOfMs-30_000)
	}
	for i := 0; i < 4; i++ {
		addSell(agg, "M1", fmt.Sprintf("S%d", i), fmt.Sprintf("s%d", i), 2.5, asOfMs-30_000)
	}

	rec, err := engine.Compute(context.Background(), "M1", asOf)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if got := rec.Get("buy_sell_ratio_3m"); got != 3.0 {
		t.Errorf("buy_sell_ratio_3m: got %f, want 3.0", got)
	}
	if got := rec.Get("net_volume_sol_3m"); got < 29.999 || got > 30.001 {
		t.Errorf("net_volume_sol_3m: got %f, want 30", got)
	}
	if got := rec.Get("unique_buyers_3m"); got != 12 {
		t.Errorf("unique_buyers_3m: got %f, want 12", got)
	}
	if got := rec.Get("txn_count_1m"); got != 16 {
		t.Errorf("txn_count_1m: got %f, want 16", got)
	}
	// txn_velocity uses the shortest window: 16 trades / 1 minute
	if got := rec.Get("txn_velocity"); got != 16 {
		t.Errorf("txn_velocity: got %f, want 16", got)
	}
}

func TestCompute_MissingTokenAgeZero(t *testing.T) {
	fx := newTestEngine(t)
	engine, agg := fx.engine, fx.agg
	asOf := time.UnixMilli(60_000)
	addBuy(agg, "M1", "B1", "b1", 1, 30_000)

	rec, err := engine.Compute(context.Background(), "M1", asOf)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := rec.Get("token_age_seconds"); got != 0 {
		t.Errorf("token_age_seconds for unknown token: got %f, want 0", got)
	}
	if got := rec.Get("graduated"); got != 0 {
		t.Errorf("graduated for unknown token: got %f, want 0", got)
	}
}

func TestCompute_TokenAgeAndGraduated(t *testing.T) {
	fx := newTestEngine(t)
	engine, tokens := fx.engine, fx.tokens
	ctx := context.Background()

	err := tokens.Insert(ctx, &domain.TokenRecord{
		Mint:            "M1",
		LaunchedAt:      60_000,
		Graduated:       true,
		BondingCurvePct: 100,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec, err := engine.Compute(ctx, "M1", time.UnixMilli(181_000))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := rec.Get("token_age_seconds"); got != 121 {
		t.Errorf("token_age_seconds: got %f, want 121", got)
	}
	if got := rec.Get("graduated"); got != 1 {
		t.Errorf("graduated: got %f, want 1", got)
	}
}

func TestCompute_KnownWalletBuys(t *testing.T) {
	fx := newTestEngine(t)
	engine, agg, tracker := fx.engine, fx.agg, fx.tracker
	ctx := context.Background()
	asOfMs := int64(10 * 60_000)

	if err := tracker.Replace(ctx, []string{"Smart1", "Smart2"}, time.UnixMilli(0)); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	addBuy(agg, "M1", "Smart1", "s1", 1, asOfMs-30_000)
	addBuy(agg, "M1", "Smart2", "s2", 1, asOfMs-30_000)
	addBuy(agg, "M1", "Nobody", "s3", 1, asOfMs-30_000)
	// Smart buy outside the 3m wallet window
	addBuy(agg, "M1", "Smart1", "s4", 1, asOfMs-4*60_000)

	rec, err := engine.Compute(ctx, "M1", time.UnixMilli(asOfMs))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := rec.Get("known_wallet_buys_3m"); got != 2 {
		t.Errorf("known_wallet_buys_3m: got %f, want 2", got)
	}
}

func TestCompute_PriceFromMarketCap(t *testing.T) {
	fx := newTestEngine(t)
	engine, agg := fx.engine, fx.agg
	asOfMs := int64(60_000)

	agg.Add(domain.TradeEvent{
		Mint: "M1", Trader: "B1", TxSignature: "b1", Side: domain.TradeSideBuy,
		SOLAmount: 1, TokenAmount: 10000, MarketCapSOL: 500, Timestamp: asOfMs - 10_000,
	})

	rec, err := engine.Compute(context.Background(), "M1", time.UnixMilli(asOfMs))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	// 500 SOL market cap over fixed 1e9 supply
	want := 500.0 / 1_000_000_000.0
	if got := rec.Get("price_sol"); got != want {
		t.Errorf("price_sol: got %g, want %g", got, want)
	}
}

func TestCompute_PriceFallbackToLastBuy(t *testing.T) {
	fx := newTestEngine(t)
	engine, agg := fx.engine, fx.agg
	asOfMs := int64(60_000)

	// No market cap on the trade: price falls back to sol/token of the
	// last buy within the fallback window.
	agg.Add(domain.TradeEvent{
		Mint: "M1", Trader: "B1", TxSignature: "b1", Side: domain.TradeSideBuy,
		SOLAmount: 2, TokenAmount: 10000, Timestamp: asOfMs - 10_000,
	})

	rec, err := engine.Compute(context.Background(), "M1", time.UnixMilli(asOfMs))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := rec.Get("price_sol"); got != 0.0002 {
		t.Errorf("price_sol fallback: got %g, want 0.0002", got)
	}
}

func TestCompute_VolumeMomentum(t *testing.T) {
	fx := newTestEngine(t)
	engine, agg := fx.engine, fx.agg
	asOfMs := int64(20 * 60_000)

	// 10 SOL in the last minute, nothing older: short rate 10/1, long
	// rate 10/10 -> momentum 10.
	addBuy(agg, "M1", "B1", "b1", 10, asOfMs-30_000)

	rec, err := engine.Compute(context.Background(), "M1", time.UnixMilli(asOfMs))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := rec.Get("volume_momentum"); got != 10 {
		t.Errorf("volume_momentum: got %f, want 10", got)
	}
}

func TestCompute_BuySizeAndSellerFeatures(t *testing.T) {
	fx := newTestEngine(t)
	engine, agg := fx.engine, fx.agg
	asOfMs := int64(10 * 60_000)

	addBuy(agg, "M1", "B1", "b1", 1, asOfMs-30_000)
	addBuy(agg, "M1", "B2", "b2", 3, asOfMs-20_000)
	addSell(agg, "M1", "S1", "s1", 1, asOfMs-10_000)
	addSell(agg, "M1", "S2", "s2", 1, asOfMs-10_000)

	rec, err := engine.Compute(context.Background(), "M1", time.UnixMilli(asOfMs))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := rec.Get("unique_sellers_3m"); got != 2 {
		t.Errorf("unique_sellers_3m: got %f, want 2", got)
	}
	if got := rec.Get("avg_buy_size_sol_3m"); got != 2 {
		t.Errorf("avg_buy_size_sol_3m: got %f, want 2", got)
	}
	if got := rec.Get("max_buy_size_sol_3m"); got != 3 {
		t.Errorf("max_buy_size_sol_3m: got %f, want 3", got)
	}
}

func TestCompute_KnownWalletPercentage(t *testing.T) {
	fx := newTestEngine(t)
	engine, agg, tracker := fx.engine, fx.agg, fx.tracker
	ctx := context.Background()
	asOfMs := int64(10 * 60_000)

	if err := tracker.Replace(ctx, []string{"Smart1"}, time.UnixMilli(0)); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	addBuy(agg, "M1", "Smart1", "s1", 1, asOfMs-30_000)
	addBuy(agg, "M1", "Plain1", "s2", 1, asOfMs-30_000)
	addBuy(agg, "M1", "Plain2", "s3", 1, asOfMs-30_000)
	addBuy(agg, "M1", "Plain3", "s4", 1, asOfMs-30_000)

	rec, err := engine.Compute(ctx, "M1", time.UnixMilli(asOfMs))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	// 1 known buyer out of 4 distinct buyers.
	if got := rec.Get("known_wallet_pct_3m"); got != 25 {
		t.Errorf("known_wallet_pct_3m: got %f, want 25", got)
	}

	// No buyers at all: percentage stays at 0 rather than dividing by zero.
	empty, err := engine.Compute(ctx, "Nada", time.UnixMilli(asOfMs))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := empty.Get("known_wallet_pct_3m"); got != 0 {
		t.Errorf("known_wallet_pct_3m with no buyers: got %f, want 0", got)
	}
}

func TestCompute_VolumeMarketCapRatio(t *testing.T) {
	fx := newTestEngine(t)
	engine, agg := fx.engine, fx.agg
	asOfMs := int64(20 * 60_000)

	// 10 SOL of buys in the last minute, market cap 200 SOL. The longest
	// window is 10m, extrapolated to an hourly rate: 10 * 6 / 200 = 0.3.
	agg.Add(domain.TradeEvent{
		Mint: "M1", Trader: "B1", TxSignature: "b1", Side: domain.TradeSideBuy,
		SOLAmount: 4, TokenAmount: 40000, MarketCapSOL: 200, Timestamp: asOfMs - 40_000,
	})
	agg.Add(domain.TradeEvent{
		Mint: "M1", Trader: "B2", TxSignature: "b2", Side: domain.TradeSideBuy,
		SOLAmount: 6, TokenAmount: 60000, MarketCapSOL: 200, Timestamp: asOfMs - 30_000,
	})
	// Sells do not count toward the ratio.
	addSell(agg, "M1", "S1", "s1", 50, asOfMs-30_000)

	rec, err := engine.Compute(context.Background(), "M1", time.UnixMilli(asOfMs))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := rec.Get("volume_mcap_ratio_1h"); got < 0.2999 || got > 0.3001 {
		t.Errorf("volume_mcap_ratio_1h: got %f, want 0.3", got)
	}
}

func TestCompute_FallsBackToTradeStore(t *testing.T) {
	fx := newTestEngine(t)
	engine, trades := fx.engine, fx.trades
	ctx := context.Background()
	asOfMs := int64(10 * 60_000)

	if err := fx.tracker.Replace(ctx, []string{"Smart1"}, time.UnixMilli(0)); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	// Nothing buffered in memory for M1; only durable rows exist, as after
	// a restart.
	seed := []*domain.TradeEvent{
		{Mint: "M1", Trader: "Smart1", TxSignature: "d1", Side: domain.TradeSideBuy,
			SOLAmount: 2, TokenAmount: 20000, Timestamp: asOfMs - 60_000},
		{Mint: "M1", Trader: "B2", TxSignature: "d2", Side: domain.TradeSideBuy,
			SOLAmount: 4, TokenAmount: 40000, Timestamp: asOfMs - 30_000},
		{Mint: "M1", Trader: "S1", TxSignature: "d3", Side: domain.TradeSideSell,
			SOLAmount: 1, TokenAmount: 10000, Timestamp: asOfMs - 20_000},
	}
	for _, tr := range seed {
		if err := trades.Insert(ctx, tr); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	rec, err := engine.Compute(ctx, "M1", time.UnixMilli(asOfMs))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := rec.Get("buy_volume_sol_3m"); got != 6 {
		t.Errorf("buy_volume_sol_3m from durable trades: got %f, want 6", got)
	}
	if got := rec.Get("sell_count_3m"); got != 1 {
		t.Errorf("sell_count_3m from durable trades: got %f, want 1", got)
	}
	if got := rec.Get("unique_buyers_3m"); got != 2 {
		t.Errorf("unique_buyers_3m from durable trades: got %f, want 2", got)
	}
	if got := rec.Get("known_wallet_buys_3m"); got != 1 {
		t.Errorf("known_wallet_buys_3m from durable trades: got %f, want 1", got)
	}
}

func TestCompute_VolumeMomentumZeroWhenNoLongVolume(t *testing.T) {
	fx := newTestEngine(t)
	engine := fx.engine

	rec, err := engine.Compute(context.Background(), "Empty", time.UnixMilli(60_000))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := rec.Get("volume_momentum"); got != 0 {
		t.Errorf("volume_momentum with no trades: got %f, want 0", got)
	}
}
