// Package features computes per-token feature vectors from the sliding
// window aggregator, the token registry and the tracked wallet sets.
package features

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pumpwatch/internal/aggregator"
	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
	"pumpwatch/internal/wallets"
)

const (
	// SOLPriceUSD is the fixed SOL/USD rate used for USD-denominated
	// features. Screening thresholds are calibrated against this
	// constant, not a live oracle.
	SOLPriceUSD = 100.0

	// pumpTokenSupply is the fixed pump.fun token supply used to derive
	// a per-token price from market cap.
	pumpTokenSupply = 1_000_000_000.0

	// priceFallbackWindowMinutes bounds how far back the engine looks
	// for a priceable buy when market cap is unavailable.
	priceFallbackWindowMinutes = 1
)

// Engine computes feature vectors.
type Engine struct {
	agg          *aggregator.Aggregator
	tokens       storage.TokenStore
	trades       storage.TradeStore
	knownWallets *wallets.Tracker

	windows       []int
	walletWindow  int
	primaryWindow int
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	// Aggregator supplies window statistics.
	Aggregator *aggregator.Aggregator

	// Tokens resolves token records for age and graduation features.
	Tokens storage.TokenStore

	// Trades backs window statistics when the in-memory buffer holds no
	// trades for a token, e.g. after a restart.
	Trades storage.TradeStore

	// KnownWallets is the known-actor set for wallet features.
	KnownWallets *wallets.Tracker

	// Windows lists the feature windows in minutes, e.g. [1, 3, 5, 10].
	Windows []int

	// WalletWindowMinutes scopes the known-wallet buy count.
	WalletWindowMinutes int

	// PrimaryWindowMinutes is the window used for volume/market-cap
	// scaling.
	PrimaryWindowMinutes int
}

// NewEngine creates a feature engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Aggregator == nil {
		return nil, fmt.Errorf("feature engine requires an aggregator")
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("feature engine requires a token store")
	}
	if opts.Trades == nil {
		return nil, fmt.Errorf("feature engine requires a trade store")
	}
	if opts.KnownWallets == nil {
		return nil, fmt.Errorf("feature engine requires a known wallet tracker")
	}
	if len(opts.Windows) == 0 {
		return nil, fmt.Errorf("feature engine requires at least one window")
	}
	for _, w := range opts.Windows {
		if w <= 0 {
			return nil, fmt.Errorf("invalid feature window %d", w)
		}
	}
	if opts.WalletWindowMinutes <= 0 {
		return nil, fmt.Errorf("invalid wallet window %d", opts.WalletWindowMinutes)
	}
	if opts.PrimaryWindowMinutes <= 0 {
		return nil, fmt.Errorf("invalid primary window %d", opts.PrimaryWindowMinutes)
	}

	return &Engine{
		agg:           opts.Aggregator,
		tokens:        opts.Tokens,
		trades:        opts.Trades,
		knownWallets:  opts.KnownWallets,
		windows:       opts.Windows,
		walletWindow:  opts.WalletWindowMinutes,
		primaryWindow: opts.PrimaryWindowMinutes,
	}, nil
}

// WindowKey builds a window-scoped feature key, e.g. "buy_volume_sol_3m".
func WindowKey(name string, windowMinutes int) string {
	return fmt.Sprintf("%s_%dm", name, windowMinutes)
}

// Compute builds the feature vector for a token as of the given time.
// A token absent from the registry yields age 0 and no graduation flag
// rather than an error; the screens treat such tokens as too young.
func (e *Engine) Compute(ctx context.Context, mint string, asOf time.Time) (*domain.FeatureRecord, error) {
	asOfMs := asOf.UnixMilli()
	values := make(map[string]float64)

	var token *domain.TokenRecord
	tok, err := e.tokens.GetByMint(ctx, mint)
	switch {
	case err == nil:
		token = tok
	case errors.Is(err, storage.ErrNotFound):
		// age 0, not graduated
	default:
		return nil, fmt.Errorf("load token %s: %w", mint, err)
	}

	// Durable trades are fetched at most once per Compute, only when the
	// in-memory buffer holds nothing for the token (e.g. after a restart).
	var hist []*domain.TradeEvent
	var histLoaded bool
	history := func() ([]*domain.TradeEvent, error) {
		if histLoaded {
			return hist, nil
		}
		span := e.walletWindow
		for _, w := range e.windows {
			if w > span {
				span = w
			}
		}
		cutoff := asOfMs - int64(span)*60_000
		h, err := e.trades.GetByTimeRange(ctx, mint, cutoff+1, asOfMs)
		if err != nil {
			return nil, fmt.Errorf("load trades %s: %w", mint, err)
		}
		hist, histLoaded = h, true
		return hist, nil
	}
	buffered := e.agg.TradeCount(mint) > 0

	shortest, longest := e.windows[0], e.windows[0]
	var shortestStats aggregator.WindowStats
	var primaryStats aggregator.WindowStats
	var longStats aggregator.WindowStats

	for _, w := range e.windows {
		stats := e.agg.WindowStats(mint, w, asOfMs)
		if !buffered {
			h, err := history()
			if err != nil {
				return nil, err
			}
			stats = aggregator.StatsFromTrades(h, w, asOfMs)
		}

		values[WindowKey("buy_volume_sol", w)] = stats.BuyVolumeSOL
		values[WindowKey("sell_volume_sol", w)] = stats.SellVolumeSOL
		values[WindowKey("net_volume_sol", w)] = stats.NetVolumeSOL()
		values[WindowKey("buy_count", w)] = float64(stats.BuyCount)
		values[WindowKey("sell_count", w)] = float64(stats.SellCount)
		values[WindowKey("txn_count", w)] = float64(stats.TxnCount)
		values[WindowKey("unique_buyers", w)] = float64(stats.UniqueBuyers)
		values[WindowKey("unique_sellers", w)] = float64(stats.UniqueSellers)
		values[WindowKey("avg_buy_size_sol", w)] = stats.AvgBuySizeSOL
		values[WindowKey("max_buy_size_sol", w)] = stats.MaxBuySizeSOL
		values[WindowKey("buy_sell_ratio", w)] = stats.BuySellRatio()

		if w <= shortest {
			shortest = w
			shortestStats = stats
		}
		if w >= longest {
			longest = w
			longStats = stats
		}
		if w == e.primaryWindow {
			primaryStats = stats
		}
	}
	if primaryStats.WindowMinutes == 0 {
		primaryStats = e.agg.WindowStats(mint, e.primaryWindow, asOfMs)
	}

	// Known-actor buyers within the wallet window.
	buyers := e.agg.BuyersInWindow(mint, e.walletWindow, asOfMs)
	if !buffered {
		h, err := history()
		if err != nil {
			return nil, err
		}
		buyers = aggregator.BuyersFromTrades(h, e.walletWindow, asOfMs)
	}
	known := e.knownWallets.CountMembers(buyers)
	values[WindowKey("known_wallet_buys", e.walletWindow)] = float64(known)
	denom := len(buyers)
	if denom == 0 {
		denom = 1
	}
	values[WindowKey("known_wallet_pct", e.walletWindow)] = float64(known) / float64(denom) * 100

	// Snapshot features.
	marketCapSOL := latestMarketCap(token, primaryStats)
	values["market_cap_sol"] = marketCapSOL
	values["price_sol"] = e.price(mint, marketCapSOL, asOfMs)
	if token != nil {
		values["bonding_curve_pct"] = token.BondingCurvePct
		values["token_age_seconds"] = token.AgeSeconds(asOfMs)
		if token.Graduated {
			values["graduated"] = 1
		} else {
			values["graduated"] = 0
		}
	} else {
		values["bonding_curve_pct"] = 0
		values["token_age_seconds"] = 0
		values["graduated"] = 0
	}

	// Derived features.
	values["txn_velocity"] = float64(shortestStats.TxnCount) / float64(shortest)
	values["volume_momentum"] = volumeMomentum(shortestStats, shortest, longStats, longest)
	values["volume_mcap_ratio_1h"] = volumeMarketCapRatio(longStats, longest, marketCapSOL)

	return &domain.FeatureRecord{
		Mint:       mint,
		ComputedAt: asOfMs,
		Values:     values,
	}, nil
}

// price derives a per-token SOL price from market cap, falling back to the
// last buy price in the recent window when market cap is unknown.
func (e *Engine) price(mint string, marketCapSOL float64, asOfMs int64) float64 {
	if marketCapSOL > 0 {
		return marketCapSOL / pumpTokenSupply
	}
	stats := e.agg.WindowStats(mint, priceFallbackWindowMinutes, asOfMs)
	return stats.LastBuyPrice
}

// latestMarketCap prefers the market cap seen on the most recent trade and
// falls back to the token record.
func latestMarketCap(token *domain.TokenRecord, primary aggregator.WindowStats) float64 {
	if primary.LatestMarketCapSOL > 0 {
		return primary.LatestMarketCapSOL
	}
	if token != nil {
		return token.MarketCapSOL
	}
	return 0
}

// volumeMomentum compares the short-window buy volume rate against the
// long-window rate. A zero long-window rate yields 0.
func volumeMomentum(short aggregator.WindowStats, shortMin int, long aggregator.WindowStats, longMin int) float64 {
	longRate := long.BuyVolumeSOL / float64(longMin)
	if longRate == 0 {
		return 0
	}
	shortRate := short.BuyVolumeSOL / float64(shortMin)
	return shortRate / longRate
}

// volumeMarketCapRatio divides the longest-window buy volume by market
// cap, both in USD. Windows shorter than an hour are extrapolated to a
// one-hour rate; longer windows are taken as-is.
func volumeMarketCapRatio(long aggregator.WindowStats, longMin int, marketCapSOL float64) float64 {
	if marketCapSOL <= 0 {
		return 0
	}
	buyVolumeSOL := long.BuyVolumeSOL
	if longMin < 60 {
		buyVolumeSOL *= 60.0 / float64(longMin)
	}
	return buyVolumeSOL * SOLPriceUSD / (marketCapSOL * SOLPriceUSD)
}
