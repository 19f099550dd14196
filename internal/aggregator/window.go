package aggregator

import "pumpwatch/internal/domain"

// WindowStats summarizes trades for one token within a sliding window.
type WindowStats struct {
	WindowMinutes int

	BuyCount      int
	SellCount     int
	TxnCount      int
	BuyVolumeSOL  float64
	SellVolumeSOL float64
	UniqueBuyers  int
	UniqueSellers int
	AvgBuySizeSOL float64
	MaxBuySizeSOL float64

	// LastBuyPrice is the sol/token price of the most recent buy in the
	// window, 0 when the window has no priceable buy.
	LastBuyPrice float64

	// LatestMarketCapSOL is the market cap reported with the most recent
	// trade in the window, 0 when the window is empty.
	LatestMarketCapSOL float64
}

// BuySellRatio returns buy_count / max(sell_count, 1).
func (w WindowStats) BuySellRatio() float64 {
	sells := w.SellCount
	if sells < 1 {
		sells = 1
	}
	return float64(w.BuyCount) / float64(sells)
}

// NetVolumeSOL returns buy volume minus sell volume.
func (w WindowStats) NetVolumeSOL() float64 {
	return w.BuyVolumeSOL - w.SellVolumeSOL
}

// statsAccum accumulates one window's trades. Shared by the in-memory
// ring scan and the durable-storage reducer so both produce identical
// statistics for the same trade set.
type statsAccum struct {
	stats       WindowStats
	buyers      map[string]struct{}
	sellers     map[string]struct{}
	lastBuyAt   int64
	lastTradeAt int64
}

func newStatsAccum(windowMinutes int) *statsAccum {
	return &statsAccum{
		stats:   WindowStats{WindowMinutes: windowMinutes},
		buyers:  make(map[string]struct{}),
		sellers: make(map[string]struct{}),
	}
}

func (a *statsAccum) observe(t *domain.TradeEvent) {
	a.stats.TxnCount++

	switch t.Side {
	case domain.TradeSideBuy:
		a.stats.BuyCount++
		a.stats.BuyVolumeSOL += t.SOLAmount
		if t.SOLAmount > a.stats.MaxBuySizeSOL {
			a.stats.MaxBuySizeSOL = t.SOLAmount
		}
		if t.Trader != "" {
			a.buyers[t.Trader] = struct{}{}
		}
		if t.Timestamp >= a.lastBuyAt && t.TokenAmount > 0 {
			a.lastBuyAt = t.Timestamp
			a.stats.LastBuyPrice = t.SOLAmount / t.TokenAmount
		}
	case domain.TradeSideSell:
		a.stats.SellCount++
		a.stats.SellVolumeSOL += t.SOLAmount
		if t.Trader != "" {
			a.sellers[t.Trader] = struct{}{}
		}
	}

	if t.Timestamp >= a.lastTradeAt && t.MarketCapSOL > 0 {
		a.lastTradeAt = t.Timestamp
		a.stats.LatestMarketCapSOL = t.MarketCapSOL
	}
}

func (a *statsAccum) summary() WindowStats {
	a.stats.UniqueBuyers = len(a.buyers)
	a.stats.UniqueSellers = len(a.sellers)
	if a.stats.BuyCount > 0 {
		a.stats.AvgBuySizeSOL = a.stats.BuyVolumeSOL / float64(a.stats.BuyCount)
	}
	return a.stats
}

// WindowStats scans the token's ring once and summarizes trades with
// timestamp in (asOf - window, asOf]. A missing token yields zero stats.
func (a *Aggregator) WindowStats(mint string, windowMinutes int, asOfMs int64) WindowStats {
	a.mu.RLock()
	ring, ok := a.tokens[mint]
	a.mu.RUnlock()
	if !ok {
		return WindowStats{WindowMinutes: windowMinutes}
	}

	cutoff := asOfMs - int64(windowMinutes)*60_000
	acc := newStatsAccum(windowMinutes)

	ring.mu.Lock()
	defer ring.mu.Unlock()

	for i := 0; i < ring.size; i++ {
		t := &ring.trades[(ring.head+i)%maxTradesPerToken]
		if t.Timestamp <= cutoff || t.Timestamp > asOfMs {
			continue
		}
		acc.observe(t)
	}
	return acc.summary()
}

// StatsFromTrades reduces an externally sourced trade set to window
// statistics under the same (asOf - window, asOf] filter as WindowStats.
// The feature engine uses it to rebuild windows from durable storage when
// the in-memory ring has no trades for the range.
func StatsFromTrades(trades []*domain.TradeEvent, windowMinutes int, asOfMs int64) WindowStats {
	cutoff := asOfMs - int64(windowMinutes)*60_000
	acc := newStatsAccum(windowMinutes)

	for _, t := range trades {
		if t.Timestamp <= cutoff || t.Timestamp > asOfMs {
			continue
		}
		acc.observe(t)
	}
	return acc.summary()
}

// BuyersInWindow returns the distinct buyer addresses within the window.
// The screening engine intersects these with tracked wallet sets.
func (a *Aggregator) BuyersInWindow(mint string, windowMinutes int, asOfMs int64) []string {
	a.mu.RLock()
	ring, ok := a.tokens[mint]
	a.mu.RUnlock()
	if !ok {
		return nil
	}

	cutoff := asOfMs - int64(windowMinutes)*60_000

	ring.mu.Lock()
	defer ring.mu.Unlock()

	seen := make(map[string]struct{})
	var buyers []string
	for i := 0; i < ring.size; i++ {
		t := &ring.trades[(ring.head+i)%maxTradesPerToken]
		if t.Timestamp <= cutoff || t.Timestamp > asOfMs {
			continue
		}
		if t.Side != domain.TradeSideBuy || t.Trader == "" {
			continue
		}
		if _, dup := seen[t.Trader]; dup {
			continue
		}
		seen[t.Trader] = struct{}{}
		buyers = append(buyers, t.Trader)
	}
	return buyers
}

// BuyersFromTrades extracts the distinct buyer addresses from an
// externally sourced trade set, the durable-storage counterpart of
// BuyersInWindow.
func BuyersFromTrades(trades []*domain.TradeEvent, windowMinutes int, asOfMs int64) []string {
	cutoff := asOfMs - int64(windowMinutes)*60_000

	seen := make(map[string]struct{})
	var buyers []string
	for _, t := range trades {
		if t.Timestamp <= cutoff || t.Timestamp > asOfMs {
			continue
		}
		if t.Side != domain.TradeSideBuy || t.Trader == "" {
			continue
		}
		if _, dup := seen[t.Trader]; dup {
			continue
		}
		seen[t.Trader] = struct{}{}
		buyers = append(buyers, t.Trader)
	}
	return buyers
}
