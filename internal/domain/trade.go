package domain

// TradeEvent represents a single buy or sell observed on the trade stream.
// Corresponds to trades table in PostgreSQL.
type TradeEvent struct {
	Mint         string  // token mint address
	TxSignature  string  // Solana transaction signature, dedup key
	Trader       string  // trader wallet address
	Side         string  // "buy" | "sell"
	SOLAmount    float64 // SOL leg of the trade
	TokenAmount  float64 // token leg of the trade
	MarketCapSOL float64 // market cap reported with the event, SOL
	Timestamp    int64   // Unix timestamp in milliseconds
	CreatedAt    int64   // record creation timestamp (ms)
}

// Trade side constants
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Price returns the per-token execution price in SOL, or 0 when the
// token amount is zero.
func (t *TradeEvent) Price() float64 {
	if t.TokenAmount <= 0 {
		return 0
	}
	return t.SOLAmount / t.TokenAmount
}
