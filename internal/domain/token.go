package domain

// TokenRecord represents a pump.fun token observed on the launch stream.
// Corresponds to tokens table in PostgreSQL.
type TokenRecord struct {
	Mint            string  // token mint address, PRIMARY KEY
	Name            string  // token name from launch event
	Symbol          string  // token symbol from launch event
	Creator         string  // creator wallet address
	LaunchedAt      int64   // Unix timestamp in milliseconds
	InitialBuySOL   float64 // creator's initial buy, SOL
	MarketCapSOL    float64 // latest observed market cap, SOL
	BondingCurvePct float64 // bonding curve progress, 0-100
	Graduated       bool    // true once the token left the bonding curve
	LastTradeAt     int64   // Unix timestamp of last observed trade (ms)
	CreatedAt       int64   // record creation timestamp (ms)
}

// AgeSeconds returns the token age at the given time. A zero launch
// timestamp (token never observed launching) yields age 0.
func (t *TokenRecord) AgeSeconds(nowMs int64) float64 {
	if t == nil || t.LaunchedAt == 0 || nowMs < t.LaunchedAt {
		return 0
	}
	return float64(nowMs-t.LaunchedAt) / 1000.0
}
