package domain

// Snapshot represents point-in-time token state gathered by the snapshot
// poller. Corresponds to token_snapshots table in ClickHouse.
type Snapshot struct {
	Mint                string  // token mint address
	TimestampMs         int64   // Unix timestamp in milliseconds
	PriceSOL            float64 // per-token price, SOL
	MarketCapSOL        float64 // market cap, SOL
	BondingCurvePct     float64 // bonding curve progress, 0-100
	HolderCount         int     // total holders, 0 when unknown
	TopConcentrationPct float64 // top-10 holder share of supply, 0 when unknown
}
