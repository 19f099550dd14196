package screening

import (
	"pumpwatch/internal/domain"
	"pumpwatch/internal/features"
)

// MotionConfig holds the thresholds of the fast motion screen. All
// predicates are AND-ed; evaluation short-circuits on the first failure.
type MotionConfig struct {
	// PrimaryWindowMinutes selects the feature window the volume and
	// buyer predicates read from.
	PrimaryWindowMinutes int

	// WalletWindowMinutes selects the known-wallet buy window.
	WalletWindowMinutes int

	MinTimeSinceLaunchSeconds float64
	MinBuyVolumeSOL           float64
	MinUniqueBuyers           float64
	MinBuySellRatio           float64
	MinTxnVelocity            float64
	MinKnownWallets           float64
	MaxMarketCapUSD           float64
	MaxBondingCurvePct        float64
}

// DefaultMotionConfig returns the production motion thresholds.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		PrimaryWindowMinutes:      3,
		WalletWindowMinutes:       3,
		MinTimeSinceLaunchSeconds: 60,
		MinBuyVolumeSOL:           10,
		MinUniqueBuyers:           30,
		MinBuySellRatio:           2.5,
		MinTxnVelocity:            15,
		MinKnownWallets:           3,
		MaxMarketCapUSD:           100_000,
		MaxBondingCurvePct:        60,
	}
}

// MotionScreen evaluates the motion predicates against a feature vector.
type MotionScreen struct {
	cfg MotionConfig
}

// NewMotionScreen creates a motion screen.
func NewMotionScreen(cfg MotionConfig) *MotionScreen {
	return &MotionScreen{cfg: cfg}
}

// Evaluate runs the motion predicates in order, short-circuiting on the
// first failure. The returned checklist covers every predicate evaluated,
// including the failing one.
func (m *MotionScreen) Evaluate(rec *domain.FeatureRecord) (bool, []domain.CriterionResult) {
	cfg := m.cfg
	var results []domain.CriterionResult

	check := func(name string, threshold, actual float64, pass bool) bool {
		results = append(results, domain.CriterionResult{
			Name:      name,
			Threshold: threshold,
			Actual:    actual,
			Pass:      pass,
		})
		return pass
	}

	age := rec.Get("token_age_seconds")
	if !check("min_time_since_launch", cfg.MinTimeSinceLaunchSeconds, age, age >= cfg.MinTimeSinceLaunchSeconds) {
		return false, results
	}

	graduated := rec.Get("graduated")
	if !check("not_graduated", 0, graduated, graduated == 0) {
		return false, results
	}

	buyVolume := rec.Get(features.WindowKey("buy_volume_sol", cfg.PrimaryWindowMinutes))
	if !check("min_buy_volume_sol", cfg.MinBuyVolumeSOL, buyVolume, buyVolume >= cfg.MinBuyVolumeSOL) {
		return false, results
	}

	buyers := rec.Get(features.WindowKey("unique_buyers", cfg.PrimaryWindowMinutes))
	if !check("min_unique_buyers", cfg.MinUniqueBuyers, buyers, buyers >= cfg.MinUniqueBuyers) {
		return false, results
	}

	ratio := rec.Get(features.WindowKey("buy_sell_ratio", cfg.PrimaryWindowMinutes))
	if !check("min_buy_sell_ratio", cfg.MinBuySellRatio, ratio, ratio >= cfg.MinBuySellRatio) {
		return false, results
	}

	velocity := rec.Get("txn_velocity")
	if !check("min_txn_velocity", cfg.MinTxnVelocity, velocity, velocity >= cfg.MinTxnVelocity) {
		return false, results
	}

	knownBuys := rec.Get(features.WindowKey("known_wallet_buys", cfg.WalletWindowMinutes))
	if !check("min_known_wallets", cfg.MinKnownWallets, knownBuys, knownBuys >= cfg.MinKnownWallets) {
		return false, results
	}

	marketCapUSD := rec.Get("market_cap_sol") * features.SOLPriceUSD
	if !check("max_market_cap_usd", cfg.MaxMarketCapUSD, marketCapUSD, marketCapUSD < cfg.MaxMarketCapUSD) {
		return false, results
	}

	bonding := rec.Get("bonding_curve_pct")
	if !check("max_bonding_curve_pct", cfg.MaxBondingCurvePct, bonding, bonding < cfg.MaxBondingCurvePct) {
		return false, results
	}

	return true, results
}
