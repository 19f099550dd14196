package screening

import (
	"testing"

	"pumpwatch/internal/domain"
)

// passingFeatures returns a vector that clears every motion predicate with
// the default thresholds.
func passingFeatures() *domain.FeatureRecord {
	return &domain.FeatureRecord{
		Mint: "M1",
		Values: map[string]float64{
			"token_age_seconds":    120,
			"graduated":            0,
			"buy_volume_sol_3m":    25,
			"unique_buyers_3m":     45,
			"buy_sell_ratio_3m":    3.5,
			"txn_velocity":         20,
			"known_wallet_buys_3m": 4,
			"market_cap_sol":       500, // 50k USD at the fixed rate
			"bonding_curve_pct":    40,
		},
	}
}

func TestMotionScreen_AllPass(t *testing.T) {
	screen := NewMotionScreen(DefaultMotionConfig())

	pass, results := screen.Evaluate(passingFeatures())
	if !pass {
		t.Fatalf("expected pass, checklist: %+v", results)
	}
	if len(results) != 9 {
		t.Errorf("expected 9 evaluated predicates, got %d", len(results))
	}
	for _, r := range results {
		if !r.Pass {
			t.Errorf("criterion %s unexpectedly failed", r.Name)
		}
	}
}

func TestMotionScreen_TooYoung(t *testing.T) {
	screen := NewMotionScreen(DefaultMotionConfig())

	rec := passingFeatures()
	rec.Values["token_age_seconds"] = 30

	pass, results := screen.Evaluate(rec)
	if pass {
		t.Fatal("token younger than the minimum age must not pass")
	}
	// Short-circuits on the first predicate
	if len(results) != 1 || results[0].Name != "min_time_since_launch" {
		t.Errorf("unexpected checklist: %+v", results)
	}
}

func TestMotionScreen_GraduatedNeverFires(t *testing.T) {
	screen := NewMotionScreen(DefaultMotionConfig())

	rec := passingFeatures()
	rec.Values["graduated"] = 1

	pass, results := screen.Evaluate(rec)
	if pass {
		t.Fatal("graduated token must never pass the motion screen")
	}
	if results[len(results)-1].Name != "not_graduated" {
		t.Errorf("expected short-circuit at not_graduated, got %+v", results)
	}
}

func TestMotionScreen_EachPredicateGates(t *testing.T) {
	tests := []struct {
		name    string
		feature string
		value   float64
	}{
		{"insufficient buy volume", "buy_volume_sol_3m", 5},
		{"too few unique buyers", "unique_buyers_3m", 10},
		{"weak buy/sell ratio", "buy_sell_ratio_3m", 1.1},
		{"slow txn velocity", "txn_velocity", 2},
		{"no known wallets", "known_wallet_buys_3m", 0},
		{"market cap too high", "market_cap_sol", 2000},
		{"bonding curve too far", "bonding_curve_pct", 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			screen := NewMotionScreen(DefaultMotionConfig())
			rec := passingFeatures()
			rec.Values[tt.feature] = tt.value

			pass, results := screen.Evaluate(rec)
			if pass {
				t.Errorf("expected fail, checklist: %+v", results)
			}
			last := results[len(results)-1]
			if last.Pass {
				t.Errorf("last evaluated criterion should be the failing one, got %+v", last)
			}
		})
	}
}

func TestMotionScreen_CeilingsAreExclusive(t *testing.T) {
	// A token sitting exactly on a ceiling has already crossed it.
	t.Run("market cap at ceiling", func(t *testing.T) {
		screen := NewMotionScreen(DefaultMotionConfig())
		rec := passingFeatures()
		rec.Values["market_cap_sol"] = 1000 // exactly 100k USD at the fixed rate

		pass, results := screen.Evaluate(rec)
		if pass {
			t.Fatalf("market cap equal to the maximum must fail, checklist: %+v", results)
		}
		if last := results[len(results)-1]; last.Name != "max_market_cap_usd" {
			t.Errorf("expected short-circuit at max_market_cap_usd, got %+v", last)
		}
	})

	t.Run("bonding curve at ceiling", func(t *testing.T) {
		screen := NewMotionScreen(DefaultMotionConfig())
		rec := passingFeatures()
		rec.Values["bonding_curve_pct"] = 60

		pass, results := screen.Evaluate(rec)
		if pass {
			t.Fatalf("bonding curve equal to the maximum must fail, checklist: %+v", results)
		}
		if last := results[len(results)-1]; last.Name != "max_bonding_curve_pct" {
			t.Errorf("expected short-circuit at max_bonding_curve_pct, got %+v", last)
		}
	})
}

func TestMotionScreen_Monotonicity(t *testing.T) {
	// Making a passing vector strictly better on every >= predicate must
	// not flip the outcome.
	screen := NewMotionScreen(DefaultMotionConfig())

	rec := passingFeatures()
	pass, _ := screen.Evaluate(rec)
	if !pass {
		t.Fatal("baseline vector should pass")
	}

	rec.Values["buy_volume_sol_3m"] *= 2
	rec.Values["unique_buyers_3m"] += 50
	rec.Values["buy_sell_ratio_3m"] += 1
	rec.Values["txn_velocity"] += 10
	rec.Values["known_wallet_buys_3m"] += 2

	pass, results := screen.Evaluate(rec)
	if !pass {
		t.Errorf("strictly better vector must still pass, checklist: %+v", results)
	}
}

func TestGuard_OncePerKind(t *testing.T) {
	guard := NewGuard()

	if !guard.TryAcquire("M1", domain.AlertKindMotion) {
		t.Fatal("first acquire should succeed")
	}
	if guard.TryAcquire("M1", domain.AlertKindMotion) {
		t.Fatal("second acquire for the same kind must fail")
	}
	if !guard.TryAcquire("M1", domain.AlertKindDeep) {
		t.Fatal("different kind should be independent")
	}
	if guard.TryAcquire("M2", domain.AlertKindMotion) != true {
		t.Fatal("different mint should be independent")
	}

	guard.Reset("M1", domain.AlertKindMotion)
	if !guard.TryAcquire("M1", domain.AlertKindMotion) {
		t.Fatal("acquire after reset should succeed")
	}
	if guard.TryAcquire("M1", domain.AlertKindDeep) {
		t.Fatal("resetting one kind must not re-arm the other")
	}
}
