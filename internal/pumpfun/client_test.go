package pumpfun

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_GetCoin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/coins/MintAAA") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"mint": "MintAAA",
			"name": "Test Token",
			"symbol": "TEST",
			"creator": "CreatorKey",
			"market_cap": 45.5,
			"usd_market_cap": 4550,
			"complete": false,
			"real_token_reserves": 396550000000000,
			"created_timestamp": 1700000000000
		}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	coin, err := client.GetCoin(context.Background(), "MintAAA")
	if err != nil {
		t.Fatalf("GetCoin: %v", err)
	}
	if coin == nil {
		t.Fatal("expected coin data, got nil")
	}
	if coin.Symbol != "TEST" {
		t.Errorf("symbol = %q", coin.Symbol)
	}
	if coin.MarketCapSOL != 45.5 {
		t.Errorf("market cap = %f", coin.MarketCapSOL)
	}

	// Half the initial reserve sold puts the curve at 50%.
	if pct := coin.BondingCurvePct(); math.Abs(pct-50) > 0.01 {
		t.Errorf("bonding curve pct = %f, want 50", pct)
	}
}

func TestClient_GetCoin_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	coin, err := client.GetCoin(context.Background(), "Unknown")
	if err != nil {
		t.Fatalf("GetCoin: %v", err)
	}
	if coin != nil {
		t.Errorf("expected nil for 404, got %+v", coin)
	}
}

func TestCoinData_BondingCurvePct(t *testing.T) {
	tests := []struct {
		name string
		coin CoinData
		want float64
	}{
		{"graduated", CoinData{Complete: true, RealTokenReserves: 500_000_000_000_000}, 100},
		{"untouched", CoinData{RealTokenReserves: 793_100_000_000_000}, 0},
		{"sold out", CoinData{RealTokenReserves: 0}, 100},
		{"quarter", CoinData{RealTokenReserves: 594_825_000_000_000}, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.coin.BondingCurvePct(); math.Abs(got-tt.want) > 0.01 {
				t.Errorf("BondingCurvePct() = %f, want %f", got, tt.want)
			}
		})
	}
}
