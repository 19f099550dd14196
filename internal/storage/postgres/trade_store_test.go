package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

func TestTradeStore_InsertAndGetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trade := &domain.TradeEvent{
		Mint:         "TestMint1",
		TxSignature:  "Sig1",
		Trader:       "Trader1",
		Side:         domain.TradeSideBuy,
		SOLAmount:    1.5,
		TokenAmount:  50000,
		MarketCapSOL: 42.0,
		Timestamp:    1700000001000,
		CreatedAt:    1700000001000,
	}

	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByMint(ctx, "TestMint1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Sig1", got[0].TxSignature)
	assert.Equal(t, domain.TradeSideBuy, got[0].Side)
	assert.InDelta(t, 1.5, got[0].SOLAmount, 1e-9)
}

func TestTradeStore_DuplicateSignature(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trade := &domain.TradeEvent{
		Mint:        "TestMint1",
		TxSignature: "Sig1",
		Side:        domain.TradeSideBuy,
		Timestamp:   1700000001000,
	}

	require.NoError(t, store.Insert(ctx, trade))

	err := store.Insert(ctx, trade)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByMint(ctx, "TestMint1")
	require.NoError(t, err)
	assert.Len(t, got, 1, "duplicate delivery must not add a row")
}

func TestTradeStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trades := []*domain.TradeEvent{
		{Mint: "M1", TxSignature: "s1", Side: domain.TradeSideBuy, Timestamp: 1000},
		{Mint: "M1", TxSignature: "s2", Side: domain.TradeSideSell, Timestamp: 2000},
		{Mint: "M1", TxSignature: "s3", Side: domain.TradeSideBuy, Timestamp: 3000},
	}
	for _, tr := range trades {
		require.NoError(t, store.Insert(ctx, tr))
	}

	got, err := store.GetByTimeRange(ctx, "M1", 1000, 2000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].TxSignature)
	assert.Equal(t, "s2", got[1].TxSignature)
}
