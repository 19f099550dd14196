package memory

import (
	"context"
	"errors"
	"testing"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

func TestAlertStore_InsertAndGet(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	alert := &domain.Alert{
		AlertID:     "a1",
		Mint:        "Mint1",
		Kind:        domain.AlertKindMotion,
		TriggeredAt: 1000,
		Features:    map[string]float64{"buy_volume_sol_3m": 42},
	}

	if err := store.Insert(ctx, alert); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "a1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Features["buy_volume_sol_3m"] != 42 {
		t.Errorf("Feature mismatch: got %f, want 42", got.Features["buy_volume_sol_3m"])
	}
}

func TestAlertStore_DuplicateKey(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	alert := &domain.Alert{AlertID: "a1", Mint: "Mint1", Kind: domain.AlertKindDeep}

	if err := store.Insert(ctx, alert); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, alert)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestAlertStore_InvalidKind(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	err := store.Insert(ctx, &domain.Alert{AlertID: "a1", Mint: "M1", Kind: "bogus"})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestAlertStore_GetByKind(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	alerts := []*domain.Alert{
		{AlertID: "a1", Mint: "M1", Kind: domain.AlertKindMotion, TriggeredAt: 2000},
		{AlertID: "a2", Mint: "M2", Kind: domain.AlertKindDeep, TriggeredAt: 1000},
		{AlertID: "a3", Mint: "M1", Kind: domain.AlertKindMotion, TriggeredAt: 1000},
	}
	for _, a := range alerts {
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByKind(ctx, domain.AlertKindMotion)
	if err != nil {
		t.Fatalf("GetByKind failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 motion alerts, got %d", len(got))
	}
	if got[0].AlertID != "a3" || got[1].AlertID != "a1" {
		t.Errorf("Unexpected order: %s, %s", got[0].AlertID, got[1].AlertID)
	}
}

func TestAlertStore_CopyOnRead(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	alert := &domain.Alert{
		AlertID:  "a1",
		Mint:     "M1",
		Kind:     domain.AlertKindMotion,
		Features: map[string]float64{"txn_velocity": 20},
		Criteria: []domain.CriterionResult{{Name: "txn_velocity", Threshold: 15, Actual: 20, Pass: true}},
	}
	if err := store.Insert(ctx, alert); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "a1")
	got.Features["txn_velocity"] = 0
	got.Criteria[0].Pass = false

	again, _ := store.GetByID(ctx, "a1")
	if again.Features["txn_velocity"] != 20 {
		t.Error("Mutating returned features should not affect stored state")
	}
	if !again.Criteria[0].Pass {
		t.Error("Mutating returned criteria should not affect stored state")
	}
}
