package memory

import (
	"context"
	"errors"
	"testing"

	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/storage"
)

func TestTransferStore_InsertAndExists(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	transfer := &domain.TokenTransfer{
		TxHash:      "tx1",
		Sender:      "s1",
		Receiver:    "r1",
		Amount:      5,
		MintAddress: "mint1",
	}

	exists, err := store.Exists(ctx, "tx1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("unexpected transfer before insert")
	}

	if err := store.Insert(ctx, transfer); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	exists, err = store.Exists(ctx, "tx1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("transfer missing after insert")
	}
}

func TestTransferStore_InsertDuplicate(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.TokenTransfer{TxHash: "tx1"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := store.Insert(ctx, &domain.TokenTransfer{TxHash: "tx1"})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 stored transfer, got %d", store.Count())
	}
}

func TestTransferStore_GetByHash(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.TokenTransfer{TxHash: "tx1", Amount: 2.5}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByHash(ctx, "tx1")
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if got.Amount != 2.5 {
		t.Errorf("Amount mismatch: got %f", got.Amount)
	}

	if _, err := store.GetByHash(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
