package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/storage"
)

func TestTransferStore_InsertAndGetByHash(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransferStore(pool)

	transfer := &domain.TokenTransfer{
		TxHash:      "tx-hash-1",
		BlockTime:   1700000000000,
		BlockHeight: 250000000,
		Sender:      "Sender1",
		Receiver:    "Receiver1",
		Amount:      2.5,
		MintAddress: "Mint1",
		TokenName:   "Test Token",
		TokenSymbol: "TST",
		CreatedAt:   1700000001000,
	}

	require.NoError(t, store.Insert(ctx, transfer))

	retrieved, err := store.GetByHash(ctx, "tx-hash-1")
	require.NoError(t, err)

	assert.Equal(t, transfer.TxHash, retrieved.TxHash)
	assert.Equal(t, transfer.BlockTime, retrieved.BlockTime)
	assert.Equal(t, transfer.BlockHeight, retrieved.BlockHeight)
	assert.Equal(t, transfer.Sender, retrieved.Sender)
	assert.Equal(t, transfer.Receiver, retrieved.Receiver)
	assert.InDelta(t, transfer.Amount, retrieved.Amount, 0.0000001)
	assert.Equal(t, transfer.MintAddress, retrieved.MintAddress)
	assert.Equal(t, transfer.CreatedAt, retrieved.CreatedAt)
}

func TestTransferStore_InsertDuplicateHash(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransferStore(pool)

	transfer := &domain.TokenTransfer{TxHash: "tx-hash-1", Sender: "s", Receiver: "r", MintAddress: "m"}
	require.NoError(t, store.Insert(ctx, transfer))

	err := store.Insert(ctx, transfer)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTransferStore_Exists(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransferStore(pool)

	exists, err := store.Exists(ctx, "tx-hash-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Insert(ctx, &domain.TokenTransfer{
		TxHash: "tx-hash-1", Sender: "s", Receiver: "r", MintAddress: "m",
	}))

	exists, err = store.Exists(ctx, "tx-hash-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTransferStore_GetByHashNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	_, err := store.GetByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
