package clickhouse

import (
	"context"
	"fmt"

	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/storage"
)

// TransferArchive implements storage.TransferArchive using ClickHouse.
// The archive is append-only; dedup stays the job of the primary store.
type TransferArchive struct {
	conn *Conn
}

// NewTransferArchive creates a new TransferArchive.
func NewTransferArchive(conn *Conn) *TransferArchive {
	return &TransferArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferArchive = (*TransferArchive)(nil)

// Archive appends a batch of transfers to the archive table.
func (a *TransferArchive) Archive(ctx context.Context, transfers []*domain.TokenTransfer) error {
	if len(transfers) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO transfer_archive (
			transaction_hash, block_time, block_height, sender, receiver,
			amount, mint_address, token_name, token_symbol, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range transfers {
		err = batch.Append(
			t.TxHash, uint64(t.BlockTime), uint64(t.BlockHeight), t.Sender, t.Receiver,
			t.Amount, t.MintAddress, t.TokenName, t.TokenSymbol, uint64(t.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}
