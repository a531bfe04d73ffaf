package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/storage"
)

// TransferStore implements storage.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// Insert adds a transfer. Returns ErrDuplicateKey if tx hash exists.
func (s *TransferStore) Insert(ctx context.Context, t *domain.TokenTransfer) error {
	if t == nil || t.TxHash == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_transfers (
			transaction_hash, block_time, block_height, sender, receiver,
			amount, mint_address, token_name, token_symbol, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TxHash, t.BlockTime, t.BlockHeight, t.Sender, t.Receiver,
		t.Amount, t.MintAddress, t.TokenName, t.TokenSymbol, t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// Exists reports whether a transfer with the tx hash is stored.
func (s *TransferStore) Exists(ctx context.Context, txHash string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM token_transfers WHERE transaction_hash = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, txHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("check transfer exists: %w", err)
	}
	return exists, nil
}

// GetByHash retrieves a transfer. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByHash(ctx context.Context, txHash string) (*domain.TokenTransfer, error) {
	query := `
		SELECT transaction_hash, block_time, block_height, sender, receiver,
		       amount, mint_address, token_name, token_symbol, created_at
		FROM token_transfers
		WHERE transaction_hash = $1
	`

	row := s.pool.QueryRow(ctx, query, txHash)
	t, err := scanTransfer(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer by hash: %w", err)
	}
	return t, nil
}

// scanTransfer scans a single row into a TokenTransfer.
func scanTransfer(row pgx.Row) (*domain.TokenTransfer, error) {
	var t domain.TokenTransfer

	err := row.Scan(
		&t.TxHash, &t.BlockTime, &t.BlockHeight, &t.Sender, &t.Receiver,
		&t.Amount, &t.MintAddress, &t.TokenName, &t.TokenSymbol, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
