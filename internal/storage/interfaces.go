package storage

import (
	"context"

	"solana-pump-tracker/internal/domain"
)

// Token sort fields accepted by TokenStore.List. Anything else falls back
// to SortByMarketCap.
const (
	SortByMarketCap     = "market_cap"
	SortByPrice         = "price"
	SortByVolume24h     = "volume_24h"
	SortByCreationTime  = "creation_time"
	SortByCurveProgress = "bonding_curve_progress"
	SortByKingOfHill    = "king_of_hill_time"
	SortByMigrationTime = "raydium_migration_time"
)

// ListOptions controls pagination and sorting of token listings.
type ListOptions struct {
	SortBy     string
	Descending bool
	Limit      int
	Offset     int
}

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if the address exists.
	Insert(ctx context.Context, t *domain.Token) error

	// GetByAddress retrieves a token. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Token, error)

	// Update applies non-nil fields of the patch and returns the stored
	// token. Returns ErrNotFound if the address does not exist.
	Update(ctx context.Context, address string, patch *domain.TokenUpdate) (*domain.Token, error)

	// ListByCreator retrieves all tokens created by a wallet.
	ListByCreator(ctx context.Context, creator string) ([]*domain.Token, error)

	// List retrieves tokens with pagination and sorting.
	List(ctx context.Context, opts ListOptions) ([]*domain.Token, error)
}

// DeveloperStore provides access to developers storage.
type DeveloperStore interface {
	// GetByWallet retrieves a developer. Returns ErrNotFound if not exists.
	GetByWallet(ctx context.Context, wallet string) (*domain.Developer, error)

	// Upsert inserts or replaces a developer record keyed by wallet.
	Upsert(ctx context.Context, d *domain.Developer) error
}

// TransferStore provides access to token_transfers storage.
// The transaction hash is the dedup key for stream ingestion.
type TransferStore interface {
	// Insert adds a transfer. Returns ErrDuplicateKey if tx hash exists.
	Insert(ctx context.Context, t *domain.TokenTransfer) error

	// Exists reports whether a transfer with the tx hash is stored.
	Exists(ctx context.Context, txHash string) (bool, error)

	// GetByHash retrieves a transfer. Returns ErrNotFound if not exists.
	GetByHash(ctx context.Context, txHash string) (*domain.TokenTransfer, error)
}

// TransferArchive is an append-only analytics sink for raw transfers.
// Archiving is best-effort; it never participates in dedup decisions.
type TransferArchive interface {
	Archive(ctx context.Context, transfers []*domain.TokenTransfer) error
}
