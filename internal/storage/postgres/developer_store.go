package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/storage"
)

// DeveloperStore implements storage.DeveloperStore using PostgreSQL.
type DeveloperStore struct {
	pool *Pool
}

// NewDeveloperStore creates a new DeveloperStore.
func NewDeveloperStore(pool *Pool) *DeveloperStore {
	return &DeveloperStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DeveloperStore = (*DeveloperStore)(nil)

// GetByWallet retrieves a developer. Returns ErrNotFound if not exists.
func (s *DeveloperStore) GetByWallet(ctx context.Context, wallet string) (*domain.Developer, error) {
	query := `
		SELECT wallet_address, first_seen, tokens_created, king_of_hill_tokens,
		       raydium_migrated_tokens, total_volume_generated,
		       highest_mcap_token, highest_mcap_value, last_token_created, last_updated
		FROM developers
		WHERE wallet_address = $1
	`

	row := s.pool.QueryRow(ctx, query, wallet)
	d, err := scanDeveloper(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get developer by wallet: %w", err)
	}
	return d, nil
}

// Upsert inserts or replaces a developer record keyed by wallet.
func (s *DeveloperStore) Upsert(ctx context.Context, d *domain.Developer) error {
	if d == nil || d.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO developers (
			wallet_address, first_seen, tokens_created, king_of_hill_tokens,
			raydium_migrated_tokens, total_volume_generated,
			highest_mcap_token, highest_mcap_value, last_token_created, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (wallet_address) DO UPDATE SET
			tokens_created = EXCLUDED.tokens_created,
			king_of_hill_tokens = EXCLUDED.king_of_hill_tokens,
			raydium_migrated_tokens = EXCLUDED.raydium_migrated_tokens,
			total_volume_generated = EXCLUDED.total_volume_generated,
			highest_mcap_token = EXCLUDED.highest_mcap_token,
			highest_mcap_value = EXCLUDED.highest_mcap_value,
			last_token_created = EXCLUDED.last_token_created,
			last_updated = EXCLUDED.last_updated
	`

	_, err := s.pool.Exec(ctx, query,
		d.WalletAddress, d.FirstSeen, d.TokensCreated, d.KingOfHillTokens,
		d.RaydiumMigratedTokens, d.TotalVolumeGenerated,
		d.HighestMcapToken, d.HighestMcapValue, d.LastTokenCreated, d.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert developer: %w", err)
	}
	return nil
}

// scanDeveloper scans a single row into a Developer.
func scanDeveloper(row pgx.Row) (*domain.Developer, error) {
	var d domain.Developer

	err := row.Scan(
		&d.WalletAddress, &d.FirstSeen, &d.TokensCreated, &d.KingOfHillTokens,
		&d.RaydiumMigratedTokens, &d.TotalVolumeGenerated,
		&d.HighestMcapToken, &d.HighestMcapValue, &d.LastTokenCreated, &d.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	return &d, nil
}
