package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/storage"
)

const tokenColumns = `
	token_address, token_name, token_symbol, creator_address, creation_time,
	price, market_cap, volume_24h, holders_count, bonding_curve_progress,
	is_king_of_hill, king_of_hill_time, raydium_migrated, raydium_migration_time,
	highest_market_cap, highest_market_cap_time, last_updated
`

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if the address exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := s.pool.Exec(ctx, query,
		t.Address, t.Name, t.Symbol, t.CreatorAddress, t.CreationTime,
		t.Price, t.MarketCap, t.Volume24h, t.HoldersCount, t.BondingCurveProgress,
		t.IsKingOfHill, t.KingOfHillTime, t.RaydiumMigrated, t.RaydiumMigrationTime,
		t.HighestMarketCap, t.HighestMarketCapTime, t.LastUpdated,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByAddress retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(ctx context.Context, address string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_address = $1`

	row := s.pool.QueryRow(ctx, query, address)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by address: %w", err)
	}
	return t, nil
}

// Update applies non-nil patch fields and returns the stored token.
// Returns ErrNotFound if the address does not exist.
func (s *TokenStore) Update(ctx context.Context, address string, patch *domain.TokenUpdate) (*domain.Token, error) {
	if patch == nil {
		return nil, storage.ErrInvalidInput
	}
	if patch.IsEmpty() {
		return s.GetByAddress(ctx, address)
	}

	set, args := buildTokenSet(patch)
	args = append(args, address)

	query := fmt.Sprintf(
		"UPDATE tokens SET %s WHERE token_address = $%d RETURNING %s",
		strings.Join(set, ", "), len(args), tokenColumns,
	)

	row := s.pool.QueryRow(ctx, query, args...)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("update token: %w", err)
	}
	return t, nil
}

// ListByCreator retrieves all tokens created by a wallet.
func (s *TokenStore) ListByCreator(ctx context.Context, creator string) ([]*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE creator_address = $1 ORDER BY token_address`

	rows, err := s.pool.Query(ctx, query, creator)
	if err != nil {
		return nil, fmt.Errorf("list tokens by creator: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// List retrieves tokens with pagination and sorting. The sort column is
// resolved against a whitelist; unknown fields fall back to market_cap.
func (s *TokenStore) List(ctx context.Context, opts storage.ListOptions) ([]*domain.Token, error) {
	column := sortColumn(opts.SortBy)
	direction := "ASC"
	if opts.Descending {
		direction = "DESC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(
		`SELECT %s FROM tokens ORDER BY %s %s NULLS LAST, token_address LIMIT $1 OFFSET $2`,
		tokenColumns, column, direction,
	)

	rows, err := s.pool.Query(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// sortColumn maps a sort field onto a real column name. Interpolating the
// column into SQL is safe only because of this whitelist.
func sortColumn(field string) string {
	switch field {
	case storage.SortByPrice, storage.SortByVolume24h, storage.SortByCreationTime,
		storage.SortByCurveProgress, storage.SortByKingOfHill, storage.SortByMigrationTime,
		storage.SortByMarketCap:
		return field
	default:
		return storage.SortByMarketCap
	}
}

// buildTokenSet builds the SET clause fragments for non-nil patch fields.
func buildTokenSet(p *domain.TokenUpdate) ([]string, []interface{}) {
	var set []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Name != nil {
		add("token_name", *p.Name)
	}
	if p.Symbol != nil {
		add("token_symbol", *p.Symbol)
	}
	if p.Price != nil {
		add("price", *p.Price)
	}
	if p.MarketCap != nil {
		add("market_cap", *p.MarketCap)
	}
	if p.Volume24h != nil {
		add("volume_24h", *p.Volume24h)
	}
	if p.HoldersCount != nil {
		add("holders_count", *p.HoldersCount)
	}
	if p.BondingCurveProgress != nil {
		add("bonding_curve_progress", *p.BondingCurveProgress)
	}
	if p.IsKingOfHill != nil {
		add("is_king_of_hill", *p.IsKingOfHill)
	}
	if p.KingOfHillTime != nil {
		add("king_of_hill_time", *p.KingOfHillTime)
	}
	if p.RaydiumMigrated != nil {
		add("raydium_migrated", *p.RaydiumMigrated)
	}
	if p.RaydiumMigrationTime != nil {
		add("raydium_migration_time", *p.RaydiumMigrationTime)
	}
	if p.HighestMarketCap != nil {
		add("highest_market_cap", *p.HighestMarketCap)
	}
	if p.HighestMarketCapTime != nil {
		add("highest_market_cap_time", *p.HighestMarketCapTime)
	}
	if p.LastUpdated != nil {
		add("last_updated", *p.LastUpdated)
	}

	return set, args
}

// scanToken scans a single row into a Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token

	err := row.Scan(
		&t.Address, &t.Name, &t.Symbol, &t.CreatorAddress, &t.CreationTime,
		&t.Price, &t.MarketCap, &t.Volume24h, &t.HoldersCount, &t.BondingCurveProgress,
		&t.IsKingOfHill, &t.KingOfHillTime, &t.RaydiumMigrated, &t.RaydiumMigrationTime,
		&t.HighestMarketCap, &t.HighestMarketCapTime, &t.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func scanTokens(rows pgx.Rows) ([]*domain.Token, error) {
	var out []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return out, nil
}
