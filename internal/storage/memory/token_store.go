package memory

import (
	"context"
	"sort"
	"sync"

	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu        sync.RWMutex
	byAddress map[string]*domain.Token
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{byAddress: make(map[string]*domain.Token)}
}

var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if the address exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[t.Address]; exists {
		return storage.ErrDuplicateKey
	}

	tokenCopy := *t
	s.byAddress[t.Address] = &tokenCopy
	return nil
}

// GetByAddress retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(_ context.Context, address string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byAddress[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// Update applies non-nil patch fields. Returns ErrNotFound if absent.
func (s *TokenStore) Update(_ context.Context, address string, patch *domain.TokenUpdate) (*domain.Token, error) {
	if patch == nil {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.byAddress[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	applyPatch(t, patch)

	tokenCopy := *t
	return &tokenCopy, nil
}

// ListByCreator retrieves all tokens created by a wallet.
func (s *TokenStore) ListByCreator(_ context.Context, creator string) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Token
	for _, t := range s.byAddress {
		if t.CreatorAddress == creator {
			tokenCopy := *t
			out = append(out, &tokenCopy)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// List retrieves tokens with pagination and sorting.
func (s *TokenStore) List(_ context.Context, opts storage.ListOptions) ([]*domain.Token, error) {
	s.mu.RLock()
	all := make([]*domain.Token, 0, len(s.byAddress))
	for _, t := range s.byAddress {
		tokenCopy := *t
		all = append(all, &tokenCopy)
	}
	s.mu.RUnlock()

	sortTokens(all, opts.SortBy, opts.Descending)

	offset := opts.Offset
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]

	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}

// sortTokens orders tokens by the requested field with the token address
// as a deterministic tiebreaker. Unknown fields sort by market cap.
func sortTokens(tokens []*domain.Token, sortBy string, descending bool) {
	key := func(t *domain.Token) float64 {
		switch sortBy {
		case storage.SortByPrice:
			return derefFloat(t.Price)
		case storage.SortByVolume24h:
			return derefFloat(t.Volume24h)
		case storage.SortByCreationTime:
			return float64(t.CreationTime)
		case storage.SortByCurveProgress:
			return derefFloat(t.BondingCurveProgress)
		case storage.SortByKingOfHill:
			return float64(derefInt64(t.KingOfHillTime))
		case storage.SortByMigrationTime:
			return float64(derefInt64(t.RaydiumMigrationTime))
		default:
			return derefFloat(t.MarketCap)
		}
	}

	sort.Slice(tokens, func(i, j int) bool {
		ki, kj := key(tokens[i]), key(tokens[j])
		if ki != kj {
			if descending {
				return ki > kj
			}
			return ki < kj
		}
		return tokens[i].Address < tokens[j].Address
	})
}

func applyPatch(t *domain.Token, p *domain.TokenUpdate) {
	if p.Name != nil {
		t.Name = p.Name
	}
	if p.Symbol != nil {
		t.Symbol = p.Symbol
	}
	if p.Price != nil {
		t.Price = p.Price
	}
	if p.MarketCap != nil {
		t.MarketCap = p.MarketCap
	}
	if p.Volume24h != nil {
		t.Volume24h = p.Volume24h
	}
	if p.HoldersCount != nil {
		t.HoldersCount = p.HoldersCount
	}
	if p.BondingCurveProgress != nil {
		t.BondingCurveProgress = p.BondingCurveProgress
	}
	if p.IsKingOfHill != nil {
		t.IsKingOfHill = *p.IsKingOfHill
	}
	if p.KingOfHillTime != nil {
		t.KingOfHillTime = p.KingOfHillTime
	}
	if p.RaydiumMigrated != nil {
		t.RaydiumMigrated = *p.RaydiumMigrated
	}
	if p.RaydiumMigrationTime != nil {
		t.RaydiumMigrationTime = p.RaydiumMigrationTime
	}
	if p.HighestMarketCap != nil {
		t.HighestMarketCap = p.HighestMarketCap
	}
	if p.HighestMarketCapTime != nil {
		t.HighestMarketCapTime = p.HighestMarketCapTime
	}
	if p.LastUpdated != nil {
		t.LastUpdated = *p.LastUpdated
	}
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefInt64(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}
