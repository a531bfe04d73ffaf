package memory

import (
	"context"
	"sync"

	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/storage"
)

// DeveloperStore is an in-memory implementation of storage.DeveloperStore.
type DeveloperStore struct {
	mu       sync.RWMutex
	byWallet map[string]*domain.Developer
}

// NewDeveloperStore creates a new in-memory developer store.
func NewDeveloperStore() *DeveloperStore {
	return &DeveloperStore{byWallet: make(map[string]*domain.Developer)}
}

var _ storage.DeveloperStore = (*DeveloperStore)(nil)

// GetByWallet retrieves a developer. Returns ErrNotFound if not exists.
func (s *DeveloperStore) GetByWallet(_ context.Context, wallet string) (*domain.Developer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.byWallet[wallet]
	if !exists {
		return nil, storage.ErrNotFound
	}

	devCopy := *d
	return &devCopy, nil
}

// Upsert inserts or replaces a developer record keyed by wallet.
func (s *DeveloperStore) Upsert(_ context.Context, d *domain.Developer) error {
	if d == nil || d.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	devCopy := *d
	s.byWallet[d.WalletAddress] = &devCopy
	return nil
}
