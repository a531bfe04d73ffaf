package memory

import (
	"context"
	"sync"

	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/storage"
)

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu     sync.RWMutex
	byHash map[string]*domain.TokenTransfer
}

// NewTransferStore creates a new in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{byHash: make(map[string]*domain.TokenTransfer)}
}

var _ storage.TransferStore = (*TransferStore)(nil)

// Insert adds a transfer. Returns ErrDuplicateKey if tx hash exists.
func (s *TransferStore) Insert(_ context.Context, t *domain.TokenTransfer) error {
	if t == nil || t.TxHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[t.TxHash]; exists {
		return storage.ErrDuplicateKey
	}

	transferCopy := *t
	s.byHash[t.TxHash] = &transferCopy
	return nil
}

// Exists reports whether a transfer with the tx hash is stored.
func (s *TransferStore) Exists(_ context.Context, txHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.byHash[txHash]
	return exists, nil
}

// GetByHash retrieves a transfer. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByHash(_ context.Context, txHash string) (*domain.TokenTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byHash[txHash]
	if !exists {
		return nil, storage.ErrNotFound
	}

	transferCopy := *t
	return &transferCopy, nil
}

// Count returns the number of stored transfers. Test helper.
func (s *TransferStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byHash)
}
