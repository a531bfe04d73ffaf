// Package developer maintains per-wallet aggregate statistics over the
// tokens a wallet created.
package developer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/storage"
)

// Updater creates and refreshes developer aggregate records. It reads
// current state from the stores on every call; nothing is cached.
type Updater struct {
	tokens     storage.TokenStore
	developers storage.DeveloperStore
	logger     *log.Logger
	now        func() time.Time
}

// NewUpdater creates a developer stats updater.
func NewUpdater(tokens storage.TokenStore, developers storage.DeveloperStore, logger *log.Logger) *Updater {
	if logger == nil {
		logger = log.Default()
	}
	return &Updater{
		tokens:     tokens,
		developers: developers,
		logger:     logger,
		now:        time.Now,
	}
}

// RecordCreation bumps creation counters for a wallet that just
// launched a token. First sighting creates the developer record.
func (u *Updater) RecordCreation(ctx context.Context, wallet string, createdAt int64) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}

	nowMs := u.now().UTC().UnixMilli()

	dev, err := u.developers.GetByWallet(ctx, wallet)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		dev = &domain.Developer{
			WalletAddress: wallet,
			FirstSeen:     createdAt,
		}
	case err != nil:
		return fmt.Errorf("get developer %s: %w", wallet, err)
	}

	dev.TokensCreated++
	if dev.LastTokenCreated == nil || createdAt > *dev.LastTokenCreated {
		dev.LastTokenCreated = &createdAt
	}
	dev.LastUpdated = nowMs

	if err := u.developers.Upsert(ctx, dev); err != nil {
		return fmt.Errorf("upsert developer %s: %w", wallet, err)
	}
	return nil
}

// Recompute rebuilds a wallet's aggregates from its tokens. This is the
// corrective path: counters are set to the observed truth, which is the
// only way they may move down.
func (u *Updater) Recompute(ctx context.Context, wallet string) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}

	tokens, err := u.tokens.ListByCreator(ctx, wallet)
	if err != nil {
		return fmt.Errorf("list tokens for %s: %w", wallet, err)
	}
	if len(tokens) == 0 {
		return nil
	}

	nowMs := u.now().UTC().UnixMilli()

	dev, err := u.developers.GetByWallet(ctx, wallet)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		dev = &domain.Developer{WalletAddress: wallet}
	case err != nil:
		return fmt.Errorf("get developer %s: %w", wallet, err)
	}

	dev.TokensCreated = len(tokens)
	dev.KingOfHillTokens = 0
	dev.RaydiumMigratedTokens = 0
	dev.TotalVolumeGenerated = 0
	dev.HighestMcapToken = nil
	dev.HighestMcapValue = nil

	firstSeen := tokens[0].CreationTime
	var lastCreated int64

	for _, t := range tokens {
		if t.CreationTime > 0 && (firstSeen == 0 || t.CreationTime < firstSeen) {
			firstSeen = t.CreationTime
		}
		if t.CreationTime > lastCreated {
			lastCreated = t.CreationTime
		}
		if t.IsKingOfHill {
			dev.KingOfHillTokens++
		}
		if t.RaydiumMigrated {
			dev.RaydiumMigratedTokens++
		}
		if t.Volume24h != nil {
			dev.TotalVolumeGenerated += *t.Volume24h
		}
		if t.MarketCap != nil && (dev.HighestMcapValue == nil || *t.MarketCap > *dev.HighestMcapValue) {
			addr := t.Address
			mcap := *t.MarketCap
			dev.HighestMcapToken = &addr
			dev.HighestMcapValue = &mcap
		}
	}

	if dev.FirstSeen == 0 {
		dev.FirstSeen = firstSeen
	}
	if lastCreated > 0 {
		dev.LastTokenCreated = &lastCreated
	}
	dev.LastUpdated = nowMs

	if err := u.developers.Upsert(ctx, dev); err != nil {
		return fmt.Errorf("upsert developer %s: %w", wallet, err)
	}
	return nil
}
