// Package refresh drives periodic metric updates for tracked tokens.
// A batch refreshes every token independently; one token failing never
// touches the outcome of another.
package refresh

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-pump-tracker/internal/developer"
	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/observability"
	"solana-pump-tracker/internal/storage"
)

const defaultConcurrency = 4

// MetricsSource derives market metrics and bonding curve state.
// *metrics.Engine satisfies it.
type MetricsSource interface {
	DeriveMetrics(ctx context.Context, tokenAddress string) (*domain.MetricsSnapshot, error)
	BondingCurveProgress(ctx context.Context, tokenAddress string) (*domain.BondingCurveState, error)
}

// MigrationSource checks migration venue activity. *metrics.Detector
// satisfies it.
type MigrationSource interface {
	CheckMigration(ctx context.Context, tokenAddress string) domain.MigrationStatus
}

// Outcome is the per-token result of a batch refresh.
type Outcome struct {
	Address string
	Success bool
	Err     error
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	Tokens     storage.TokenStore
	Engine     MetricsSource
	Detector   MigrationSource
	Developers *developer.Updater

	// Concurrency bounds parallel per-token refreshes in RefreshBatch.
	Concurrency int

	Logger  *log.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// Orchestrator refreshes stored token metrics from upstream queries.
type Orchestrator struct {
	tokens      storage.TokenStore
	engine      MetricsSource
	detector    MigrationSource
	developers  *developer.Updater
	concurrency int
	logger      *log.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

// NewOrchestrator creates a refresh orchestrator.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		tokens:      opts.Tokens,
		engine:      opts.Engine,
		detector:    opts.Detector,
		developers:  opts.Developers,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         opts.Now,
	}
}

// RefreshOne refreshes a single token. The three upstream derivations
// run concurrently; whatever succeeded is folded into a partial update
// so a failed query never blanks a stored value. Returns ErrNotFound
// when the token is unknown, without touching storage.
func (o *Orchestrator) RefreshOne(ctx context.Context, address string) error {
	token, err := o.tokens.GetByAddress(ctx, address)
	if err != nil {
		return fmt.Errorf("load token %s: %w", address, err)
	}

	var (
		wg        sync.WaitGroup
		snapshot  *domain.MetricsSnapshot
		snapErr   error
		curve     *domain.BondingCurveState
		curveErr  error
		migration domain.MigrationStatus
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		snapshot, snapErr = o.engine.DeriveMetrics(ctx, address)
	}()
	go func() {
		defer wg.Done()
		curve, curveErr = o.engine.BondingCurveProgress(ctx, address)
	}()
	go func() {
		defer wg.Done()
		migration = o.detector.CheckMigration(ctx, address)
	}()
	wg.Wait()

	if snapErr != nil {
		return fmt.Errorf("derive metrics %s: %w", address, snapErr)
	}
	if curveErr != nil {
		return fmt.Errorf("bonding curve %s: %w", address, curveErr)
	}

	patch := buildPatch(token, snapshot, curve, migration, o.now().UTC().UnixMilli())
	if _, err := o.tokens.Update(ctx, address, patch); err != nil {
		return fmt.Errorf("update token %s: %w", address, err)
	}

	if o.developers != nil && token.CreatorAddress != "" {
		if err := o.developers.Recompute(ctx, token.CreatorAddress); err != nil {
			// Aggregates catch up on the next pass.
			o.logger.Printf("developer recompute %s: %v", token.CreatorAddress, err)
		}
	}
	return nil
}

// buildPatch folds derivation results into a partial token update. A
// nil snapshot or curve state means the derivation produced no data,
// and its fields are left out of the patch so stored values survive.
// The migration flag only ever moves to true; a negative check while a
// token is already marked migrated changes nothing.
func buildPatch(token *domain.Token, snapshot *domain.MetricsSnapshot, curve *domain.BondingCurveState, migration domain.MigrationStatus, nowMs int64) *domain.TokenUpdate {
	patch := &domain.TokenUpdate{LastUpdated: &nowMs}

	if snapshot != nil {
		price := snapshot.Price
		mcap := snapshot.MarketCap
		volume := snapshot.Volume24h
		patch.Price = &price
		patch.MarketCap = &mcap
		patch.Volume24h = &volume

		if mcap > 0 && (token.HighestMarketCap == nil || mcap > *token.HighestMarketCap) {
			hm := mcap
			ht := snapshot.ComputedAt
			if ht == 0 {
				ht = nowMs
			}
			patch.HighestMarketCap = &hm
			patch.HighestMarketCapTime = &ht
		}
	}

	if curve != nil {
		progress := curve.Progress
		holders := curve.HolderCount
		patch.BondingCurveProgress = &progress
		patch.HoldersCount = &holders
	}

	if migration.Migrated && !token.RaydiumMigrated {
		migrated := true
		patch.RaydiumMigrated = &migrated
		if migration.MigrationTime != nil {
			mt := *migration.MigrationTime
			patch.RaydiumMigrationTime = &mt
		}
	}

	return patch
}

// RefreshBatch refreshes the given addresses with bounded concurrency.
// The returned outcomes are ordered like the input; a failed address
// carries its error and never affects the others. Context cancellation
// stops scheduling new tokens but leaves already-started ones to finish.
func (o *Orchestrator) RefreshBatch(ctx context.Context, addresses []string) []Outcome {
	outcomes := make([]Outcome, len(addresses))
	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup

	for i, addr := range addresses {
		select {
		case <-ctx.Done():
			for j := i; j < len(addresses); j++ {
				outcomes[j] = Outcome{Address: addresses[j], Err: ctx.Err()}
			}
			wg.Wait()
			return outcomes
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			defer func() { <-sem }()

			err := o.RefreshOne(ctx, addr)
			outcomes[i] = Outcome{Address: addr, Success: err == nil, Err: err}
			if err != nil {
				o.logger.Printf("refresh %s: %v", addr, err)
				o.countOutcome("failure")
			} else {
				o.countOutcome("success")
			}
		}(i, addr)
	}

	wg.Wait()
	return outcomes
}

// RefreshAll refreshes every stored token, most recently created first.
// limit <= 0 means no cap.
func (o *Orchestrator) RefreshAll(ctx context.Context, limit int) ([]Outcome, error) {
	tokens, err := o.tokens.List(ctx, storage.ListOptions{
		SortBy:     storage.SortByCreationTime,
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	addresses := make([]string, len(tokens))
	for i, t := range tokens {
		addresses[i] = t.Address
	}
	return o.RefreshBatch(ctx, addresses), nil
}

func (o *Orchestrator) countOutcome(result string) {
	if o.metrics != nil {
		o.metrics.RefreshOutcomes.WithLabelValues(result).Inc()
	}
}
