// Package metrics derives token metrics from upstream query results:
// price, market cap, 24h volume, bonding curve progress and migration
// status. Degraded responses count as no data rather than as data with
// zero fields, so a single bad query never erases known values.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"solana-pump-tracker/internal/bitquery"
	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/observability"
)

// EngineOptions contains configuration for creating an Engine.
type EngineOptions struct {
	Gateway bitquery.Executor
	Logger  *log.Logger
	Metrics *observability.Metrics

	// TotalSupplyDefault overrides domain.TotalSupplyDefault when > 0.
	TotalSupplyDefault float64
	// ReservedTokens overrides domain.ReservedTokens when > 0.
	ReservedTokens float64

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

// Engine computes derived metrics for a token. It issues queries through
// the injected gateway but has no other side effects.
type Engine struct {
	gateway bitquery.Executor
	logger  *log.Logger
	metrics *observability.Metrics

	totalSupplyDefault float64
	reservedTokens     float64
	now                func() time.Time
}

// NewEngine creates a metrics engine.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	supply := opts.TotalSupplyDefault
	if supply <= 0 {
		supply = domain.TotalSupplyDefault
	}

	reserved := opts.ReservedTokens
	if reserved <= 0 {
		reserved = domain.ReservedTokens
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		gateway:            opts.Gateway,
		logger:             logger,
		metrics:            opts.Metrics,
		totalSupplyDefault: supply,
		reservedTokens:     reserved,
		now:                now,
	}
}

type metricsEnvelope struct {
	Solana struct {
		DEXTrades []struct {
			Trade struct {
				Buy struct {
					Price bitquery.Float `json:"Price"`
				} `json:"Buy"`
				Volume    bitquery.Float `json:"volume"`
				VolumeUSD bitquery.Float `json:"volumeUSD"`
			} `json:"Trade"`
		} `json:"DEXTrades"`
		TokenBalances struct {
			TotalSupply bitquery.Float `json:"totalSupply"`
		} `json:"TokenBalances"`
	} `json:"Solana"`
}

// DeriveMetrics computes a best-effort metrics snapshot for a token.
// Missing or null values inside a successful response default to zero.
// A transport failure returns a nil snapshot with the error; an
// error-carrying upstream response or an undecodable body counts as no
// data, returning a nil snapshot with no error.
func (e *Engine) DeriveMetrics(ctx context.Context, tokenAddress string) (*domain.MetricsSnapshot, error) {
	computedAt := e.now().UTC()

	timeAgo := computedAt.Add(-24 * time.Hour).Format(time.RFC3339)
	result, err := e.execute(ctx, "token_metrics", tokenMetricsQuery, map[string]interface{}{
		"token":   tokenAddress,
		"timeAgo": timeAgo,
	})
	if err != nil {
		e.logger.Printf("derive metrics for %s: %v", tokenAddress, err)
		return nil, fmt.Errorf("derive metrics: %w", err)
	}
	if result.HasErrors() {
		e.logger.Printf("derive metrics for %s: upstream errors: %s", tokenAddress, result.ErrorMessage())
		return nil, nil
	}

	var env metricsEnvelope
	if err := json.Unmarshal(result.Data, &env); err != nil {
		e.logger.Printf("derive metrics for %s: decode: %v", tokenAddress, err)
		return nil, nil
	}

	snapshot := &domain.MetricsSnapshot{ComputedAt: computedAt.UnixMilli()}

	trades := env.Solana.DEXTrades
	if len(trades) > 0 {
		snapshot.Price = trades[0].Trade.Buy.Price.Value()
	}

	snapshot.TotalSupply = e.totalSupplyDefault
	if supply := env.Solana.TokenBalances.TotalSupply.Value(); supply > 0 {
		snapshot.TotalSupply = supply
	}

	snapshot.MarketCap = snapshot.Price * snapshot.TotalSupply

	// The combined query merges both DEXTrades selections into one
	// list: index 0 is the latest trade, index 1 the 24h aggregate.
	if len(trades) > 1 {
		snapshot.Volume24h = trades[1].Trade.Volume.Value()
		snapshot.VolumeUSD24h = trades[1].Trade.VolumeUSD.Value()
	}

	return snapshot, nil
}

type curveEnvelope struct {
	Solana struct {
		TokenBalances struct {
			Currency struct {
				TotalSupply bitquery.Float `json:"TotalSupply"`
			} `json:"Currency"`
			Balance struct {
				Sum bitquery.Float `json:"sum"`
			} `json:"Balance"`
			HolderCount bitquery.Float `json:"holderCount"`
		} `json:"TokenBalances"`
	} `json:"Solana"`
}

// BondingCurveProgress derives the curve progress for a token. Within a
// successful response, missing balance data means the full reserve is
// still left, i.e. progress 0. An error-carrying response or an
// undecodable body counts as no data, returning a nil state with no
// error.
func (e *Engine) BondingCurveProgress(ctx context.Context, tokenAddress string) (*domain.BondingCurveState, error) {
	result, err := e.execute(ctx, "bonding_curve", bondingCurveQuery, map[string]interface{}{
		"token": tokenAddress,
	})
	if err != nil {
		e.logger.Printf("bonding curve for %s: %v", tokenAddress, err)
		return nil, fmt.Errorf("bonding curve: %w", err)
	}
	if result.HasErrors() {
		e.logger.Printf("bonding curve for %s: upstream errors: %s", tokenAddress, result.ErrorMessage())
		return nil, nil
	}

	var env curveEnvelope
	if err := json.Unmarshal(result.Data, &env); err != nil {
		e.logger.Printf("bonding curve for %s: decode: %v", tokenAddress, err)
		return nil, nil
	}

	initialReserves := e.totalSupplyDefault - e.reservedTokens
	state := &domain.BondingCurveState{
		LeftTokens:  initialReserves,
		TotalSupply: e.totalSupplyDefault,
	}

	balances := env.Solana.TokenBalances
	if supply := balances.Currency.TotalSupply.Value(); supply > 0 {
		state.TotalSupply = supply
	}

	if circulating := balances.Balance.Sum.Value(); circulating != 0 {
		state.LeftTokens = initialReserves - circulating
	}

	state.Progress = curveProgress(state.LeftTokens, initialReserves)
	state.HolderCount = int(balances.HolderCount.Value())

	return state, nil
}

// curveProgress implements the fixed progress formula:
// 100 - leftTokens*100/initialReserves, clamped to [0,100], with any
// non-positive remainder meaning the curve is complete.
func curveProgress(leftTokens, initialReserves float64) float64 {
	if leftTokens <= 0 {
		return 100.0
	}

	progress := 100 - (leftTokens*100)/initialReserves
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

type holdersEnvelope struct {
	Solana struct {
		TokenBalances []struct {
			Balance struct {
				Address string         `json:"Address"`
				Amount  bitquery.Float `json:"Amount"`
			} `json:"Balance"`
		} `json:"TokenBalances"`
	} `json:"Solana"`
}

// TopHolders lists the largest holders of a token, best-effort.
func (e *Engine) TopHolders(ctx context.Context, tokenAddress string, limit int) ([]domain.Holder, error) {
	if limit <= 0 {
		limit = 100
	}

	result, err := e.execute(ctx, "holders", holdersQuery, map[string]interface{}{
		"token": tokenAddress,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("top holders: %w", err)
	}
	if result.HasErrors() {
		e.logger.Printf("top holders for %s: upstream errors: %s", tokenAddress, result.ErrorMessage())
		return nil, nil
	}

	var env holdersEnvelope
	if err := json.Unmarshal(result.Data, &env); err != nil {
		e.logger.Printf("top holders for %s: decode: %v", tokenAddress, err)
		return nil, nil
	}

	holders := make([]domain.Holder, 0, len(env.Solana.TokenBalances))
	for _, b := range env.Solana.TokenBalances {
		if b.Balance.Address == "" {
			continue
		}
		holders = append(holders, domain.Holder{
			Address: b.Balance.Address,
			Amount:  b.Balance.Amount.Value(),
		})
	}
	return holders, nil
}

// execute runs one gateway call with latency/error accounting.
func (e *Engine) execute(ctx context.Context, name, query string, variables map[string]interface{}) (*bitquery.QueryResult, error) {
	start := time.Now()
	result, err := e.gateway.Execute(ctx, query, variables)
	if e.metrics != nil {
		e.metrics.QueryLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err != nil {
			e.metrics.QueryErrors.Inc()
		}
	}
	return result, err
}
