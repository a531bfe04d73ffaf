package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-pump-tracker/internal/developer"
	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/storage"
	"solana-pump-tracker/internal/storage/memory"
)

type fakeEngine struct {
	snapshots map[string]*domain.MetricsSnapshot
	curves    map[string]*domain.BondingCurveState
	failFor   map[string]error

	// noDataFor mimics degraded upstream responses: nil results, no error.
	noDataFor map[string]bool
}

func (f *fakeEngine) DeriveMetrics(_ context.Context, addr string) (*domain.MetricsSnapshot, error) {
	if err := f.failFor[addr]; err != nil {
		return nil, err
	}
	if f.noDataFor[addr] {
		return nil, nil
	}
	if s, ok := f.snapshots[addr]; ok {
		return s, nil
	}
	return &domain.MetricsSnapshot{}, nil
}

func (f *fakeEngine) BondingCurveProgress(_ context.Context, addr string) (*domain.BondingCurveState, error) {
	if f.noDataFor[addr] {
		return nil, nil
	}
	if c, ok := f.curves[addr]; ok {
		return c, nil
	}
	return &domain.BondingCurveState{}, nil
}

type fakeDetector struct {
	statuses map[string]domain.MigrationStatus
}

func (f *fakeDetector) CheckMigration(_ context.Context, addr string) domain.MigrationStatus {
	return f.statuses[addr]
}

func seedToken(t *testing.T, store *memory.TokenStore, token *domain.Token) {
	t.Helper()
	if err := store.Insert(context.Background(), token); err != nil {
		t.Fatalf("seed token %s: %v", token.Address, err)
	}
}

func newTestOrchestrator(tokens *memory.TokenStore, engine MetricsSource, detector MigrationSource) *Orchestrator {
	return NewOrchestrator(OrchestratorOptions{
		Tokens:   tokens,
		Engine:   engine,
		Detector: detector,
		Now:      func() time.Time { return time.UnixMilli(1_700_000_100_000).UTC() },
	})
}

func TestRefreshOne_UnknownTokenLeavesStorageAlone(t *testing.T) {
	tokens := memory.NewTokenStore()
	o := newTestOrchestrator(tokens, &fakeEngine{}, &fakeDetector{})

	err := o.RefreshOne(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got, _ := tokens.List(context.Background(), storage.ListOptions{}); len(got) != 0 {
		t.Errorf("storage must stay empty, got %d tokens", len(got))
	}
}

func TestRefreshOne_MergesAllDerivations(t *testing.T) {
	tokens := memory.NewTokenStore()
	seedToken(t, tokens, &domain.Token{Address: "tok-A", CreationTime: 1})

	mt := int64(1_699_999_000_000)
	engine := &fakeEngine{
		snapshots: map[string]*domain.MetricsSnapshot{
			"tok-A": {Price: 0.002, MarketCap: 2_000_000, Volume24h: 500, ComputedAt: 1_700_000_000_000},
		},
		curves: map[string]*domain.BondingCurveState{
			"tok-A": {Progress: 37.5, HolderCount: 12},
		},
	}
	detector := &fakeDetector{statuses: map[string]domain.MigrationStatus{
		"tok-A": {Migrated: true, MigrationTime: &mt},
	}}

	o := newTestOrchestrator(tokens, engine, detector)
	if err := o.RefreshOne(context.Background(), "tok-A"); err != nil {
		t.Fatalf("RefreshOne: %v", err)
	}

	token, err := tokens.GetByAddress(context.Background(), "tok-A")
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if token.Price == nil || *token.Price != 0.002 {
		t.Errorf("unexpected price: %v", token.Price)
	}
	if token.MarketCap == nil || *token.MarketCap != 2_000_000 {
		t.Errorf("unexpected market cap: %v", token.MarketCap)
	}
	if token.Volume24h == nil || *token.Volume24h != 500 {
		t.Errorf("unexpected volume: %v", token.Volume24h)
	}
	if token.BondingCurveProgress == nil || *token.BondingCurveProgress != 37.5 {
		t.Errorf("unexpected curve progress: %v", token.BondingCurveProgress)
	}
	if token.HoldersCount == nil || *token.HoldersCount != 12 {
		t.Errorf("unexpected holders: %v", token.HoldersCount)
	}
	if !token.RaydiumMigrated {
		t.Error("expected migrated flag set")
	}
	if token.RaydiumMigrationTime == nil || *token.RaydiumMigrationTime != mt {
		t.Errorf("unexpected migration time: %v", token.RaydiumMigrationTime)
	}
	if token.HighestMarketCap == nil || *token.HighestMarketCap != 2_000_000 {
		t.Errorf("unexpected highest mcap: %v", token.HighestMarketCap)
	}
	if token.LastUpdated != 1_700_000_100_000 {
		t.Errorf("unexpected last updated: %d", token.LastUpdated)
	}
}

func TestRefreshOne_FailedDerivationWritesNothing(t *testing.T) {
	tokens := memory.NewTokenStore()
	price := 0.5
	seedToken(t, tokens, &domain.Token{Address: "tok-A", Price: &price, LastUpdated: 42})

	engine := &fakeEngine{failFor: map[string]error{"tok-A": errors.New("upstream down")}}
	o := newTestOrchestrator(tokens, engine, &fakeDetector{})

	if err := o.RefreshOne(context.Background(), "tok-A"); err == nil {
		t.Fatal("expected an error")
	}

	token, _ := tokens.GetByAddress(context.Background(), "tok-A")
	if *token.Price != 0.5 || token.LastUpdated != 42 {
		t.Errorf("failed refresh must not mutate the token: %+v", token)
	}
}

func TestRefreshOne_NoDataPreservesStoredValues(t *testing.T) {
	tokens := memory.NewTokenStore()
	price := 0.5
	mcap := 500_000_000.0
	progress := 42.0
	holders := 17
	seedToken(t, tokens, &domain.Token{
		Address:              "tok-A",
		Price:                &price,
		MarketCap:            &mcap,
		BondingCurveProgress: &progress,
		HoldersCount:         &holders,
	})

	// Upstream answered with an error payload: no data, no error.
	engine := &fakeEngine{noDataFor: map[string]bool{"tok-A": true}}
	o := newTestOrchestrator(tokens, engine, &fakeDetector{})

	if err := o.RefreshOne(context.Background(), "tok-A"); err != nil {
		t.Fatalf("RefreshOne: %v", err)
	}

	token, _ := tokens.GetByAddress(context.Background(), "tok-A")
	if token.Price == nil || *token.Price != 0.5 {
		t.Errorf("stored price must survive a degraded refresh: %v", token.Price)
	}
	if token.MarketCap == nil || *token.MarketCap != 500_000_000 {
		t.Errorf("stored market cap must survive a degraded refresh: %v", token.MarketCap)
	}
	if token.BondingCurveProgress == nil || *token.BondingCurveProgress != 42 {
		t.Errorf("stored curve progress must survive a degraded refresh: %v", token.BondingCurveProgress)
	}
	if token.HoldersCount == nil || *token.HoldersCount != 17 {
		t.Errorf("stored holder count must survive a degraded refresh: %v", token.HoldersCount)
	}
	if token.LastUpdated != 1_700_000_100_000 {
		t.Errorf("a degraded refresh still stamps last updated: %d", token.LastUpdated)
	}
}

func TestRefreshOne_MigrationFlagNeverReverts(t *testing.T) {
	tokens := memory.NewTokenStore()
	mt := int64(1_699_000_000_000)
	seedToken(t, tokens, &domain.Token{
		Address:              "tok-A",
		RaydiumMigrated:      true,
		RaydiumMigrationTime: &mt,
	})

	// Detector now reports not migrated.
	o := newTestOrchestrator(tokens, &fakeEngine{}, &fakeDetector{})
	if err := o.RefreshOne(context.Background(), "tok-A"); err != nil {
		t.Fatalf("RefreshOne: %v", err)
	}

	token, _ := tokens.GetByAddress(context.Background(), "tok-A")
	if !token.RaydiumMigrated {
		t.Error("migration flag must never revert")
	}
	if token.RaydiumMigrationTime == nil || *token.RaydiumMigrationTime != mt {
		t.Errorf("migration time must be preserved: %v", token.RaydiumMigrationTime)
	}
}

func TestRefreshOne_HighestMarketCapOnlyGrows(t *testing.T) {
	tokens := memory.NewTokenStore()
	high := 9_000_000.0
	highAt := int64(1_699_000_000_000)
	seedToken(t, tokens, &domain.Token{
		Address:              "tok-A",
		HighestMarketCap:     &high,
		HighestMarketCapTime: &highAt,
	})

	engine := &fakeEngine{snapshots: map[string]*domain.MetricsSnapshot{
		"tok-A": {Price: 0.001, MarketCap: 1_000_000},
	}}
	o := newTestOrchestrator(tokens, engine, &fakeDetector{})
	if err := o.RefreshOne(context.Background(), "tok-A"); err != nil {
		t.Fatalf("RefreshOne: %v", err)
	}

	token, _ := tokens.GetByAddress(context.Background(), "tok-A")
	if *token.HighestMarketCap != 9_000_000 {
		t.Errorf("lower mcap must not displace the high-water mark: %v", *token.HighestMarketCap)
	}
	if *token.MarketCap != 1_000_000 {
		t.Errorf("current mcap must still update: %v", *token.MarketCap)
	}
}

func TestRefreshBatch_PartialFailureIsIsolated(t *testing.T) {
	tokens := memory.NewTokenStore()
	seedToken(t, tokens, &domain.Token{Address: "tok-A"})
	seedToken(t, tokens, &domain.Token{Address: "tok-B"})

	engine := &fakeEngine{
		failFor: map[string]error{"tok-A": errors.New("boom")},
		snapshots: map[string]*domain.MetricsSnapshot{
			"tok-B": {Price: 2, MarketCap: 20},
		},
	}
	o := newTestOrchestrator(tokens, engine, &fakeDetector{})

	outcomes := o.RefreshBatch(context.Background(), []string{"tok-A", "tok-B"})
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Address != "tok-A" || outcomes[0].Success || outcomes[0].Err == nil {
		t.Errorf("unexpected outcome for tok-A: %+v", outcomes[0])
	}
	if outcomes[1].Address != "tok-B" || !outcomes[1].Success || outcomes[1].Err != nil {
		t.Errorf("unexpected outcome for tok-B: %+v", outcomes[1])
	}

	tokenB, _ := tokens.GetByAddress(context.Background(), "tok-B")
	if tokenB.Price == nil || *tokenB.Price != 2 {
		t.Errorf("tok-B must be refreshed despite tok-A failing: %+v", tokenB)
	}
}

func TestRefreshBatch_CancelledContextStopsScheduling(t *testing.T) {
	tokens := memory.NewTokenStore()
	o := newTestOrchestrator(tokens, &fakeEngine{}, &fakeDetector{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := o.RefreshBatch(ctx, []string{"tok-A", "tok-B"})
	for _, oc := range outcomes {
		if oc.Success {
			t.Errorf("no token should refresh after cancellation: %+v", oc)
		}
		if !errors.Is(oc.Err, context.Canceled) {
			t.Errorf("expected context.Canceled for %s, got %v", oc.Address, oc.Err)
		}
	}
}

func TestRefreshOne_RecomputesDeveloperAggregates(t *testing.T) {
	tokens := memory.NewTokenStore()
	developers := memory.NewDeveloperStore()

	mcap := 5_000.0
	seedToken(t, tokens, &domain.Token{
		Address:        "tok-A",
		CreatorAddress: "dev-wallet",
		CreationTime:   1_699_000_000_000,
		MarketCap:      &mcap,
	})

	engine := &fakeEngine{snapshots: map[string]*domain.MetricsSnapshot{
		"tok-A": {Price: 0.01, MarketCap: 10_000},
	}}
	detector := &fakeDetector{statuses: map[string]domain.MigrationStatus{
		"tok-A": {Migrated: true},
	}}

	o := NewOrchestrator(OrchestratorOptions{
		Tokens:     tokens,
		Engine:     engine,
		Detector:   detector,
		Developers: developer.NewUpdater(tokens, developers, nil),
	})

	if err := o.RefreshOne(context.Background(), "tok-A"); err != nil {
		t.Fatalf("RefreshOne: %v", err)
	}

	dev, err := developers.GetByWallet(context.Background(), "dev-wallet")
	if err != nil {
		t.Fatalf("developer aggregates missing: %v", err)
	}
	if dev.TokensCreated != 1 {
		t.Errorf("expected 1 token created, got %d", dev.TokensCreated)
	}
	if dev.RaydiumMigratedTokens != 1 {
		t.Errorf("expected 1 migrated token, got %d", dev.RaydiumMigratedTokens)
	}
	if dev.HighestMcapValue == nil || *dev.HighestMcapValue != 10_000 {
		t.Errorf("unexpected highest mcap: %v", dev.HighestMcapValue)
	}
}
