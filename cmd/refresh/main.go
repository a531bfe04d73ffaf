// Command refresh runs a one-shot metrics refresh against stored tokens
// and prints the per-token outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"solana-pump-tracker/internal/bitquery"
	"solana-pump-tracker/internal/config"
	"solana-pump-tracker/internal/developer"
	"solana-pump-tracker/internal/metrics"
	"solana-pump-tracker/internal/refresh"
	"solana-pump-tracker/internal/storage/migrations"
	pgstore "solana-pump-tracker/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	bitqueryToken := flag.String("bitquery-token", "", "Bitquery API token (overrides config)")
	addresses := flag.String("address", "", "Comma-separated token addresses to refresh")
	all := flag.Bool("all", false, "Refresh every stored token")
	limit := flag.Int("limit", 0, "Cap on tokens refreshed with --all (0 = no cap)")

	flag.Parse()

	logger := log.New(os.Stderr, "[refresh] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *postgresDSN != "" {
		cfg.Postgres.DSN = *postgresDSN
	}
	if *bitqueryToken != "" {
		cfg.Bitquery.Token = *bitqueryToken
	}

	if cfg.Bitquery.Token == "" {
		logger.Fatal("bitquery token is required (config, --bitquery-token, or BITQUERY_TOKEN)")
	}
	if cfg.Postgres.DSN == "" {
		logger.Fatal("postgres DSN is required")
	}
	if !*all && *addresses == "" {
		logger.Fatal("nothing to do: pass --address or --all")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Postgres migrations: %v", err)
	}

	tokenStore := pgstore.NewTokenStore(pool)
	developerStore := pgstore.NewDeveloperStore(pool)

	gateway := bitquery.NewClient(cfg.Bitquery.URL, cfg.Bitquery.Token,
		bitquery.WithTimeout(cfg.Bitquery.Timeout.Std()))

	orchestrator := refresh.NewOrchestrator(refresh.OrchestratorOptions{
		Tokens:      tokenStore,
		Engine:      metrics.NewEngine(metrics.EngineOptions{Gateway: gateway, Logger: logger}),
		Detector:    metrics.NewDetector(gateway, logger),
		Developers:  developer.NewUpdater(tokenStore, developerStore, logger),
		Concurrency: cfg.Refresh.Concurrency,
		Logger:      logger,
	})

	var outcomes []refresh.Outcome
	if *all {
		outcomes, err = orchestrator.RefreshAll(ctx, *limit)
		if err != nil {
			logger.Fatalf("Refresh all: %v", err)
		}
	} else {
		var list []string
		for _, a := range strings.Split(*addresses, ",") {
			if a = strings.TrimSpace(a); a != "" {
				list = append(list, a)
			}
		}
		outcomes = orchestrator.RefreshBatch(ctx, list)
	}

	failed := 0
	for _, o := range outcomes {
		if o.Success {
			fmt.Printf("%s ok\n", o.Address)
		} else {
			failed++
			fmt.Printf("%s failed: %v\n", o.Address, o.Err)
		}
	}
	fmt.Printf("refreshed %d tokens, %d failed\n", len(outcomes), failed)

	if failed > 0 {
		os.Exit(1)
	}
}
