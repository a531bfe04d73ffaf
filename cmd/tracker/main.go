package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"solana-pump-tracker/internal/bitquery"
	"solana-pump-tracker/internal/config"
	"solana-pump-tracker/internal/developer"
	"solana-pump-tracker/internal/ingestion"
	"solana-pump-tracker/internal/metrics"
	"solana-pump-tracker/internal/observability"
	"solana-pump-tracker/internal/refresh"
	"solana-pump-tracker/internal/storage"
	chstore "solana-pump-tracker/internal/storage/clickhouse"
	"solana-pump-tracker/internal/storage/memory"
	"solana-pump-tracker/internal/storage/migrations"
	pgstore "solana-pump-tracker/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	bitqueryToken := flag.String("bitquery-token", "", "Bitquery API token (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config, empty keeps config value)")

	flag.Parse()

	logger := log.New(os.Stdout, "[tracker] ", log.LstdFlags|log.Lshortfile)

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
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	obs := observability.NewMetrics(cfg.Metrics.Namespace)

	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(cfg.App.ShutdownTimeout.Std()):
			logger.Printf("Graceful shutdown timed out after %v, forcing exit", cfg.App.ShutdownTimeout)
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, logger, cfg, obs, *useMemory)

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}
	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config, obs *observability.Metrics, useMemory bool) error {
	if cfg.Bitquery.Token == "" {
		return fmt.Errorf("bitquery token is required (config, --bitquery-token, or BITQUERY_TOKEN)")
	}
	if !useMemory && cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres DSN is required (use --use-memory for in-memory storage)")
	}

	var tokenStore storage.TokenStore = memory.NewTokenStore()
	var developerStore storage.DeveloperStore = memory.NewDeveloperStore()
	var transferStore storage.TransferStore = memory.NewTransferStore()

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}

		tokenStore = pgstore.NewTokenStore(pool)
		developerStore = pgstore.NewDeveloperStore(pool)
		transferStore = pgstore.NewTransferStore(pool)
	}

	var archive storage.TransferArchive
	if cfg.ClickHouse.Enabled {
		conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		archive = chstore.NewTransferArchive(conn)
	}

	gateway := bitquery.NewClient(cfg.Bitquery.URL, cfg.Bitquery.Token,
		bitquery.WithTimeout(cfg.Bitquery.Timeout.Std()))

	engine := metrics.NewEngine(metrics.EngineOptions{
		Gateway: gateway,
		Logger:  logger,
		Metrics: obs,
	})
	detector := metrics.NewDetector(gateway, logger)
	devUpdater := developer.NewUpdater(tokenStore, developerStore, logger)

	consumer := bitquery.NewStreamConsumer(bitquery.StreamOptions{
		Endpoint: cfg.Bitquery.URL,
		Token:    cfg.Bitquery.Token,
		Config: &bitquery.StreamConfig{
			InitialBackoff:   cfg.Stream.InitialBackoff.Std(),
			MaxBackoff:       cfg.Stream.MaxBackoff.Std(),
			HandshakeTimeout: cfg.Stream.HandshakeTimeout.Std(),
			EventBuffer:      cfg.Stream.EventBuffer,
		},
		Logger:  logger,
		Metrics: obs,
	})

	pipeline := ingestion.NewPipeline(ingestion.PipelineOptions{
		Tokens:           tokenStore,
		Transfers:        transferStore,
		Developers:       devUpdater,
		Archive:          archive,
		ArchiveBatchSize: cfg.ClickHouse.ArchiveBatch,
		Logger:           logger,
		Metrics:          obs,
	})

	orchestrator := refresh.NewOrchestrator(refresh.OrchestratorOptions{
		Tokens:      tokenStore,
		Engine:      engine,
		Detector:    detector,
		Developers:  devUpdater,
		Concurrency: cfg.Refresh.Concurrency,
		Logger:      logger,
		Metrics:     obs,
	})

	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.Refresh.CronSpec, func() {
		outcomes, err := orchestrator.RefreshAll(ctx, cfg.Refresh.Limit)
		if err != nil {
			logger.Printf("Scheduled refresh: %v", err)
			return
		}
		failed := 0
		for _, o := range outcomes {
			if !o.Success {
				failed++
			}
		}
		logger.Printf("Scheduled refresh: %d tokens, %d failed", len(outcomes), failed)
	})
	if err != nil {
		return fmt.Errorf("schedule refresh %q: %w", cfg.Refresh.CronSpec, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	streamDone := make(chan error, 1)
	go func() {
		streamDone <- consumer.Run(ctx)
	}()

	logger.Println("Starting ingestion...")
	if err := pipeline.RunLoop(ctx, consumer); err != nil && err != context.Canceled {
		return err
	}
	return <-streamDone
}
