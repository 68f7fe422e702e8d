// Package main runs the full pipeline: CSV ingestion, strategy-grid sweep
// over the symbol universe, aggregate ranking and report rendering.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"equity-anomaly-lab/internal/orchestrator"
	"equity-anomaly-lab/internal/reporting"
	"equity-anomaly-lab/internal/storage"
	chstore "equity-anomaly-lab/internal/storage/clickhouse"
	"equity-anomaly-lab/internal/storage/memory"
	"equity-anomaly-lab/internal/storage/migrations"
	pgstore "equity-anomaly-lab/internal/storage/postgres"
	"equity-anomaly-lab/internal/strategy"
)

func main() {
	loadEnvFile()

	csvDir := flag.String("csv-dir", "", "Directory of SYMBOL.csv bar files to ingest first")
	outputDir := flag.String("output-dir", "output", "Output directory for generated reports")
	spaceFile := flag.String("space-file", "", "YAML search space (defaults to the built-in grid)")
	workers := flag.Int("workers", 0, "Symbol-level parallelism (0 = NumCPU)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	useFixtures := flag.Bool("fixtures", false, "Seed bundled fixture bars (memory mode only)")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	logger := log.New(os.Stdout, "[pipeline] ", log.LstdFlags)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling pipeline...", sig)
		cancel()
	}()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	if *useFixtures {
		if !*useMemory {
			logger.Fatal("--fixtures requires --use-memory")
		}
		if err := orchestrator.LoadFixtures(ctx, stores.barStore); err != nil {
			logger.Fatalf("load fixtures: %v", err)
		}
		logger.Println("Seeded fixture bars")
	}

	space := strategy.DefaultSearchSpace()
	if *spaceFile != "" {
		space, err = strategy.LoadSearchSpace(*spaceFile)
		if err != nil {
			logger.Fatalf("load search space: %v", err)
		}
	}

	orch := orchestrator.New(orchestrator.Options{
		BarStore:               stores.barStore,
		TradeRecordStore:       stores.tradeRecordStore,
		StrategyAggregateStore: stores.strategyAggregateStore,
		Space:                  space,
		CSVDir:                 *csvDir,
		Workers:                *workers,
		Verbose:                *verbose,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		logger.Fatalf("pipeline: %v", err)
	}

	logger.Println("Pipeline completed:")
	logger.Printf("  Bars ingested: %d", result.BarsIngested)
	logger.Printf("  Symbols: %d", result.SymbolsProcessed)
	logger.Printf("  Strategies swept: %d", result.StrategiesRun)
	logger.Printf("  Trades persisted: %d", result.TradesCreated)
	logger.Printf("  Strategies ranked: %d", result.StrategiesRanked)
	if len(result.Errors) > 0 {
		logger.Printf("  Errors: %d", len(result.Errors))
		for _, e := range result.Errors {
			logger.Printf("    - %s", e)
		}
	}

	if err := writeReports(ctx, stores, *outputDir); err != nil {
		logger.Fatalf("write reports: %v", err)
	}
	logger.Printf("Reports written to %s/", *outputDir)
	logger.Printf("  - %s/REPORT.md", *outputDir)
	logger.Printf("  - %s/strategy_aggregates.csv", *outputDir)
}

// allStores holds the three stores the pipeline needs.
type allStores struct {
	barStore               storage.BarStore
	tradeRecordStore       storage.TradeRecordStore
	strategyAggregateStore storage.StrategyAggregateStore
}

// createStores connects to Postgres and ClickHouse, running migrations on
// both, or falls back to memory stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			barStore:               memory.NewBarStore(),
			tradeRecordStore:       memory.NewTradeRecordStore(),
			strategyAggregateStore: memory.NewStrategyAggregateStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		barStore:               chstore.NewBarStore(conn),
		tradeRecordStore:       pgstore.NewTradeRecordStore(pool),
		strategyAggregateStore: pgstore.NewStrategyAggregateStore(pool),
	}
	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// writeReports renders the comparison report from the persisted aggregates.
func writeReports(ctx context.Context, stores *allStores, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	gen := reporting.NewGenerator(stores.barStore, stores.tradeRecordStore, stores.strategyAggregateStore)
	report, err := gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	md := filepath.Join(outputDir, "REPORT.md")
	if err := os.WriteFile(md, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		return err
	}
	csv := filepath.Join(outputDir, "strategy_aggregates.csv")
	return os.WriteFile(csv, []byte(reporting.RenderCSV(report.StrategyRows)), 0644)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if os.Getenv(key) == "" {
			os.Setenv(key, strings.TrimSpace(parts[1]))
		}
	}
}
