// Package main renders the strategy comparison report from persisted
// aggregates and trade records.
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

	"equity-anomaly-lab/internal/reporting"
	chstore "equity-anomaly-lab/internal/storage/clickhouse"
	pgstore "equity-anomaly-lab/internal/storage/postgres"
)

func main() {
	loadEnvFile()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	outputDir := flag.String("output-dir", "", "Write REPORT.md and strategy_aggregates.csv here (empty = stdout)")

	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" || *clickhouseDSN == "" {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	gen := reporting.NewGenerator(
		chstore.NewBarStore(conn),
		pgstore.NewTradeRecordStore(pool),
		pgstore.NewStrategyAggregateStore(pool),
	)
	report, err := gen.Generate(ctx)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}

	if *outputDir == "" {
		fmt.Print(reporting.RenderMarkdown(report))
		return
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Fatalf("create output directory: %v", err)
	}
	md := filepath.Join(*outputDir, "REPORT.md")
	if err := os.WriteFile(md, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		logger.Fatalf("write %s: %v", md, err)
	}
	csv := filepath.Join(*outputDir, "strategy_aggregates.csv")
	if err := os.WriteFile(csv, []byte(reporting.RenderCSV(report.StrategyRows)), 0644); err != nil {
		logger.Fatalf("write %s: %v", csv, err)
	}
	logger.Printf("Reports written to %s/", *outputDir)
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
