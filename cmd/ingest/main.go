// Package main loads daily bar CSV files into the bar store.
// Files are named SYMBOL.csv with a date,open,high,low,close,volume header;
// rows are validated and de-duplicated before insert.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"equity-anomaly-lab/internal/marketdata"
	"equity-anomaly-lab/internal/observability"
	"equity-anomaly-lab/internal/storage"
	chstore "equity-anomaly-lab/internal/storage/clickhouse"
	"equity-anomaly-lab/internal/storage/memory"
	"equity-anomaly-lab/internal/storage/migrations"
)

func main() {
	loadEnvFile()

	csvDir := flag.String("csv-dir", "", "Directory of SYMBOL.csv bar files (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	if *csvDir == "" {
		logger.Fatal("--csv-dir is required")
	}
	if !*useMemory && *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required (use --use-memory for in-memory storage)")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
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

	var barStore storage.BarStore = memory.NewBarStore()
	if !*useMemory {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("clickhouse migrations: %v", err)
		}
		defer conn.Close()
		barStore = chstore.NewBarStore(conn)
	}

	series, err := marketdata.LoadBarsDir(*csvDir)
	if err != nil {
		logger.Fatalf("load %s: %v", *csvDir, err)
	}

	symbols := make([]string, 0, len(series))
	for symbol := range series {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var ingested, skipped int
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			logger.Fatalf("cancelled: %v", err)
		}
		bars := series[symbol]
		err := barStore.InsertBulk(ctx, bars)
		switch {
		case err == nil:
			ingested += len(bars)
			observability.RecordBarsIngested(symbol, len(bars))
			logger.Printf("%s: %d bars", symbol, len(bars))
		case errors.Is(err, storage.ErrDuplicateKey):
			skipped++
			logger.Printf("%s: already ingested, skipping", symbol)
		default:
			observability.RecordIngestionError("insert")
			logger.Fatalf("%s: insert bars: %v", symbol, err)
		}
	}

	logger.Printf("Done: %d bars across %d symbols (%d symbols already present)",
		ingested, len(symbols)-skipped, skipped)
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
