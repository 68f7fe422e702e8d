// Package main re-runs one symbol under one strategy with a verbose trade
// log, for debugging a backtest bar by bar.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/marketdata"
	"equity-anomaly-lab/internal/replay"
	"equity-anomaly-lab/internal/storage"
	chstore "equity-anomaly-lab/internal/storage/clickhouse"
	"equity-anomaly-lab/internal/storage/memory"
	"equity-anomaly-lab/internal/strategy"
)

func main() {
	loadEnvFile()

	symbol := flag.String("symbol", "", "Symbol to replay (required)")
	from := flag.String("from", "", "Start date (inclusive, YYYY-MM-DD)")
	to := flag.String("to", "", "End date (inclusive, YYYY-MM-DD)")

	lookback := flag.Int("lookback", 0, "Lookback window for detection stats")
	minSeverity := flag.Float64("min-severity", 0, "Minimum severity to act on a signal")
	stopLossPct := flag.Float64("stop-loss-pct", 0, "Fixed stop below entry")
	trailingStopPct := flag.Float64("trailing-stop-pct", 0, "Trailing stop below the high-water mark")
	baseSize := flag.Float64("base-size", 0, "Dollars per entry before the sizer multiplier")

	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	csvDir := flag.String("csv-dir", "", "Load bars from CSV files instead of ClickHouse")

	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	if *csvDir == "" && *clickhouseDSN == "" {
		logger.Fatal("either --csv-dir or --clickhouse-dsn is required")
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

	var barStore storage.BarStore
	if *csvDir != "" {
		store := memory.NewBarStore()
		series, err := marketdata.LoadBarsDir(*csvDir)
		if err != nil {
			logger.Fatalf("load %s: %v", *csvDir, err)
		}
		for _, bars := range series {
			if err := store.InsertBulk(ctx, bars); err != nil {
				logger.Fatalf("seed bars: %v", err)
			}
		}
		barStore = store
	} else {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()
		barStore = chstore.NewBarStore(conn)
	}

	strat, err := strategy.FromConfig(domain.StrategyConfig{
		LookbackPeriod:   *lookback,
		MinSeverity:      *minSeverity,
		StopLossPct:      *stopLossPct,
		TrailingStopPct:  *trailingStopPct,
		BasePositionSize: *baseSize,
	})
	if err != nil {
		logger.Fatalf("invalid strategy: %v", err)
	}

	runner := replay.NewRunner(replay.Options{
		Source: marketdata.NewStoreSource(barStore),
		Out:    os.Stdout,
	})
	if _, err := runner.Run(ctx, strat, strings.ToUpper(*symbol), *from, *to); err != nil {
		logger.Fatalf("replay: %v", err)
	}
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
