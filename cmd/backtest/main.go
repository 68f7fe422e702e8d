// Package main backtests one strategy over the symbol universe across
// several trailing windows (3m/6m/1y by default).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"equity-anomaly-lab/internal/backtest"
	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/marketdata"
	"equity-anomaly-lab/internal/reporting"
	"equity-anomaly-lab/internal/storage"
	chstore "equity-anomaly-lab/internal/storage/clickhouse"
	"equity-anomaly-lab/internal/storage/memory"
	"equity-anomaly-lab/internal/strategy"
)

func main() {
	loadEnvFile()

	symbols := flag.String("symbols", "", "Comma-separated symbols (empty = every symbol in the store)")
	periods := flag.String("periods", "", "Comma-separated windows from 3m,6m,1y (empty = all)")
	closeAtEnd := flag.Bool("close-at-end", false, "Sell open lots at each window's final close")

	// Strategy parameters; zero values fall back to the defaults.
	lookback := flag.Int("lookback", 0, "Lookback window for detection stats")
	minSeverity := flag.Float64("min-severity", 0, "Minimum severity to act on a signal")
	stopLossPct := flag.Float64("stop-loss-pct", 0, "Fixed stop below entry")
	trailingStopPct := flag.Float64("trailing-stop-pct", 0, "Trailing stop below the high-water mark")
	baseSize := flag.Float64("base-size", 0, "Dollars per entry before the sizer multiplier")

	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	csvDir := flag.String("csv-dir", "", "Load bars from CSV files instead of ClickHouse")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	outputDir := flag.String("output-dir", "", "Write per-period CSV files here instead of printing markdown")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

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

	barStore, cleanup, err := openBarStore(ctx, *csvDir, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("open bar store: %v", err)
	}
	defer cleanup()

	universe, err := resolveSymbols(ctx, barStore, *symbols)
	if err != nil {
		logger.Fatalf("resolve symbols: %v", err)
	}
	if len(universe) == 0 {
		logger.Fatal("no symbols to backtest")
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
	logger.Printf("Backtesting %s over %d symbols", strat.ID(), len(universe))

	runner := backtest.NewRunner(backtest.Options{
		Source:     marketdata.NewStoreSource(barStore),
		CloseAtEnd: *closeAtEnd,
	})
	results, err := runner.Run(ctx, strat, universe, resolvePeriods(logger, *periods))
	if err != nil {
		logger.Fatalf("backtest: %v", err)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			logger.Fatalf("encode results: %v", err)
		}
		return
	}

	if *outputDir != "" {
		if err := writeCSVFiles(*outputDir, results); err != nil {
			logger.Fatalf("write csv files: %v", err)
		}
		logger.Printf("Wrote %d period files to %s", len(results), *outputDir)
		return
	}

	for _, pr := range results {
		p := pr.Portfolio
		fmt.Printf("== %s (%d days) ==\n", pr.Period.Name, pr.Period.Days)
		fmt.Printf("trades %d, invested %.2f, value %.2f, return %.2f%%\n",
			p.TotalTrades, p.TotalInvested, p.TotalValue, p.OverallReturnPct)
		fmt.Print(reporting.RenderSymbolMarkdown(reporting.SymbolRows(&p)))
		fmt.Println()
	}
}

// writeCSVFiles writes one per-symbol CSV per backtested period.
func writeCSVFiles(dir string, results []backtest.PeriodResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i := range results {
		pr := &results[i]
		path := filepath.Join(dir, fmt.Sprintf("backtest_%s.csv", pr.Period.Name))
		csv := reporting.RenderSymbolCSV(reporting.SymbolRows(&pr.Portfolio))
		if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// openBarStore reads bars from a CSV directory into a memory store, or
// connects to ClickHouse.
func openBarStore(ctx context.Context, csvDir, clickhouseDSN string) (storage.BarStore, func(), error) {
	if csvDir != "" {
		store := memory.NewBarStore()
		series, err := marketdata.LoadBarsDir(csvDir)
		if err != nil {
			return nil, nil, err
		}
		for _, bars := range series {
			if err := store.InsertBulk(ctx, bars); err != nil {
				return nil, nil, err
			}
		}
		return store, func() {}, nil
	}

	conn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	return chstore.NewBarStore(conn), func() { conn.Close() }, nil
}

func resolveSymbols(ctx context.Context, store storage.BarStore, flagValue string) ([]string, error) {
	if flagValue == "" {
		return store.Symbols(ctx)
	}
	var out []string
	for _, s := range strings.Split(flagValue, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func resolvePeriods(logger *log.Logger, flagValue string) []backtest.Period {
	if flagValue == "" {
		return nil
	}
	byName := make(map[string]backtest.Period)
	for _, p := range backtest.DefaultPeriods() {
		byName[p.Name] = p
	}
	var out []backtest.Period
	for _, name := range strings.Split(flagValue, ",") {
		name = strings.TrimSpace(name)
		p, ok := byName[name]
		if !ok {
			logger.Fatalf("unknown period %q (available: 3m, 6m, 1y)", name)
		}
		out = append(out, p)
	}
	return out
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
