// Package main provides the long-running service:
// - Live trading sessions (scheduled): one per symbol, fired daily
// - Pipeline (scheduled): ingestion, strategy sweep, aggregate ranking
// - HTTP endpoints: /health, /status, /metrics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/live"
	"equity-anomaly-lab/internal/marketdata"
	"equity-anomaly-lab/internal/observability"
	"equity-anomaly-lab/internal/orchestrator"
	"equity-anomaly-lab/internal/storage"
	chstore "equity-anomaly-lab/internal/storage/clickhouse"
	"equity-anomaly-lab/internal/storage/memory"
	"equity-anomaly-lab/internal/storage/migrations"
	pgstore "equity-anomaly-lab/internal/storage/postgres"
	"equity-anomaly-lab/internal/strategy"
)

// Server holds all components of the long-running service.
type Server struct {
	// Configuration
	symbols          []string
	wsEndpoint       string
	sessionMinute    int
	pipelineInterval time.Duration
	csvDir           string
	space            strategy.SearchSpace
	workers          int

	// Components
	stores   *allStores
	strat    *strategy.Strategy
	executor *live.PaperExecutor
	stream   *marketdata.QuoteStream
	logger   *log.Logger

	// State
	mu              sync.Mutex
	sessions        map[string]*live.Session
	lastBarDate     map[string]string
	started         time.Time
	lastSessionRun  time.Time
	lastPipelineRun time.Time
	sessionRunning  bool
	pipelineRunning bool
	sessionRuns     int
	pipelineRuns    int
}

// allStores holds all storage implementations.
type allStores struct {
	barStore               storage.BarStore
	tradeRecordStore       storage.TradeRecordStore
	strategyAggregateStore storage.StrategyAggregateStore
}

func main() {
	loadEnvFile()

	symbols := flag.String("symbols", "", "Comma-separated symbols for live sessions (required)")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("QUOTE_WS_ENDPOINT"), "WebSocket quote stream endpoint (empty = fill at last close)")
	sessionTime := flag.String("session-time", "21:30", "Daily session fire time (HH:MM, local)")
	pipelineInterval := flag.Duration("pipeline-interval", 24*time.Hour, "Pipeline run interval")
	csvDir := flag.String("csv-dir", "", "CSV directory ingested by each pipeline run")
	spaceFile := flag.String("space-file", "", "YAML search space for pipeline runs")
	workers := flag.Int("workers", 0, "Symbol-level parallelism for pipeline runs")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for /health, /status and /metrics")

	lookback := flag.Int("lookback", 0, "Lookback window for detection stats")
	minSeverity := flag.Float64("min-severity", 0, "Minimum severity to act on a signal")
	stopLossPct := flag.Float64("stop-loss-pct", 0, "Fixed stop below entry")
	trailingStopPct := flag.Float64("trailing-stop-pct", 0, "Trailing stop below the high-water mark")
	baseSize := flag.Float64("base-size", 0, "Dollars per entry before the sizer multiplier")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	symbolList := splitSymbols(*symbols)
	if len(symbolList) == 0 {
		logger.Fatal("--symbols is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	sessionMinute, err := parseMinuteOfDay(*sessionTime)
	if err != nil {
		logger.Fatalf("invalid --session-time: %v", err)
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

	space := strategy.DefaultSearchSpace()
	if *spaceFile != "" {
		space, err = strategy.LoadSearchSpace(*spaceFile)
		if err != nil {
			logger.Fatalf("load search space: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		symbols:          symbolList,
		wsEndpoint:       *wsEndpoint,
		sessionMinute:    sessionMinute,
		pipelineInterval: *pipelineInterval,
		csvDir:           *csvDir,
		space:            space,
		workers:          *workers,
		stores:           stores,
		strat:            strat,
		executor:         live.NewPaperExecutor(),
		logger:           logger,
		sessions:         make(map[string]*live.Session),
		lastBarDate:      make(map[string]string),
		started:          time.Now(),
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	go server.startHTTPServer(*httpAddr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// Run starts the quote stream and both schedulers, then blocks until the
// context is cancelled or a component fails.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting server: %d symbols, strategy %s", len(s.symbols), s.strat.ID())

	if s.wsEndpoint != "" {
		stream, err := marketdata.NewQuoteStream(ctx, s.wsEndpoint, nil)
		if err != nil {
			return fmt.Errorf("connect quote stream: %w", err)
		}
		defer stream.Close()
		s.stream = stream

		quotes, err := stream.Subscribe(ctx, s.symbols)
		if err != nil {
			return fmt.Errorf("subscribe quotes: %w", err)
		}
		go s.executor.ConsumeQuotes(ctx, quotes)
		s.logger.Printf("Quote stream connected to %s", s.wsEndpoint)
	}

	errCh := make(chan error, 2)
	go func() {
		if err := s.runSessionScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("session scheduler: %w", err)
		}
	}()
	go func() {
		if err := s.runPipelineScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("pipeline scheduler: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runSessionScheduler polls once a minute and fires the daily session when
// the configured minute of day comes around.
func (s *Server) runSessionScheduler(ctx context.Context) error {
	s.logger.Printf("Session scheduler armed for minute %02d:%02d",
		s.sessionMinute/60, s.sessionMinute%60)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if now.Hour()*60+now.Minute() == s.sessionMinute {
				s.runSessions(ctx)
			}
		}
	}
}

// runSessions feeds the newest stored bar of every symbol into its live
// session. A session survives across fires so its ledger carries open lots
// forward; a symbol without a new bar is skipped.
func (s *Server) runSessions(ctx context.Context) {
	s.mu.Lock()
	if s.sessionRunning {
		s.mu.Unlock()
		s.logger.Println("Session already running, skipping...")
		return
	}
	s.sessionRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sessionRunning = false
		s.lastSessionRun = time.Now()
		s.sessionRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Running live sessions...")
	for _, symbol := range s.symbols {
		if ctx.Err() != nil {
			return
		}
		if err := s.runSymbolSession(ctx, symbol); err != nil {
			s.logger.Printf("%s: session error: %v", symbol, err)
		}
	}
}

func (s *Server) runSymbolSession(ctx context.Context, symbol string) error {
	stored, err := s.stores.barStore.GetBySymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if len(stored) == 0 {
		s.logger.Printf("%s: no bars, skipping", symbol)
		return nil
	}

	bars := make([]domain.Bar, len(stored))
	for i, b := range stored {
		bars[i] = *b
	}
	latest := bars[len(bars)-1]

	s.mu.Lock()
	if s.lastBarDate[symbol] == latest.Date {
		s.mu.Unlock()
		s.logger.Printf("%s: no new bar since %s, skipping", symbol, latest.Date)
		return nil
	}
	sess, ok := s.sessions[symbol]
	if !ok {
		sess = live.NewSession(live.SessionOptions{
			Symbol:    symbol,
			Strategy:  s.strat,
			Executor:  s.executor,
			Positions: s.executor,
			History:   bars[:len(bars)-1],
		})
		s.sessions[symbol] = sess
	}
	s.mu.Unlock()

	// Without a quote stream the paper executor fills at the last close.
	if s.stream == nil {
		s.executor.UpdateQuote(symbol, latest.Close)
	}

	if err := sess.OnBar(ctx, latest); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastBarDate[symbol] = latest.Date
	s.mu.Unlock()

	return s.persistTrades(ctx, sess.Trades())
}

// persistTrades writes session trades, skipping ones already stored. Trade
// IDs are deterministic, so re-inserting the full log is idempotent.
func (s *Server) persistTrades(ctx context.Context, trades []domain.TradeRecord) error {
	for i := range trades {
		err := s.stores.tradeRecordStore.Insert(ctx, &trades[i])
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("persist trade %s: %w", trades[i].TradeID, err)
		}
	}
	return nil
}

// runPipelineScheduler runs the pipeline on a fixed interval.
func (s *Server) runPipelineScheduler(ctx context.Context) error {
	s.logger.Printf("Starting pipeline scheduler (interval: %v)...", s.pipelineInterval)

	s.runPipeline(ctx)

	ticker := time.NewTicker(s.pipelineInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPipeline(ctx)
		}
	}
}

func (s *Server) runPipeline(ctx context.Context) {
	s.mu.Lock()
	if s.pipelineRunning {
		s.mu.Unlock()
		s.logger.Println("Pipeline already running, skipping...")
		return
	}
	s.pipelineRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pipelineRunning = false
		s.lastPipelineRun = time.Now()
		s.pipelineRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Running pipeline...")
	start := time.Now()

	orch := orchestrator.New(orchestrator.Options{
		BarStore:               s.stores.barStore,
		TradeRecordStore:       s.stores.tradeRecordStore,
		StrategyAggregateStore: s.stores.strategyAggregateStore,
		Space:                  s.space,
		CSVDir:                 s.csvDir,
		Workers:                s.workers,
		Verbose:                true,
	})
	result, err := orch.Run(ctx)
	if err != nil {
		s.logger.Printf("Pipeline error: %v", err)
		observability.RecordPipelineRun("orchestrator", "error", time.Since(start).Seconds())
		return
	}

	s.logger.Printf("Pipeline completed in %v: %d symbols, %d strategies, %d trades",
		time.Since(start), result.SymbolsProcessed, result.StrategiesRun, result.TradesCreated)
	observability.RecordPipelineRun("orchestrator", "success", time.Since(start).Seconds())
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	Symbols         []string  `json:"symbols"`
	StrategyID      string    `json:"strategy_id"`
	LastSessionRun  time.Time `json:"last_session_run,omitempty"`
	LastPipelineRun time.Time `json:"last_pipeline_run,omitempty"`
	SessionRuns     int       `json:"session_runs"`
	PipelineRuns    int       `json:"pipeline_runs"`
	SessionRunning  bool      `json:"session_running"`
	PipelineRunning bool      `json:"pipeline_running"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).String(),
		Symbols:         s.symbols,
		StrategyID:      s.strat.ID(),
		LastSessionRun:  s.lastSessionRun,
		LastPipelineRun: s.lastPipelineRun,
		SessionRuns:     s.sessionRuns,
		PipelineRuns:    s.pipelineRuns,
		SessionRunning:  s.sessionRunning,
		PipelineRunning: s.pipelineRunning,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// createStores creates all required stores.
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

func splitSymbols(value string) []string {
	var out []string
	for _, s := range strings.Split(value, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseMinuteOfDay parses HH:MM into minutes since midnight.
func parseMinuteOfDay(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", value)
	}
	return t.Hour()*60 + t.Minute(), nil
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
