// Package live turns detector signals into broker orders for one symbol.
// Unlike the backtest engine, the ledger only changes after an order has
// actually filled: a failed order leaves state exactly as it was.
package live

import (
	"context"
	"fmt"
	"log"

	"equity-anomaly-lab/internal/anomaly"
	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/idhash"
	"equity-anomaly-lab/internal/ledger"
	"equity-anomaly-lab/internal/sizing"
	"equity-anomaly-lab/internal/strategy"
)

// Session trades one symbol live. Bars arrive through OnBar as each trading
// day completes; orders go out through the executor.
type Session struct {
	symbol   string
	strat    *strategy.Strategy
	detector *anomaly.Detector
	table    *sizing.Table
	sizer    *sizing.Sizer
	book     *ledger.Ledger

	executor  OrderExecutor
	positions PositionQuery

	history []domain.Bar
	trades  []domain.TradeRecord
	seq     int
}

// SessionOptions contains configuration for creating a Session.
type SessionOptions struct {
	Symbol    string
	Strategy  *strategy.Strategy
	Executor  OrderExecutor
	Positions PositionQuery

	// History seeds the bar series, most recent last. Lets a session start
	// mid-stream with enough lookback to evaluate immediately.
	History []domain.Bar
}

// NewSession creates a live trading session for one symbol.
func NewSession(opts SessionOptions) *Session {
	cfg := opts.Strategy.Config()
	table := sizing.NewTable()
	return &Session{
		symbol:    opts.Symbol,
		strat:     opts.Strategy,
		detector:  anomaly.NewDetector(cfg.LookbackPeriod),
		table:     table,
		sizer:     sizing.NewSizer(table),
		book:      ledger.New(opts.Symbol, cfg.StopLossPct, cfg.TrailingStopPct),
		executor:  opts.Executor,
		positions: opts.Positions,
		history:   append([]domain.Bar(nil), opts.History...),
	}
}

// Trades returns all trades the session has executed so far.
func (s *Session) Trades() []domain.TradeRecord {
	return append([]domain.TradeRecord(nil), s.trades...)
}

// OpenShares returns the shares currently held in the session ledger.
func (s *Session) OpenShares() float64 {
	return s.book.TotalShares()
}

// OnBar ingests one completed daily bar and acts on it. Order failures are
// returned to the caller and never retried; the ledger keeps its prior
// state so the next bar sees a consistent book.
func (s *Session) OnBar(ctx context.Context, bar domain.Bar) error {
	cfg := s.strat.Config()
	s.history = append(s.history, bar)
	price := bar.Close

	// 1. Risk exits run before any new signal is considered.
	s.book.Mark(price)
	if err := s.executeExits(ctx, bar); err != nil {
		return err
	}

	if len(s.history) < cfg.MinBarsRequired {
		return nil
	}

	// 2. Detector verdict for this bar.
	signal := s.detector.Evaluate(s.history, len(s.history)-1)
	if !signal.IsAnomaly || signal.Severity < cfg.MinSeverity {
		return nil
	}

	// 3a. Buy-side entry, skipped while any position is open.
	if signal.Direction == domain.DirectionBuy || signal.Direction == domain.DirectionMixed {
		if err := s.executeBuy(ctx, bar); err != nil {
			return err
		}
	}

	// 3b. A strong overbought signal liquidates the whole position.
	if (signal.Direction == domain.DirectionSell || signal.Direction == domain.DirectionMixed) &&
		s.book.OpenCount() > 0 && signal.Severity >= cfg.StrongSellSeverity {
		if err := s.executeSellAll(ctx, bar); err != nil {
			return err
		}
	}

	return nil
}

// executeExits checks which lots the bar's close would stop out, places a
// single sell for them and closes exactly those lots at the fill price. The
// exit set is fixed at the close; a fill back above the stop levels must not
// leave the sold lots open in the book.
func (s *Session) executeExits(ctx context.Context, bar domain.Bar) error {
	price := bar.Close

	var exits []*domain.Lot
	var reasons []string
	var exitShares float64
	for _, lot := range s.book.Lots() {
		reason := ""
		switch {
		case price <= lot.StopLossPrice:
			reason = domain.ReasonStopLoss
		case price <= lot.TrailingStopPrice:
			reason = domain.ReasonTrailingStop
		}
		if reason == "" {
			continue
		}
		exits = append(exits, lot)
		reasons = append(reasons, reason)
		exitShares += lot.Shares
	}
	if exitShares <= 0 {
		return nil
	}

	fill, err := s.executor.PlaceOrder(ctx, OrderRequest{
		ClientOrderID: s.nextOrderID(bar.Date),
		Symbol:        s.symbol,
		Side:          domain.TradeTypeSell,
		Shares:        exitShares,
	})
	if err != nil {
		return fmt.Errorf("exit order for %s: %w", s.symbol, err)
	}

	for i, lot := range exits {
		c := s.book.Close(lot, fill.Price, reasons[i])
		s.recordClose(c, bar.Date)
		log.Printf("live: %s %s: %s exit %.4f shares at %.2f", s.symbol, bar.Date, c.Reason, c.Shares, fill.Price)
	}
	return nil
}

// executeBuy opens a sized lot, unless the broker or the ledger already
// holds the symbol.
func (s *Session) executeBuy(ctx context.Context, bar domain.Bar) error {
	if s.book.OpenCount() > 0 {
		return nil
	}
	held, err := s.positions.OpenPosition(ctx, s.symbol)
	if err != nil {
		return fmt.Errorf("query position for %s: %w", s.symbol, err)
	}
	if held > domain.LotCloseEpsilon {
		return nil
	}

	cfg := s.strat.Config()
	size := s.sizer.Size(s.symbol, cfg.BasePositionSize)
	shares := size / bar.Close

	fill, err := s.executor.PlaceOrder(ctx, OrderRequest{
		ClientOrderID: s.nextOrderID(bar.Date),
		Symbol:        s.symbol,
		Side:          domain.TradeTypeBuy,
		Shares:        shares,
	})
	if err != nil {
		return fmt.Errorf("buy order for %s: %w", s.symbol, err)
	}

	// The lot reflects what actually filled, not what was requested.
	s.book.Open(fill.Shares, fill.Price, bar.Date)
	s.logTrade(domain.TradeRecord{
		Symbol:     s.symbol,
		StrategyID: s.strat.ID(),
		Date:       bar.Date,
		Type:       domain.TradeTypeBuy,
		Price:      fill.Price,
		Shares:     fill.Shares,
		Reason:     domain.ReasonSignal,
	})
	log.Printf("live: %s %s: BUY %.4f shares at %.2f", s.symbol, bar.Date, fill.Shares, fill.Price)
	return nil
}

// executeSellAll liquidates every open lot at the fill price.
func (s *Session) executeSellAll(ctx context.Context, bar domain.Bar) error {
	shares := s.book.TotalShares()
	if shares <= 0 {
		return nil
	}

	fill, err := s.executor.PlaceOrder(ctx, OrderRequest{
		ClientOrderID: s.nextOrderID(bar.Date),
		Symbol:        s.symbol,
		Side:          domain.TradeTypeSell,
		Shares:        shares,
	})
	if err != nil {
		return fmt.Errorf("sell order for %s: %w", s.symbol, err)
	}

	for _, c := range s.book.CloseAll(fill.Price, domain.ReasonSignal) {
		s.recordClose(c, bar.Date)
	}
	log.Printf("live: %s %s: SELL all %.4f shares at %.2f", s.symbol, bar.Date, fill.Shares, fill.Price)
	return nil
}

func (s *Session) recordClose(c ledger.Closure, date string) {
	s.table.Record(s.symbol, c.Win())
	s.logTrade(domain.TradeRecord{
		Symbol:         s.symbol,
		StrategyID:     s.strat.ID(),
		Date:           date,
		Type:           domain.TradeTypeSell,
		Price:          c.Price,
		Shares:         c.Shares,
		Reason:         c.Reason,
		RealizedProfit: c.Realized,
	})
}

func (s *Session) logTrade(rec domain.TradeRecord) {
	rec.TradeID = idhash.ComputeTradeID(s.symbol, s.strat.ID(), rec.Date, s.seq)
	s.seq++
	s.trades = append(s.trades, rec)
}

func (s *Session) nextOrderID(date string) string {
	return fmt.Sprintf("%s-%s-%d", s.symbol, date, s.seq)
}
