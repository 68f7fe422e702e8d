package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/marketdata"
	"equity-anomaly-lab/internal/strategy"
)

func dailyBars(symbol string, start time.Time, closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = domain.Bar{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   open,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func alternatingCloses(n int, base, delta float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = base + delta
		} else {
			closes[i] = base - delta
		}
	}
	return closes
}

func mustStrategy(t *testing.T) *strategy.Strategy {
	t.Helper()
	s, err := strategy.FromConfig(domain.StrategyConfig{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestTrailingWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tenDays := dailyBars("TEST", start, alternatingCloses(10, 100, 1))

	if got := trailingWindow(nil, 30); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := trailingWindow(tenDays, 0); len(got) != len(tenDays) {
		t.Errorf("days=0 should keep every bar, got %d", len(got))
	}

	// Last bar is 2024-01-10; a 3-day window keeps everything from
	// 2024-01-07 on.
	got := trailingWindow(tenDays, 3)
	if len(got) != 4 {
		t.Fatalf("expected 4 bars in window, got %d", len(got))
	}
	if got[0].Date != "2024-01-07" {
		t.Errorf("window starts at %s, want 2024-01-07", got[0].Date)
	}

	bad := append([]domain.Bar(nil), tenDays...)
	bad[len(bad)-1].Date = "not-a-date"
	if got := trailingWindow(bad, 3); len(got) != len(bad) {
		t.Errorf("unparseable end date should leave the series unchanged, got %d bars", len(got))
	}
}

func TestRunUsesDefaultPeriods(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	source := marketdata.NewStaticSource(map[string][]domain.Bar{
		"TEST": dailyBars("TEST", start, alternatingCloses(40, 100, 1)),
	})
	runner := NewRunner(Options{Source: source})

	results, err := runner.Run(context.Background(), mustStrategy(t), []string{"TEST"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 default periods, got %d", len(results))
	}
	for i, name := range []string{"3m", "6m", "1y"} {
		if results[i].Period.Name != name {
			t.Errorf("period %d is %s, want %s", i, results[i].Period.Name, name)
		}
		if len(results[i].Portfolio.SymbolResults) != 1 {
			t.Errorf("period %s: expected 1 symbol result, got %d", name, len(results[i].Portfolio.SymbolResults))
		}
	}
}

func TestRunCloseAtEndRealizesOpenLots(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	closes := alternatingCloses(30, 100, 1)
	closes = append(closes, 90, 90.5, 90.2) // dip entry, then drift above the stops
	bars := dailyBars("TEST", start, closes)
	finalDate := bars[len(bars)-1].Date
	source := marketdata.NewStaticSource(map[string][]domain.Bar{"TEST": bars})
	periods := []Period{{Name: "all", Days: 365}}

	open, err := NewRunner(Options{Source: source}).Run(context.Background(), mustStrategy(t), []string{"TEST"}, periods)
	if err != nil {
		t.Fatal(err)
	}
	baseline := open[0].Portfolio.SymbolResults[0]
	if baseline.SharesRemaining <= 0 {
		t.Fatalf("expected an open position without terminal valuation, got %f shares", baseline.SharesRemaining)
	}

	closed, err := NewRunner(Options{Source: source, CloseAtEnd: true}).Run(context.Background(), mustStrategy(t), []string{"TEST"}, periods)
	if err != nil {
		t.Fatal(err)
	}
	summary := closed[0].Portfolio.SymbolResults[0]
	if summary.SharesRemaining != 0 {
		t.Errorf("expected all shares realized, got %f remaining", summary.SharesRemaining)
	}
	if summary.UnrealizedValue != 0 {
		t.Errorf("expected zero unrealized value, got %f", summary.UnrealizedValue)
	}
	if math.Abs(summary.TotalValue-summary.RealizedProceeds) > 1e-6 {
		t.Errorf("total value %f should equal realized proceeds %f", summary.TotalValue, summary.RealizedProceeds)
	}
	// Terminal valuation realizes value, it does not create or destroy it.
	if math.Abs(summary.TotalValue-baseline.TotalValue) > 1e-6 {
		t.Errorf("total value changed by terminal valuation: %f vs %f", summary.TotalValue, baseline.TotalValue)
	}

	var terminal []domain.TradeRecord
	seen := make(map[string]bool)
	for _, trade := range closed[0].Trades {
		if trade.TradeID == "" {
			t.Errorf("trade without an ID: %+v", trade)
		}
		if seen[trade.TradeID] {
			t.Errorf("duplicate trade ID %s", trade.TradeID)
		}
		seen[trade.TradeID] = true
		if trade.Reason == domain.ReasonEndOfPeriod {
			terminal = append(terminal, trade)
		}
	}
	if len(terminal) == 0 {
		t.Fatal("expected END_OF_PERIOD trades for the open lots")
	}
	for _, trade := range terminal {
		if trade.Type != domain.TradeTypeSell {
			t.Errorf("terminal trade must be a sell, got %+v", trade)
		}
		if trade.Date != finalDate {
			t.Errorf("terminal trade dated %s, want %s", trade.Date, finalDate)
		}
		if math.Abs(trade.Price-90.2) > 1e-9 {
			t.Errorf("terminal trade priced at %f, want the final close 90.2", trade.Price)
		}
	}
}

func TestRunWindowExcludesOldAnomalies(t *testing.T) {
	closes := make([]float64, 400)
	for i := range closes {
		closes[i] = 100
	}
	closes[199] = 90 // single dip, roughly 200 days before the series end
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	source := marketdata.NewStaticSource(map[string][]domain.Bar{
		"TEST": dailyBars("TEST", start, closes),
	})
	periods := []Period{{Name: "3m", Days: 91}, {Name: "1y", Days: 365}}

	results, err := NewRunner(Options{Source: source}).Run(context.Background(), mustStrategy(t), []string{"TEST"}, periods)
	if err != nil {
		t.Fatal(err)
	}
	if got := results[0].Portfolio.TotalTrades; got != 0 {
		t.Errorf("the dip is outside the 3m window, expected 0 trades, got %d", got)
	}
	if got := results[1].Portfolio.TotalTrades; got == 0 {
		t.Error("the 1y window contains the dip, expected trades")
	}
}

func TestRunSkipsWindowsWithLittleHistory(t *testing.T) {
	closes := make([]float64, 400)
	for i := range closes {
		closes[i] = 100
	}
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	source := marketdata.NewStaticSource(map[string][]domain.Bar{
		"TEST": dailyBars("TEST", start, closes),
	})

	results, err := NewRunner(Options{Source: source, CloseAtEnd: true}).Run(
		context.Background(), mustStrategy(t), []string{"TEST"}, []Period{{Name: "1w", Days: 7}})
	if err != nil {
		t.Fatal(err)
	}
	summary := results[0].Portfolio.SymbolResults[0]
	if !summary.Skipped {
		t.Error("a week of bars is below the minimum history, expected a skip")
	}
	if summary.TotalTrades != 0 || len(results[0].Trades) != 0 {
		t.Errorf("skipped symbol must not trade, got %+v", summary)
	}
}

func TestRunCancellation(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	source := marketdata.NewStaticSource(map[string][]domain.Bar{
		"TEST": dailyBars("TEST", start, alternatingCloses(40, 100, 1)),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewRunner(Options{Source: source}).Run(ctx, mustStrategy(t), []string{"TEST"}, nil); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}
