package live

import (
	"context"
	"errors"
	"testing"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/marketdata"
)

func TestPaperExecutorFillsAtQuote(t *testing.T) {
	exec := NewPaperExecutor()
	exec.UpdateQuote("AAPL", 187.5)

	fill, err := exec.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "AAPL",
		Side:   domain.TradeTypeBuy,
		Shares: 10,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if fill.Price != 187.5 {
		t.Errorf("fill price = %v, want 187.5", fill.Price)
	}
	if fill.Shares != 10 {
		t.Errorf("fill shares = %v, want 10", fill.Shares)
	}
	if fill.OrderID == "" {
		t.Error("expected order ID assigned")
	}

	held, err := exec.OpenPosition(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}
	if held != 10 {
		t.Errorf("position = %v, want 10", held)
	}
}

func TestPaperExecutorNoQuote(t *testing.T) {
	exec := NewPaperExecutor()

	_, err := exec.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "AAPL",
		Side:   domain.TradeTypeBuy,
		Shares: 10,
	})
	if !errors.Is(err, ErrNoQuote) {
		t.Errorf("expected ErrNoQuote, got %v", err)
	}
}

func TestPaperExecutorSellBounds(t *testing.T) {
	exec := NewPaperExecutor()
	exec.UpdateQuote("AAPL", 100)

	if _, err := exec.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Side: domain.TradeTypeBuy, Shares: 5,
	}); err != nil {
		t.Fatalf("buy: %v", err)
	}

	// Selling more than held fails and leaves the position untouched.
	_, err := exec.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Side: domain.TradeTypeSell, Shares: 6,
	})
	if !errors.Is(err, ErrExecutionFailed) {
		t.Errorf("expected ErrExecutionFailed, got %v", err)
	}
	held, _ := exec.OpenPosition(context.Background(), "AAPL")
	if held != 5 {
		t.Errorf("position after failed sell = %v, want 5", held)
	}

	if _, err := exec.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Side: domain.TradeTypeSell, Shares: 5,
	}); err != nil {
		t.Fatalf("sell: %v", err)
	}
	held, _ = exec.OpenPosition(context.Background(), "AAPL")
	if held != 0 {
		t.Errorf("position after full sell = %v, want 0", held)
	}
}

func TestPaperExecutorRejectsBadOrders(t *testing.T) {
	exec := NewPaperExecutor()
	exec.UpdateQuote("AAPL", 100)

	if _, err := exec.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Side: domain.TradeTypeBuy, Shares: 0,
	}); !errors.Is(err, ErrExecutionFailed) {
		t.Errorf("expected ErrExecutionFailed for zero shares, got %v", err)
	}

	if _, err := exec.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Side: "HOLD", Shares: 1,
	}); !errors.Is(err, ErrExecutionFailed) {
		t.Errorf("expected ErrExecutionFailed for unknown side, got %v", err)
	}
}

func TestPaperExecutorConsumeQuotes(t *testing.T) {
	exec := NewPaperExecutor()

	ch := make(chan marketdata.Quote, 2)
	ch <- marketdata.Quote{Symbol: "AAPL", Price: 101}
	ch <- marketdata.Quote{Symbol: "AAPL", Price: 102}
	close(ch)

	exec.ConsumeQuotes(context.Background(), ch)

	fill, err := exec.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "AAPL", Side: domain.TradeTypeBuy, Shares: 1,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if fill.Price != 102 {
		t.Errorf("fill price = %v, want latest quote 102", fill.Price)
	}
}
