package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/marketdata"
)

// PaperExecutor simulates a broker. Orders fill in full at the latest quote
// seen for the symbol, and positions are tracked in memory.
type PaperExecutor struct {
	mu        sync.Mutex
	quotes    map[string]float64
	positions map[string]float64
}

// NewPaperExecutor creates an empty paper broker.
func NewPaperExecutor() *PaperExecutor {
	return &PaperExecutor{
		quotes:    make(map[string]float64),
		positions: make(map[string]float64),
	}
}

var (
	_ OrderExecutor = (*PaperExecutor)(nil)
	_ PositionQuery = (*PaperExecutor)(nil)
)

// UpdateQuote records the latest price for a symbol. Typically fed from a
// marketdata quote stream.
func (p *PaperExecutor) UpdateQuote(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[symbol] = price
}

// ConsumeQuotes feeds the executor from a quote channel until the channel
// closes or the context is cancelled.
func (p *PaperExecutor) ConsumeQuotes(ctx context.Context, ch <-chan marketdata.Quote) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-ch:
			if !ok {
				return
			}
			p.UpdateQuote(q.Symbol, q.Price)
		}
	}
}

// PlaceOrder fills the order at the latest quote. Sells that exceed the
// held position fail without partial execution.
func (p *PaperExecutor) PlaceOrder(_ context.Context, req OrderRequest) (*Fill, error) {
	if req.Shares <= 0 {
		return nil, fmt.Errorf("%w: non-positive shares %v", ErrExecutionFailed, req.Shares)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.quotes[req.Symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoQuote, req.Symbol)
	}

	switch req.Side {
	case domain.TradeTypeBuy:
		p.positions[req.Symbol] += req.Shares
	case domain.TradeTypeSell:
		held := p.positions[req.Symbol]
		if req.Shares > held+domain.LotCloseEpsilon {
			return nil, fmt.Errorf("%w: sell %v exceeds position %v in %s", ErrExecutionFailed, req.Shares, held, req.Symbol)
		}
		p.positions[req.Symbol] = held - req.Shares
	default:
		return nil, fmt.Errorf("%w: unknown side %q", ErrExecutionFailed, req.Side)
	}

	return &Fill{
		OrderID: uuid.NewString(),
		Symbol:  req.Symbol,
		Side:    req.Side,
		Shares:  req.Shares,
		Price:   price,
	}, nil
}

// OpenPosition returns the held shares for a symbol.
func (p *PaperExecutor) OpenPosition(_ context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions[symbol], nil
}
