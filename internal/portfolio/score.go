package portfolio

import (
	"math"
	"sort"

	"equity-anomaly-lab/internal/domain"
)

// Ranking constants for strategy search
const (
	minTradesForRanking = 10
	maxPlausibleTrades  = 200
	lowTradePenalty     = 0.5
	highTradePenalty    = 0.8
	consistencyScale    = 50.0
	consistencyFloor    = 0.5
	keepAnywayReturnPct = 5.0
)

// Aggregate reduces a portfolio run into the ranking row used by strategy
// search. Consistency is the population stddev of per-symbol returns;
// drawdown is the worst single-symbol peak-to-trough drop.
func Aggregate(p *domain.PortfolioResult) domain.StrategyAggregate {
	agg := domain.StrategyAggregate{
		StrategyID:    p.StrategyID,
		TotalTrades:   p.TotalTrades,
		TotalInvested: p.TotalInvested,
		TotalValue:    p.TotalValue,
		ReturnPct:     p.OverallReturnPct,
	}

	var returns []float64
	for _, r := range p.SymbolResults {
		if r.Skipped {
			agg.SymbolsSkipped++
			continue
		}
		agg.SymbolsTested++
		returns = append(returns, r.ReturnPct)
		if r.MaxDrawdown > agg.MaxDrawdown {
			agg.MaxDrawdown = r.MaxDrawdown
		}
	}

	agg.Consistency = populationStddev(returns)
	agg.CompositeScore = compositeScore(agg.ReturnPct, agg.Consistency, agg.TotalTrades)
	return agg
}

// compositeScore penalizes erratic cross-symbol returns and implausible
// trade counts.
func compositeScore(returnPct, consistency float64, totalTrades int) float64 {
	consistencyFactor := math.Max(consistencyFloor, 1-consistency/consistencyScale)

	tradePenalty := 1.0
	switch {
	case totalTrades < minTradesForRanking:
		tradePenalty = lowTradePenalty
	case totalTrades > maxPlausibleTrades:
		tradePenalty = highTradePenalty
	}

	return returnPct * consistencyFactor * tradePenalty
}

// Rank filters and orders strategy aggregates for the search report.
// Strategies with too few trades are dropped unless their return clears
// the keep-anyway bar. Ordering is a stable multi-key sort: return
// descending, then composite score descending, then consistency ascending.
func Rank(aggs []domain.StrategyAggregate) []domain.StrategyAggregate {
	ranked := make([]domain.StrategyAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.TotalTrades >= minTradesForRanking || agg.ReturnPct > keepAnywayReturnPct {
			ranked = append(ranked, agg)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ReturnPct != ranked[j].ReturnPct {
			return ranked[i].ReturnPct > ranked[j].ReturnPct
		}
		if ranked[i].CompositeScore != ranked[j].CompositeScore {
			return ranked[i].CompositeScore > ranked[j].CompositeScore
		}
		return ranked[i].Consistency < ranked[j].Consistency
	})
	return ranked
}

// populationStddev computes the population standard deviation (n
// denominator). An empty or single-element slice yields 0.
func populationStddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
