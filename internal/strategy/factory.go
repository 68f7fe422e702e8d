package strategy

import (
	"errors"

	"equity-anomaly-lab/internal/domain"
)

// Factory errors
var (
	ErrInvalidLookback           = errors.New("lookback_period must be positive")
	ErrInvalidMinSeverity        = errors.New("min_severity must not be negative")
	ErrInvalidStopLossPct        = errors.New("stop_loss_pct must be in [0, 1)")
	ErrInvalidTrailingStopPct    = errors.New("trailing_stop_pct must be in [0, 1)")
	ErrInvalidPositionSize       = errors.New("base_position_size must be positive")
	ErrInvalidStrongSellSeverity = errors.New("strong_sell_severity must not be below min_severity")
	ErrInvalidOverboughtFraction = errors.New("overbought_fraction must be in (0, 1]")
	ErrInvalidMinBars            = errors.New("min_bars_required must not be negative")
)

// FromConfig builds a validated Strategy from a config. Zero-valued fields
// are filled with defaults before validation, so the empty config yields
// the default strategy. Returns a sentinel error per invalid parameter.
func FromConfig(cfg domain.StrategyConfig) (*Strategy, error) {
	applyDefaults(&cfg)

	if cfg.LookbackPeriod <= 0 {
		return nil, ErrInvalidLookback
	}
	if cfg.MinSeverity < 0 {
		return nil, ErrInvalidMinSeverity
	}
	if cfg.StopLossPct < 0 || cfg.StopLossPct >= 1 {
		return nil, ErrInvalidStopLossPct
	}
	if cfg.TrailingStopPct < 0 || cfg.TrailingStopPct >= 1 {
		return nil, ErrInvalidTrailingStopPct
	}
	if cfg.BasePositionSize <= 0 {
		return nil, ErrInvalidPositionSize
	}
	if cfg.StrongSellSeverity < cfg.MinSeverity {
		return nil, ErrInvalidStrongSellSeverity
	}
	if cfg.OverboughtFraction <= 0 || cfg.OverboughtFraction > 1 {
		return nil, ErrInvalidOverboughtFraction
	}
	if cfg.MinBarsRequired < 0 {
		return nil, ErrInvalidMinBars
	}
	// A symbol needs at least one bar past the lookback to ever trade.
	if cfg.MinBarsRequired <= cfg.LookbackPeriod {
		cfg.MinBarsRequired = cfg.LookbackPeriod + 1
	}

	id := cfg.StrategyID
	if id == "" {
		id = generateID(cfg)
		cfg.StrategyID = id
	}

	return &Strategy{id: id, cfg: cfg}, nil
}

func applyDefaults(cfg *domain.StrategyConfig) {
	if cfg.LookbackPeriod == 0 {
		cfg.LookbackPeriod = domain.DefaultLookbackPeriod
	}
	if cfg.MinSeverity == 0 {
		cfg.MinSeverity = domain.DefaultMinSeverity
	}
	if cfg.StopLossPct == 0 {
		cfg.StopLossPct = domain.DefaultStopLossPct
	}
	if cfg.TrailingStopPct == 0 {
		cfg.TrailingStopPct = domain.DefaultTrailingStopPct
	}
	if cfg.BasePositionSize == 0 {
		cfg.BasePositionSize = domain.DefaultBasePositionSize
	}
	if cfg.StrongSellSeverity == 0 {
		cfg.StrongSellSeverity = domain.DefaultStrongSellSeverity
	}
	if cfg.OverboughtFraction == 0 {
		cfg.OverboughtFraction = domain.DefaultOverboughtFraction
	}
	if cfg.MinBarsRequired == 0 {
		cfg.MinBarsRequired = domain.DefaultMinBarsRequired
	}
}
