package strategy

import (
	"fmt"

	"equity-anomaly-lab/internal/domain"
)

// Strategy is a validated, immutable anomaly-strategy parameter set. All
// simulation behavior derives from these parameters; two strategies with
// the same config always produce the same trades on the same series.
type Strategy struct {
	id  string
	cfg domain.StrategyConfig
}

// ID returns the strategy identifier (includes parameters when generated).
func (s *Strategy) ID() string {
	return s.id
}

// Config returns a copy of the validated configuration.
func (s *Strategy) Config() domain.StrategyConfig {
	return s.cfg
}

// generateID derives an identifier from the parameters that change
// simulation behavior.
func generateID(cfg domain.StrategyConfig) string {
	return fmt.Sprintf("anomaly_l%d_sev%.1f_sl%.2f_ts%.2f_b%.0f",
		cfg.LookbackPeriod,
		cfg.MinSeverity,
		cfg.StopLossPct,
		cfg.TrailingStopPct,
		cfg.BasePositionSize,
	)
}
