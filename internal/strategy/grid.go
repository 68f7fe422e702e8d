package strategy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"equity-anomaly-lab/internal/domain"
)

// SearchSpace describes the parameter grid for strategy search. Each
// combination becomes one named strategy with its parameters bound by
// value at grid-expansion time.
type SearchSpace struct {
	LookbackPeriods  []int     `yaml:"lookback_periods"`
	MinSeverities    []float64 `yaml:"min_severities"`
	StopLossPcts     []float64 `yaml:"stop_loss_pcts"`
	TrailingStopPcts []float64 `yaml:"trailing_stop_pcts"`
	BasePositionSize float64   `yaml:"base_position_size"`
}

// DefaultSearchSpace returns the built-in grid swept when no YAML file is
// supplied.
func DefaultSearchSpace() SearchSpace {
	return SearchSpace{
		LookbackPeriods:  []int{15, 20, 25},
		MinSeverities:    []float64{1.0, 1.5, 2.0},
		StopLossPcts:     []float64{0.03, 0.05, 0.07},
		TrailingStopPcts: []float64{0.03, 0.05, 0.08},
		BasePositionSize: domain.DefaultBasePositionSize,
	}
}

// LoadSearchSpace reads a search space from a YAML file. Empty axes fall
// back to the defaults so a file can override a single dimension.
func LoadSearchSpace(path string) (SearchSpace, error) {
	space := DefaultSearchSpace()
	data, err := os.ReadFile(path)
	if err != nil {
		return space, fmt.Errorf("read search space: %w", err)
	}
	if err := yaml.Unmarshal(data, &space); err != nil {
		return space, fmt.Errorf("parse search space: %w", err)
	}
	if len(space.LookbackPeriods) == 0 {
		space.LookbackPeriods = DefaultSearchSpace().LookbackPeriods
	}
	if len(space.MinSeverities) == 0 {
		space.MinSeverities = DefaultSearchSpace().MinSeverities
	}
	if len(space.StopLossPcts) == 0 {
		space.StopLossPcts = DefaultSearchSpace().StopLossPcts
	}
	if len(space.TrailingStopPcts) == 0 {
		space.TrailingStopPcts = DefaultSearchSpace().TrailingStopPcts
	}
	if space.BasePositionSize == 0 {
		space.BasePositionSize = domain.DefaultBasePositionSize
	}
	return space, nil
}

// Grid expands the search space into validated strategies. Every config is
// a fresh value, never a reference captured across iterations.
func Grid(space SearchSpace) ([]*Strategy, error) {
	var strategies []*Strategy
	for _, lookback := range space.LookbackPeriods {
		for _, severity := range space.MinSeverities {
			for _, stop := range space.StopLossPcts {
				for _, trail := range space.TrailingStopPcts {
					cfg := domain.StrategyConfig{
						LookbackPeriod:   lookback,
						MinSeverity:      severity,
						StopLossPct:      stop,
						TrailingStopPct:  trail,
						BasePositionSize: space.BasePositionSize,
					}
					s, err := FromConfig(cfg)
					if err != nil {
						return nil, fmt.Errorf("grid point %+v: %w", cfg, err)
					}
					strategies = append(strategies, s)
				}
			}
		}
	}
	return strategies, nil
}
