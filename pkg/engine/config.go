package engine

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/units"
)

// TimeMode selects between a single snapshot and an extended-period run
type TimeMode uint8

const (
	SingleTime TimeMode = iota
	TimeSeries
)

func (m TimeMode) String() string {
	switch m {
	case SingleTime:
		return "single-time"
	case TimeSeries:
		return "time-series"
	default:
		return "unknown"
	}
}

// Config drives one simulation run. Invalid combinations are rejected before
// any engine invocation.
type Config struct {
	Mode     TimeMode
	Duration time.Duration // TimeSeries only
	Step     time.Duration // TimeSeries only
	Formula  units.HeadlossFormula

	// InputUnits is the set the snapshot's attributes are expressed in;
	// OutputUnits is the set result layers are requested in. The engine
	// itself always works in SI.
	InputUnits  units.Set
	OutputUnits units.Set

	// DemandMultiplier scales every junction demand; zero means 1.
	DemandMultiplier float64
}

// Validate collects every configuration violation as a ConfigError diagnostic
func (c Config) Validate() *network.Report {
	report := &network.Report{}

	switch c.Mode {
	case SingleTime:
		if c.Duration != 0 || c.Step != 0 {
			report.Add(network.ConfigError("single-time run must not set duration or step"))
		}
	case TimeSeries:
		if c.Duration <= 0 {
			report.Add(network.ConfigError(fmt.Sprintf("time-series duration must be positive, got %v", c.Duration)))
		}
		if c.Step <= 0 {
			report.Add(network.ConfigError(fmt.Sprintf("time-series step must be positive, got %v", c.Step)))
		}
		if c.Duration > 0 && c.Step > c.Duration {
			report.Add(network.ConfigError(fmt.Sprintf("step %v exceeds duration %v", c.Step, c.Duration)))
		}
	default:
		report.Add(network.ConfigError(fmt.Sprintf("unknown time mode %d", c.Mode)))
	}

	if c.Formula > units.ChezyManning {
		report.Add(network.ConfigError(fmt.Sprintf("unknown headloss formula %d", c.Formula)))
	}
	if c.DemandMultiplier < 0 {
		report.Add(network.ConfigError(fmt.Sprintf("demand multiplier must be non-negative, got %v", c.DemandMultiplier)))
	}

	return report
}

// Multiplier returns the demand multiplier with the zero value defaulted to 1
func (c Config) Multiplier() float64 {
	if c.DemandMultiplier == 0 {
		return 1
	}
	return c.DemandMultiplier
}

// Steps expands the time mode into the reporting timestamps: a single zero
// for SingleTime, or ⌈D/S⌉+1 strictly increasing timestamps starting at 0
// with the final one clamped to the duration.
func (c Config) Steps() []time.Duration {
	if c.Mode == SingleTime {
		return []time.Duration{0}
	}

	n := int(c.Duration / c.Step)
	if c.Duration%c.Step != 0 {
		n++
	}
	steps := make([]time.Duration, 0, n+1)
	for i := 0; i <= n; i++ {
		t := time.Duration(i) * c.Step
		if t > c.Duration {
			t = c.Duration
		}
		steps = append(steps, t)
	}
	return steps
}
