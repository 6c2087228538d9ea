package engine

import (
	"testing"
	"time"

	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/units"
)

// TestConfigValidate covers valid and invalid combinations
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr int
	}{
		{
			name: "single time valid",
			cfg:  Config{Mode: SingleTime, InputUnits: units.Metric, OutputUnits: units.Metric},
		},
		{
			name: "time series valid",
			cfg: Config{
				Mode: TimeSeries, Duration: 24 * time.Hour, Step: time.Hour,
				InputUnits: units.Metric, OutputUnits: units.Metric,
			},
		},
		{
			name:    "time series zero step",
			cfg:     Config{Mode: TimeSeries, Duration: 24 * time.Hour},
			wantErr: 1,
		},
		{
			name:    "time series negative duration and step",
			cfg:     Config{Mode: TimeSeries, Duration: -time.Hour, Step: -time.Minute},
			wantErr: 2,
		},
		{
			name:    "step exceeds duration",
			cfg:     Config{Mode: TimeSeries, Duration: time.Hour, Step: 2 * time.Hour},
			wantErr: 1,
		},
		{
			name:    "single time with leftover step",
			cfg:     Config{Mode: SingleTime, Step: time.Hour},
			wantErr: 1,
		},
		{
			name:    "negative demand multiplier",
			cfg:     Config{Mode: SingleTime, DemandMultiplier: -2},
			wantErr: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := tt.cfg.Validate()
			errs := report.ByKind(network.KindConfig)
			if len(errs) != tt.wantErr {
				t.Errorf("got %d ConfigError entries, want %d: %v", len(errs), tt.wantErr, errs)
			}
		})
	}
}

// TestConfigSteps verifies the ⌈D/S⌉+1 timestamp shape
func TestConfigSteps(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		want     int
		wantLast time.Duration
	}{
		{"single time", Config{Mode: SingleTime}, 1, 0},
		{"even division", Config{Mode: TimeSeries, Duration: 6 * time.Hour, Step: time.Hour}, 7, 6 * time.Hour},
		{"ragged division", Config{Mode: TimeSeries, Duration: 10 * time.Hour, Step: 4 * time.Hour}, 4, 10 * time.Hour},
		{"single step", Config{Mode: TimeSeries, Duration: time.Hour, Step: time.Hour}, 2, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := tt.cfg.Steps()
			if len(steps) != tt.want {
				t.Fatalf("got %d steps, want %d: %v", len(steps), tt.want, steps)
			}
			if steps[0] != 0 {
				t.Errorf("first step = %v, want 0", steps[0])
			}
			if steps[len(steps)-1] != tt.wantLast {
				t.Errorf("last step = %v, want %v", steps[len(steps)-1], tt.wantLast)
			}
			for i := 1; i < len(steps); i++ {
				if steps[i] <= steps[i-1] {
					t.Errorf("steps not strictly increasing at %d: %v", i, steps)
				}
			}
		})
	}
}
