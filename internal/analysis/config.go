package analysis

import (
	"math"

	"github.com/rs/zerolog/log"
)

// MetricConfig is the resolved configuration for one metric. Thresholds
// are metric-specific units: dBFS for volume, words per minute for rate,
// milliseconds for response time, a ratio bound for pauses.
//
// Response time interprets its thresholds inverted: Min holds the
// slowest acceptable response and Ideal the target. Callers must not
// reorder them.
type MetricConfig struct {
	Weight  float64 `json:"weight"`
	Min     float64 `json:"min"`
	Ideal   float64 `json:"ideal"`
	Max     float64 `json:"max"`
	Method  string  `json:"method,omitempty"`
	Enabled bool    `json:"enabled"`
}

// Snapshot is an immutable per-call view of every metric's
// configuration. The engine resolves one snapshot at the top of each
// analysis and threads it through, so a concurrent settings reload never
// tears a single scoring run.
type Snapshot map[MetricID]MetricConfig

// MetricPatch overrides individual fields of a MetricConfig. Nil fields
// leave the lower layer untouched.
type MetricPatch struct {
	Weight  *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Ideal   *float64 `json:"ideal,omitempty" yaml:"ideal,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Method  *string  `json:"method,omitempty" yaml:"method,omitempty"`
	Enabled *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Patch is a partial settings layer keyed by metric.
type Patch map[MetricID]MetricPatch

// DefaultSnapshot returns the built-in configuration. It is the floor of
// every settings resolution: when no stored settings or overrides exist,
// scoring runs on exactly these values.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		MetricVolume: {
			Weight: 40, Min: -35, Ideal: -15, Max: 0, Enabled: true,
		},
		MetricSpeechRate: {
			Weight: 40, Min: 90, Ideal: 150, Max: 220, Enabled: true,
		},
		MetricAcceleration: {
			Weight: 5, Min: 0, Ideal: 50, Max: 100, Enabled: true,
		},
		MetricResponseTime: {
			// Inverted: Min is the 2000ms ceiling, Ideal the 200ms target.
			Weight: 5, Min: 2000, Ideal: 200, Max: 0, Enabled: true,
		},
		MetricPauseManagement: {
			Weight: 10, Min: 0, Ideal: 0, Max: 2.71, Enabled: true,
		},
	}
}

// Apply layers a patch over the snapshot and returns the merged copy.
// The receiver is never modified.
func (s Snapshot) Apply(p Patch) Snapshot {
	merged := make(Snapshot, len(s))
	for id, cfg := range s {
		merged[id] = cfg
	}
	for id, patch := range p {
		cfg, ok := merged[id]
		if !ok {
			// Unknown metric IDs in a layer are ignored rather than
			// invented; scoring only knows the five built-in metrics.
			continue
		}
		if patch.Weight != nil {
			cfg.Weight = *patch.Weight
		}
		if patch.Min != nil {
			cfg.Min = *patch.Min
		}
		if patch.Ideal != nil {
			cfg.Ideal = *patch.Ideal
		}
		if patch.Max != nil {
			cfg.Max = *patch.Max
		}
		if patch.Method != nil {
			cfg.Method = *patch.Method
		}
		if patch.Enabled != nil {
			cfg.Enabled = *patch.Enabled
		}
		merged[id] = cfg
	}
	return merged
}

// bandsDegenerate reports whether the piecewise scoring bands collapse.
// Formulas that divide by (Max-Ideal) or (Ideal-Min) fall back to the
// built-in thresholds when this is true. Non-finite thresholds count as
// degenerate too; they would poison every band comparison.
func (c MetricConfig) bandsDegenerate() bool {
	for _, v := range []float64{c.Min, c.Ideal, c.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return c.Max == c.Ideal || c.Ideal == c.Min
}

// resolveBands swaps in the built-in thresholds when a settings layer
// produced collapsed scoring bands. Weight, method and enabled keep
// their resolved values; only the thresholds fall back. Config problems
// never fail an analysis.
func resolveBands(id MetricID, cfg MetricConfig) MetricConfig {
	if !cfg.bandsDegenerate() {
		return cfg
	}
	builtin := DefaultSnapshot()[id]
	builtin.Weight = cfg.Weight
	builtin.Method = cfg.Method
	builtin.Enabled = cfg.Enabled
	log.Warn().
		Str("component", "analysis").
		Str("metric", string(id)).
		Float64("min", cfg.Min).
		Float64("ideal", cfg.Ideal).
		Float64("max", cfg.Max).
		Msg("Degenerate thresholds, using built-in defaults")
	return builtin
}
