// Package settings loads and layers stored scoring configuration.
// Layers compose per metric, per field: an absent field inherits the
// layer below, with built-in defaults at the bottom. A missing or
// broken file never blocks scoring; resolution just stops at the last
// good layer.
package settings

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orato-ai/speech-scorer/internal/analysis"
)

// File is the on-disk shape of one settings layer.
type File struct {
	Metrics map[string]analysis.MetricPatch `yaml:"metrics"`
}

// Load reads the YAML settings layer at path and validates it.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("settings: open %q: %w", path, err)
	}
	defer f.Close()

	file, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("settings: parse %q: %w", path, err)
	}
	return file, nil
}

// LoadFromReader decodes a YAML settings layer from r and validates the
// result. Useful in tests where layers are built from string literals.
func LoadFromReader(r io.Reader) (*File, error) {
	file := &File{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(file); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty file is an empty layer
			return file, nil
		}
		return nil, fmt.Errorf("settings: decode yaml: %w", err)
	}
	if err := Validate(file); err != nil {
		return nil, err
	}
	return file, nil
}

// Validate checks that the layer only patches known metrics with usable
// values. It returns a joined error listing all failures found.
//
// Threshold ordering is not validated here: response time stores its
// thresholds inverted, and collapsed bands already fall back to the
// built-in defaults at scoring time. Non-finite values are rejected
// outright; YAML parses .nan and .inf, which no scoring band can use.
func Validate(file *File) error {
	var errs []error
	for id, patch := range file.Metrics {
		if !knownMetric(analysis.MetricID(id)) {
			errs = append(errs, fmt.Errorf("metrics.%s is not a known metric", id))
			continue
		}
		if patch.Weight != nil && *patch.Weight < 0 {
			errs = append(errs, fmt.Errorf("metrics.%s.weight %.2f is negative", id, *patch.Weight))
		}
		for _, field := range []struct {
			name  string
			value *float64
		}{
			{"weight", patch.Weight},
			{"min", patch.Min},
			{"ideal", patch.Ideal},
			{"max", patch.Max},
		} {
			if field.value == nil {
				continue
			}
			if math.IsNaN(*field.value) || math.IsInf(*field.value, 0) {
				errs = append(errs, fmt.Errorf("metrics.%s.%s %f is not finite", id, field.name, *field.value))
			}
		}
		if patch.Method != nil && *patch.Method != analysis.MethodEnergyPeaks && *patch.Method != analysis.MethodVADEnhanced {
			errs = append(errs, fmt.Errorf("metrics.%s.method %q is invalid; valid values: %s, %s",
				id, *patch.Method, analysis.MethodEnergyPeaks, analysis.MethodVADEnhanced))
		}
	}
	return errors.Join(errs...)
}

func knownMetric(id analysis.MetricID) bool {
	for _, known := range analysis.MetricIDs {
		if id == known {
			return true
		}
	}
	return false
}

// Patch converts the file into an engine settings layer.
func (f *File) Patch() analysis.Patch {
	patch := make(analysis.Patch, len(f.Metrics))
	for id, p := range f.Metrics {
		patch[analysis.MetricID(id)] = p
	}
	return patch
}
