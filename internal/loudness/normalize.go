package loudness

import (
	"math"

	"github.com/orato-ai/speech-scorer/internal/calibration"
)

const (
	// DefaultTargetLUFS is the delivery target when a profile carries no
	// reference level. -16 LUFS is the common spoken-word target.
	DefaultTargetLUFS = -16.0

	maxNormalizationGainDb = 20.0
	noiseCeilingDb         = -40.0
	silenceGateLUFS        = -70.0
)

// Normalization records the loudness trajectory through the gain
// stages. All values are rounded to one decimal for presentation.
type Normalization struct {
	OriginalLUFS      float64 `json:"originalLUFS"`
	CalibratedLUFS    float64 `json:"calibratedLUFS"`
	FinalLUFS         float64 `json:"finalLUFS"`
	DeviceGain        float64 `json:"deviceGain"`
	NormalizationGain float64 `json:"normalizationGain"`
}

// Normalize rescales samples toward the device's reference loudness.
// The device gain from the calibration profile always applies; the
// normalization gain toward the target is capped at 20 dB either way,
// held back so the device's noise floor stays below audibility, and
// skipped entirely for silent input. The input slice is never modified.
func Normalize(samples []float64, sampleRate int, profile *calibration.Profile) ([]float64, *Normalization) {
	original := IntegratedLUFS(samples, sampleRate)

	deviceGain := profile.GainAdjustment
	out := applyGain(samples, deviceGain)
	calibrated := IntegratedLUFS(out, sampleRate)

	target := profile.ReferenceLevel
	if target == 0 {
		target = DefaultTargetLUFS
	}

	gain := 0.0
	if original >= silenceGateLUFS {
		gain = target - calibrated
		if gain > maxNormalizationGainDb {
			gain = maxNormalizationGainDb
		} else if gain < -maxNormalizationGainDb {
			gain = -maxNormalizationGainDb
		}
		if profile.NoiseFloor != 0 {
			headroom := noiseCeilingDb - (profile.NoiseFloor + deviceGain)
			if headroom < 0 {
				headroom = 0
			}
			if gain > headroom {
				gain = headroom
			}
		}
		if gain != 0 {
			out = applyGain(out, gain)
		}
	}

	final := IntegratedLUFS(out, sampleRate)

	return out, &Normalization{
		OriginalLUFS:      round1(original),
		CalibratedLUFS:    round1(calibrated),
		FinalLUFS:         round1(final),
		DeviceGain:        round1(deviceGain),
		NormalizationGain: round1(gain),
	}
}

// applyGain returns a scaled copy, clamped to the [-1, 1] float range.
func applyGain(samples []float64, db float64) []float64 {
	scale := math.Pow(10, db/20)
	out := make([]float64, len(samples))
	for i, s := range samples {
		v := s * scale
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = v
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
