package analysis

import (
	"math"

	"github.com/orato-ai/speech-scorer/internal/vad"
)

const (
	pauseFrameMs   = 50
	silentMeanAmp  = 0.01
	freePauseRatio = 0.1 // up to 10% pause carries no penalty
)

// analyzePause scores the share of the recording spent silent. Activity
// metrics give the exact ratio when present; otherwise coarse 50ms
// frames below a mean-amplitude threshold count as silent.
func analyzePause(samples []float64, sampleRate int, cfg MetricConfig, m *vad.Metrics) PauseResult {
	ratio := pauseRatio(samples, sampleRate, m)

	// The score divides by the bound, so zero, negative and non-finite
	// values all fall back to the built-in ratio.
	maxRatio := cfg.Max
	if maxRatio <= 0 || math.IsNaN(maxRatio) || math.IsInf(maxRatio, 0) {
		maxRatio = DefaultSnapshot()[MetricPauseManagement].Max
	}

	score := 100 - (ratio-freePauseRatio)/maxRatio*100

	return PauseResult{
		PauseRatio: round2(ratio),
		Score:      clampScore(score),
		Tag:        TagContinuity,
	}
}

func pauseRatio(samples []float64, sampleRate int, m *vad.Metrics) float64 {
	if m != nil {
		ratio := 1 - m.SpeechRatio
		if ratio < 0 {
			return 0
		}
		if ratio > 1 {
			return 1
		}
		return ratio
	}

	frameLen := sampleRate * pauseFrameMs / 1000
	if frameLen <= 0 || frameLen > len(samples) {
		// Short captures are judged as a single frame
		frameLen = len(samples)
	}

	total, silent := 0, 0
	for start := 0; start+frameLen <= len(samples); start += frameLen {
		total++
		if meanAbs(samples[start:start+frameLen]) < silentMeanAmp {
			silent++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(silent) / float64(total)
}

func meanAbs(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += math.Abs(s)
	}
	return sum / float64(len(samples))
}
