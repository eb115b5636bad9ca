package analysis

import (
	"math"

	"github.com/orato-ai/speech-scorer/internal/audio"
)

// analyzeLatency scores how quickly audible speech began after the
// recording started.
//
// Response time reads its thresholds inverted: Min carries the slowest
// acceptable response (2000ms built in) and Ideal the target (200ms).
// The stored settings shape predates this metric and the mapping is
// kept for compatibility.
func analyzeLatency(samples []float64, sampleRate int, cfg MetricConfig) LatencyResult {
	cfg = resolveBands(MetricResponseTime, cfg)
	responseMs := measureResponseMs(samples, sampleRate)

	maxMs := cfg.Min
	idealMs := cfg.Ideal

	r := float64(responseMs)
	var score float64
	switch {
	case r <= idealMs:
		score = 100
	case r <= maxMs:
		score = 100 - (r-idealMs)/(maxMs-idealMs)*50
	default:
		// Past the ceiling the remaining 50 points drain over 3 seconds
		score = 50 * (1 - (r-maxMs)/3000)
	}

	return LatencyResult{
		ResponseTimeMs: responseMs,
		Score:          clampScore(score),
		Tag:            TagReactivity,
	}
}

// measureResponseMs finds the first sample exceeding the adaptive noise
// floor. The floor is three times the RMS of the first 100ms, never
// below 0.005, so a noisy room does not register as an instant start.
// A buffer that never crosses the floor reports its full duration.
func measureResponseMs(samples []float64, sampleRate int) int {
	lead := sampleRate / 10
	if lead > len(samples) {
		lead = len(samples)
	}
	floor := 3 * audio.RMS(samples[:lead])
	if floor < 0.005 {
		floor = 0.005
	}

	for i, s := range samples {
		if math.Abs(s) > floor {
			return int(math.Round(audio.DurationMs(i, sampleRate)))
		}
	}
	return int(math.Round(audio.DurationMs(len(samples), sampleRate)))
}
