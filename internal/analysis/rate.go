package analysis

import (
	"math"

	"github.com/orato-ai/speech-scorer/internal/audio"
	"github.com/orato-ai/speech-scorer/internal/vad"
)

const (
	rateFrameMs         = 20   // analysis frame length
	pulseThresholdRatio = 0.15 // of the loudest frame
	minPulseGap         = 4    // frames required between pulses
	pulsesPerWord       = 1.5
)

// frameEnergy is one overlapping analysis frame.
type frameEnergy struct {
	startMs float64
	energy  float64
}

// frameEnergies cuts the buffer into 20ms frames with 50% overlap and
// computes mean squared energy per frame.
func frameEnergies(samples []float64, sampleRate int) []frameEnergy {
	frameLen := sampleRate * rateFrameMs / 1000
	if frameLen <= 0 {
		return nil
	}
	hop := frameLen / 2
	if hop <= 0 {
		hop = 1
	}

	var frames []frameEnergy
	for start := 0; start+frameLen <= len(samples); start += hop {
		frames = append(frames, frameEnergy{
			startMs: audio.DurationMs(start, sampleRate),
			energy:  audio.MeanSquare(samples[start : start+frameLen]),
		})
	}
	return frames
}

// countPulses detects syllable-like energy peaks: above the adaptive
// threshold, a strict local maximum against both neighbors, and at least
// minPulseGap frames past the previous pulse.
func countPulses(frames []frameEnergy) int {
	if len(frames) < 3 {
		return 0
	}

	maxEnergy := 0.0
	for _, f := range frames {
		if f.energy > maxEnergy {
			maxEnergy = f.energy
		}
	}
	threshold := pulseThresholdRatio * maxEnergy

	pulses := 0
	last := -minPulseGap
	for i := 1; i < len(frames)-1; i++ {
		if frames[i].energy <= threshold {
			continue
		}
		if frames[i].energy <= frames[i-1].energy || frames[i].energy <= frames[i+1].energy {
			continue
		}
		if i-last < minPulseGap {
			continue
		}
		pulses++
		last = i
	}
	return pulses
}

// rateStrategy selects which frames and which duration feed the pace
// estimate. The engine chooses one strategy at the top of an analysis;
// the dynamics half-buffers re-run the choice against their own clipped
// activity metrics.
type rateStrategy interface {
	selection(frames []frameEnergy, totalDurSec float64) (selected []frameEnergy, durSec float64, ok bool)
	method() string
}

// basicStrategy considers every frame against the wall-clock duration.
type basicStrategy struct{}

func (basicStrategy) selection(frames []frameEnergy, totalDurSec float64) ([]frameEnergy, float64, bool) {
	return frames, totalDurSec, true
}

func (basicStrategy) method() string { return MethodEnergyPeaks }

// segmentStrategy considers only frames starting inside a speech
// segment, against the detected speech time. Pace is then words per
// minute of actual speaking, not of elapsed time.
type segmentStrategy struct {
	metrics *vad.Metrics
}

func (s segmentStrategy) selection(frames []frameEnergy, _ float64) ([]frameEnergy, float64, bool) {
	var selected []frameEnergy
	for _, f := range frames {
		if s.inSegment(f.startMs) {
			selected = append(selected, f)
		}
	}
	if len(selected) == 0 {
		return nil, 0, false
	}
	return selected, s.metrics.TotalSpeechTimeMs / 1000, true
}

func (s segmentStrategy) inSegment(ms float64) bool {
	for _, seg := range s.metrics.SpeechSegments {
		if ms >= seg.StartMs && ms < seg.EndMs {
			return true
		}
	}
	return false
}

func (s segmentStrategy) method() string { return MethodVADEnhanced }

// chooseRateStrategy picks the segment-aware path whenever the activity
// metrics carry segments. A zero speech time then reads as zero pace
// rather than falling back to the wall-clock estimate.
func chooseRateStrategy(m *vad.Metrics) rateStrategy {
	if m != nil && len(m.SpeechSegments) > 0 {
		return segmentStrategy{metrics: m}
	}
	return basicStrategy{}
}

// measureRate estimates words per minute from energy pulses.
func measureRate(samples []float64, sampleRate int, strategy rateStrategy) (int, string) {
	frames := frameEnergies(samples, sampleRate)
	totalDurSec := float64(len(samples)) / float64(sampleRate)

	selected, durSec, ok := strategy.selection(frames, totalDurSec)
	method := strategy.method()
	if !ok {
		// No frame landed inside a speech segment; estimate over the
		// whole buffer instead.
		selected, durSec, _ = basicStrategy{}.selection(frames, totalDurSec)
		method = MethodEnergyPeaks
	}

	if durSec <= 0 {
		return 0, method
	}
	words := float64(countPulses(selected)) / pulsesPerWord
	return int(math.Round(words / durSec * 60)), method
}

// analyzeRate scores speaking pace against the configured WPM bands.
func analyzeRate(samples []float64, sampleRate int, cfg MetricConfig, strategy rateStrategy) RateResult {
	cfg = resolveBands(MetricSpeechRate, cfg)
	wpm, method := measureRate(samples, sampleRate, strategy)

	return RateResult{
		WordsPerMinute: wpm,
		Score:          scoreRate(wpm, cfg),
		Method:         method,
		Tag:            TagFluency,
	}
}

func scoreRate(wpm int, cfg MetricConfig) int {
	w := float64(wpm)
	var score float64
	switch {
	case w >= cfg.Min && w <= cfg.Ideal:
		score = 70 + (w-cfg.Min)/(cfg.Ideal-cfg.Min)*30
	case w > cfg.Ideal && w <= cfg.Max:
		score = 100 - (w-cfg.Ideal)/(cfg.Max-cfg.Ideal)*30
	case w < cfg.Min:
		score = 70 * w / cfg.Min
	default:
		// Racing past the ceiling drains the remaining credit over 50 WPM
		score = 70 * (1 - (w-cfg.Max)/50)
	}
	return clampScore(score)
}
