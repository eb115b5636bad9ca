package analysis

import (
	"math"

	"github.com/orato-ai/speech-scorer/internal/audio"
	"github.com/orato-ai/speech-scorer/internal/vad"
)

// analyzeDynamics compares loudness and pace across the two halves of
// the recording. Building energy toward the end reads as momentum;
// trailing off reads as a fade.
func analyzeDynamics(samples []float64, sampleRate int, m *vad.Metrics) DynamicsResult {
	mid := len(samples) / 2
	first, second := samples[:mid], samples[mid:]

	midMs := audio.DurationMs(mid, sampleRate)
	totalMs := audio.DurationMs(len(samples), sampleRate)
	m1, m2 := splitActivity(m, midMs, totalMs)

	db1 := audio.DBFS(audio.RMS(first))
	db2 := audio.DBFS(audio.RMS(second))
	wpm1, _ := measureRate(first, sampleRate, chooseRateStrategy(m1))
	wpm2, _ := measureRate(second, sampleRate, chooseRateStrategy(m2))

	volumeIncrease := db2 - db1
	rateIncrease := wpm2 - wpm1

	accelFactor := volumeIncrease*2 + float64(rateIncrease)*0.5
	if accelFactor < 0 {
		accelFactor = 0
	}

	return DynamicsResult{
		IsAccelerating: volumeIncrease > 0 || rateIncrease > 5,
		VolumeIncrease: round1(volumeIncrease),
		RateIncrease:   rateIncrease,
		Score:          clampScore(50 + accelFactor),
		Tag:            TagMomentum,
	}
}

// splitActivity clips activity metrics to each half of the recording and
// rebases the second half's timestamps to its own origin. Totals and
// ratios are recomputed for the half windows.
func splitActivity(m *vad.Metrics, midMs, totalMs float64) (*vad.Metrics, *vad.Metrics) {
	if m == nil {
		return nil, nil
	}

	first := &vad.Metrics{SpeechProbability: m.SpeechProbability}
	second := &vad.Metrics{SpeechProbability: m.SpeechProbability, IsSpeaking: m.IsSpeaking}

	for _, seg := range m.SpeechSegments {
		if seg.StartMs < midMs {
			end := math.Min(seg.EndMs, midMs)
			if end > seg.StartMs {
				first.SpeechSegments = append(first.SpeechSegments, vad.SpeechSegment{
					StartMs:    seg.StartMs,
					EndMs:      end,
					DurationMs: end - seg.StartMs,
				})
			}
		}
		if seg.EndMs > midMs {
			start := math.Max(seg.StartMs, midMs)
			second.SpeechSegments = append(second.SpeechSegments, vad.SpeechSegment{
				StartMs:    start - midMs,
				EndMs:      seg.EndMs - midMs,
				DurationMs: seg.EndMs - start,
			})
		}
	}

	fillActivityTotals(first, midMs)
	fillActivityTotals(second, totalMs-midMs)
	return first, second
}

func fillActivityTotals(m *vad.Metrics, windowMs float64) {
	speech := 0.0
	for _, seg := range m.SpeechSegments {
		speech += seg.DurationMs
	}
	m.TotalSpeechTimeMs = speech

	silence := windowMs - speech
	if silence < 0 {
		silence = 0
	}
	m.TotalSilenceTimeMs = silence

	if windowMs > 0 {
		m.SpeechRatio = speech / windowMs
	}
}
