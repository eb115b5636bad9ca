package analysis

import (
	"github.com/orato-ai/speech-scorer/internal/audio"
)

// analyzeVolume scores overall loudness against the configured dB bands.
// The ideal band sits between conversational and projected speech; both
// too quiet and clipping-hot recordings lose points.
func analyzeVolume(samples []float64, cfg MetricConfig) VolumeResult {
	cfg = resolveBands(MetricVolume, cfg)
	db := audio.DBFS(audio.RMS(samples))

	return VolumeResult{
		AverageDb: round1(db),
		Score:     scoreVolume(db, cfg),
		Tag:       TagEnergy,
	}
}

func scoreVolume(db float64, cfg MetricConfig) int {
	var score float64
	switch {
	case db >= cfg.Ideal:
		score = 100 - (db-cfg.Ideal)/(cfg.Max-cfg.Ideal)*30
	case db >= cfg.Min:
		score = 70 + (db-cfg.Min)/(cfg.Ideal-cfg.Min)*30
	default:
		// 20 dB under the floor is worth nothing at all
		score = 70 * (1 - (cfg.Min-db)/20)
	}
	return clampScore(score)
}
