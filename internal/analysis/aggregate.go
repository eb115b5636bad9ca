package analysis

// aggregate folds the metric scores into a weighted overall score and a
// feedback bucket. Weights of enabled metrics are renormalized to sum
// to one, so disabling a metric redistributes its influence instead of
// deflating everyone's totals.
func aggregate(snapshot Snapshot, result *Result) (int, string) {
	totalWeight := 0.0
	for _, id := range MetricIDs {
		cfg := snapshot[id]
		if cfg.Enabled && cfg.Weight > 0 {
			totalWeight += cfg.Weight
		}
	}
	if totalWeight <= 0 {
		// Nothing carries weight; there is no meaningful score.
		return 0, BucketPoor
	}

	weighted := 0.0
	for _, id := range MetricIDs {
		cfg := snapshot[id]
		if cfg.Enabled && cfg.Weight > 0 {
			weighted += float64(result.Score(id)) * cfg.Weight / totalWeight
		}
	}

	overall := clampScore(weighted)
	return overall, bucketFor(overall)
}

func bucketFor(score int) string {
	switch {
	case score >= 70:
		return BucketExcellent
	case score >= 40:
		return BucketGood
	default:
		return BucketPoor
	}
}
