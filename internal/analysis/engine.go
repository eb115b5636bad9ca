// Package analysis scores finished speech recordings. Five analyzers
// run per recording (volume, speech rate, acceleration, response time,
// pause management); their integer 0..100 scores fold into a weighted
// overall score and a feedback bucket.
//
// Scoring is deterministic: the same samples, sample rate, activity
// metrics and settings snapshot always produce the same result. The
// only errors Analyze returns are for unusable input; configuration
// problems and missing collaborators degrade to built-in behavior.
package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/orato-ai/speech-scorer/internal/calibration"
	"github.com/orato-ai/speech-scorer/internal/loudness"
	"github.com/orato-ai/speech-scorer/internal/observability"
)

// SettingsSource yields the current resolved metric settings. The
// settings resolver implements it; a nil source means built-in
// defaults.
type SettingsSource interface {
	Snapshot() Snapshot
}

// ProfileSource yields device calibration profiles. A nil source, a
// missing profile or a failed lookup all skip normalization.
type ProfileSource interface {
	Get(ctx context.Context, deviceID string) (*calibration.Profile, error)
}

// Engine scores finished recordings. Safe for concurrent use; every
// call resolves its own settings snapshot.
type Engine struct {
	settings SettingsSource
	profiles ProfileSource
}

// NewEngine creates a scoring engine. Both collaborators may be nil.
func NewEngine(settings SettingsSource, profiles ProfileSource) *Engine {
	return &Engine{
		settings: settings,
		profiles: profiles,
	}
}

// Analyze scores one recording. The request's samples are mono PCM in
// [-1, 1); they are never modified.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if len(req.Samples) == 0 {
		return nil, ErrEmptyBuffer
	}
	if req.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}

	snapshot := e.resolveSnapshot(req.Overrides)
	samples, norm := e.normalize(ctx, req)
	strategy := chooseRateStrategy(req.VAD)

	result := &Result{Normalization: norm}

	// Analyzers are pure functions over (samples, snapshot, activity);
	// each one writes its own result field.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.Volume = analyzeVolume(samples, snapshot[MetricVolume])
		return nil
	})
	g.Go(func() error {
		result.SpeechRate = analyzeRate(samples, req.SampleRate, snapshot[MetricSpeechRate], strategy)
		return nil
	})
	g.Go(func() error {
		result.Acceleration = analyzeDynamics(samples, req.SampleRate, req.VAD)
		return nil
	})
	g.Go(func() error {
		result.ResponseTime = analyzeLatency(samples, req.SampleRate, snapshot[MetricResponseTime])
		return nil
	})
	g.Go(func() error {
		result.Pauses = analyzePause(samples, req.SampleRate, snapshot[MetricPauseManagement], req.VAD)
		return nil
	})
	_ = g.Wait()

	if req.WordCount > 0 {
		result.SpeechRate.ObservedWords = req.WordCount
	}

	overall, bucket := aggregate(snapshot, result)
	result.OverallScore = overall
	result.FeedbackBucket = bucket

	elapsed := time.Since(start)
	scores := make(map[string]int, len(MetricIDs))
	for _, id := range MetricIDs {
		scores[string(id)] = result.Score(id)
	}
	observability.RecordAnalysis(bucket, overall, scores, elapsed.Seconds())

	log.Debug().
		Str("component", "analysis").
		Str("analysis_id", uuid.New().String()).
		Int("overall_score", overall).
		Str("bucket", bucket).
		Int("samples", len(req.Samples)).
		Int("sample_rate", req.SampleRate).
		Str("rate_method", result.SpeechRate.Method).
		Dur("elapsed", elapsed).
		Msg("Analysis complete")

	return result, nil
}

// normalize runs the optional loudness pre-stage. Any trouble finding a
// profile leaves the samples untouched.
func (e *Engine) normalize(ctx context.Context, req Request) ([]float64, *loudness.Normalization) {
	if req.DeviceID == "" || e.profiles == nil {
		return req.Samples, nil
	}

	profile, err := e.profiles.Get(ctx, req.DeviceID)
	if err != nil {
		if !errors.Is(err, calibration.ErrNotFound) {
			log.Warn().
				Err(err).
				Str("component", "analysis").
				Str("device_id", req.DeviceID).
				Msg("Calibration lookup failed, skipping normalization")
		}
		return req.Samples, nil
	}
	if profile == nil {
		return req.Samples, nil
	}

	samples, norm := loudness.Normalize(req.Samples, req.SampleRate, profile)
	return samples, norm
}

func (e *Engine) resolveSnapshot(overrides Patch) Snapshot {
	snapshot := DefaultSnapshot()
	if e.settings != nil {
		if s := e.settings.Snapshot(); s != nil {
			snapshot = s
		}
	}
	if len(overrides) > 0 {
		snapshot = snapshot.Apply(overrides)
	}
	return snapshot
}
