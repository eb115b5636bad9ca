package analysis

import (
	"errors"
	"math"

	"github.com/orato-ai/speech-scorer/internal/loudness"
	"github.com/orato-ai/speech-scorer/internal/vad"
)

// Analysis fails fast on unusable input; everything else degrades to
// built-in defaults without returning an error.
var (
	ErrEmptyBuffer       = errors.New("empty audio buffer")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)

// MetricID identifies one of the five scored metrics.
type MetricID string

const (
	MetricVolume          MetricID = "volume"
	MetricSpeechRate      MetricID = "speechRate"
	MetricAcceleration    MetricID = "acceleration"
	MetricResponseTime    MetricID = "responseTime"
	MetricPauseManagement MetricID = "pauseManagement"
)

// MetricIDs lists the scored metrics in presentation order.
var MetricIDs = []MetricID{
	MetricVolume,
	MetricSpeechRate,
	MetricAcceleration,
	MetricResponseTime,
	MetricPauseManagement,
}

// Presentation tags carried on each metric result. Downstream consumers
// switch on these, so the values are part of the wire contract.
const (
	TagEnergy     = "ENERGY"
	TagFluency    = "FLUENCY"
	TagMomentum   = "MOMENTUM"
	TagReactivity = "REACTIVITY"
	TagContinuity = "CONTINUITY"
)

// Rate estimation method tags, also part of the wire contract.
const (
	MethodEnergyPeaks = "energy-peaks"
	MethodVADEnhanced = "vad-enhanced"
)

// Feedback buckets for the overall score.
const (
	BucketExcellent = "excellent"
	BucketGood      = "good"
	BucketPoor      = "poor"
)

// Request carries one finished recording into the engine. Samples are
// mono PCM scaled to [-1, 1). DeviceID, VAD, Overrides and WordCount are
// all optional; the engine silently falls back when they are absent.
type Request struct {
	Samples    []float64
	SampleRate int
	DeviceID   string
	VAD        *vad.Metrics
	Overrides  Patch
	WordCount  int
}

// VolumeResult reports loudness relative to full scale.
type VolumeResult struct {
	AverageDb float64 `json:"averageDb"`
	Score     int     `json:"score"`
	Tag       string  `json:"tag"`
}

// RateResult reports estimated speaking pace. ObservedWords is a
// transcription word count when one was available; scoring always uses
// the pulse estimate.
type RateResult struct {
	WordsPerMinute int    `json:"wordsPerMinute"`
	Score          int    `json:"score"`
	Method         string `json:"method"`
	ObservedWords  int    `json:"observedWords,omitempty"`
	Tag            string `json:"tag"`
}

// DynamicsResult reports whether delivery builds energy between the
// first and second half of the recording.
type DynamicsResult struct {
	IsAccelerating bool    `json:"isAccelerating"`
	VolumeIncrease float64 `json:"volumeIncrease"`
	RateIncrease   int     `json:"rateIncrease"`
	Score          int     `json:"score"`
	Tag            string  `json:"tag"`
}

// LatencyResult reports how quickly speech started.
type LatencyResult struct {
	ResponseTimeMs int    `json:"responseTimeMs"`
	Score          int    `json:"score"`
	Tag            string `json:"tag"`
}

// PauseResult reports the share of the recording spent in silence.
type PauseResult struct {
	PauseRatio float64 `json:"pauseRatio"`
	Score      int     `json:"score"`
	Tag        string  `json:"tag"`
}

// Result is the full scoring output for one recording.
type Result struct {
	OverallScore   int                     `json:"overallScore"`
	FeedbackBucket string                  `json:"feedbackBucket"`
	Volume         VolumeResult            `json:"volume"`
	SpeechRate     RateResult              `json:"speechRate"`
	Acceleration   DynamicsResult          `json:"acceleration"`
	ResponseTime   LatencyResult           `json:"responseTime"`
	Pauses         PauseResult             `json:"pauses"`
	Normalization  *loudness.Normalization `json:"normalization,omitempty"`
}

// Score returns the score for a metric, so callers can iterate without
// switching on the result fields themselves.
func (r *Result) Score(id MetricID) int {
	switch id {
	case MetricVolume:
		return r.Volume.Score
	case MetricSpeechRate:
		return r.SpeechRate.Score
	case MetricAcceleration:
		return r.Acceleration.Score
	case MetricResponseTime:
		return r.ResponseTime.Score
	case MetricPauseManagement:
		return r.Pauses.Score
	}
	return 0
}

// clampScore rounds to the nearest integer and clamps to [0, 100].
func clampScore(score float64) int {
	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
