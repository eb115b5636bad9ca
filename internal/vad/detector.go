package vad

import (
	"github.com/orato-ai/speech-scorer/internal/audio"
)

// SpeechSegment is one contiguous run of detected speech.
type SpeechSegment struct {
	StartMs    float64 `json:"start_ms"`
	EndMs      float64 `json:"end_ms"`
	DurationMs float64 `json:"duration_ms"`
}

// Metrics summarizes voice activity across a recording. This is the
// exchange shape the scoring engine consumes; external detectors can
// supply it directly over the ingest protocol.
type Metrics struct {
	SpeechSegments     []SpeechSegment `json:"speechSegments"`
	TotalSpeechTimeMs  float64         `json:"totalSpeechTime_ms"`
	TotalSilenceTimeMs float64         `json:"totalSilenceTime_ms"`
	SpeechRatio        float64         `json:"speechRatio"`
	IsSpeaking         bool            `json:"isSpeaking"`
	SpeechProbability  float64         `json:"speechProbability"`
}

// Config holds configuration for voice activity detection
type Config struct {
	SampleRate      int     // Samples per second of the incoming audio
	EnergyThreshold float64 // RMS energy threshold for speech detection (16-bit scale)
	SpeechFrames    int     // Number of consecutive speech frames to open a segment
	SilenceFrames   int     // Number of consecutive silence frames to close a segment
	FrameSize       int     // Number of samples per frame (20ms at the sample rate)
}

// DefaultConfig returns a default detector configuration for the given rate
func DefaultConfig(sampleRate int) *Config {
	return &Config{
		SampleRate:      sampleRate,
		EnergyThreshold: 500.0,           // ~0.015 full scale
		SpeechFrames:    2,               // 40ms to confirm speech
		SilenceFrames:   10,              // 200ms of silence ends a segment
		FrameSize:       sampleRate / 50, // 20ms frames
	}
}

// Detector performs voice activity detection over streamed 16-bit audio
// and accumulates timed speech segments.
type Detector struct {
	config *Config

	pending      []int16
	frameIndex   int
	speechRun    int
	silenceRun   int
	isSpeaking   bool
	startFrame   int
	segments     []SpeechSegment
	speechFrames int
}

// NewDetector creates a new detector
func NewDetector(config *Config) *Detector {
	if config == nil {
		config = DefaultConfig(16000)
	}
	if config.FrameSize <= 0 {
		config.FrameSize = config.SampleRate / 50
	}
	return &Detector{config: config}
}

// Feed consumes a chunk of samples, carrying any partial frame over to
// the next call. Chunks do not need to be frame-aligned.
func (d *Detector) Feed(samples []int16) {
	d.pending = append(d.pending, samples...)
	for len(d.pending) >= d.config.FrameSize {
		d.processFrame(d.pending[:d.config.FrameSize])
		d.pending = d.pending[d.config.FrameSize:]
	}
}

// processFrame classifies one frame and updates segment state.
// Opening waits for SpeechFrames consecutive speech frames; closing waits
// for SilenceFrames consecutive silence frames, so segment boundaries are
// backdated to the first frame of the run that triggered them.
func (d *Detector) processFrame(samples []int16) (speechStarted, speechEnded bool) {
	rms := audio.RMSInt16(samples)
	frameHasSpeech := rms > d.config.EnergyThreshold

	if frameHasSpeech {
		d.speechFrames++
		d.speechRun++
		d.silenceRun = 0

		if !d.isSpeaking && d.speechRun >= d.config.SpeechFrames {
			speechStarted = true
			d.isSpeaking = true
			d.startFrame = d.frameIndex - d.config.SpeechFrames + 1
			if d.startFrame < 0 {
				d.startFrame = 0
			}
		}
	} else {
		d.silenceRun++
		d.speechRun = 0

		if d.isSpeaking && d.silenceRun >= d.config.SilenceFrames {
			speechEnded = true
			d.isSpeaking = false
			endFrame := d.frameIndex - d.config.SilenceFrames + 1
			d.closeSegment(endFrame)
		}
	}

	d.frameIndex++
	return speechStarted, speechEnded
}

func (d *Detector) closeSegment(endFrame int) {
	if endFrame <= d.startFrame {
		return
	}
	start := d.frameMs(d.startFrame)
	end := d.frameMs(endFrame)
	d.segments = append(d.segments, SpeechSegment{
		StartMs:    start,
		EndMs:      end,
		DurationMs: end - start,
	})
}

func (d *Detector) frameMs(frame int) float64 {
	return audio.DurationMs(frame*d.config.FrameSize, d.config.SampleRate)
}

// IsSpeaking returns whether speech is currently detected
func (d *Detector) IsSpeaking() bool {
	return d.isSpeaking
}

// Metrics builds the activity summary for everything fed so far. An open
// segment is counted up to the last processed frame. The detector state
// is not modified, so the session can poll this mid-recording.
func (d *Detector) Metrics() *Metrics {
	segments := make([]SpeechSegment, len(d.segments))
	copy(segments, d.segments)

	if d.isSpeaking {
		start := d.frameMs(d.startFrame)
		end := d.frameMs(d.frameIndex)
		if end > start {
			segments = append(segments, SpeechSegment{
				StartMs:    start,
				EndMs:      end,
				DurationMs: end - start,
			})
		}
	}

	totalMs := d.frameMs(d.frameIndex)
	speechMs := 0.0
	for _, seg := range segments {
		speechMs += seg.DurationMs
	}
	silenceMs := totalMs - speechMs
	if silenceMs < 0 {
		silenceMs = 0
	}

	ratio := 0.0
	probability := 0.0
	if totalMs > 0 {
		ratio = speechMs / totalMs
	}
	if d.frameIndex > 0 {
		probability = float64(d.speechFrames) / float64(d.frameIndex)
	}

	return &Metrics{
		SpeechSegments:     segments,
		TotalSpeechTimeMs:  speechMs,
		TotalSilenceTimeMs: silenceMs,
		SpeechRatio:        ratio,
		IsSpeaking:         d.isSpeaking,
		SpeechProbability:  probability,
	}
}

// Reset resets the detector state
func (d *Detector) Reset() {
	d.pending = nil
	d.frameIndex = 0
	d.speechRun = 0
	d.silenceRun = 0
	d.isSpeaking = false
	d.startFrame = 0
	d.segments = nil
	d.speechFrames = 0
}
