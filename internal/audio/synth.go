package audio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Synthetic signal kinds accepted by ParsePattern.
const (
	SynthTone    = "tone"
	SynthSilence = "silence"
	SynthRise    = "rise"
)

// SynthSegment is one stretch of a synthetic signal.
type SynthSegment struct {
	Kind    string
	Seconds float64
}

// ParsePattern parses a comma-separated segment list such as
// "tone:2,silence:0.5,rise:2". Each entry is kind:seconds.
func ParsePattern(pattern string) ([]SynthSegment, error) {
	parts := strings.Split(pattern, ",")
	segments := make([]SynthSegment, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kind, duration, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("segment %q must be kind:seconds", part)
		}
		switch kind {
		case SynthTone, SynthSilence, SynthRise:
		default:
			return nil, fmt.Errorf("unknown segment kind %q", kind)
		}
		seconds, err := strconv.ParseFloat(duration, 64)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("segment %q has an invalid duration", part)
		}

		segments = append(segments, SynthSegment{Kind: kind, Seconds: seconds})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("pattern %q has no segments", pattern)
	}
	return segments, nil
}

// Synthesize renders segments as 16-bit mono PCM. Tones are sine waves
// at freq Hz peaking at gainDB relative to full scale. A rise ramps from
// a tenth of that peak up to the full peak across the segment.
func Synthesize(segments []SynthSegment, sampleRate int, freq, gainDB float64) []int16 {
	peak := math.Pow(10, gainDB/20)
	if peak > 1 {
		peak = 1
	}

	total := 0
	for _, seg := range segments {
		total += int(seg.Seconds * float64(sampleRate))
	}

	out := make([]int16, 0, total)
	phase := 0.0
	step := 2 * math.Pi * freq / float64(sampleRate)
	for _, seg := range segments {
		n := int(seg.Seconds * float64(sampleRate))
		for i := 0; i < n; i++ {
			var v float64
			switch seg.Kind {
			case SynthTone:
				v = peak * math.Sin(phase)
			case SynthRise:
				amp := peak * (0.1 + 0.9*float64(i)/float64(n))
				v = amp * math.Sin(phase)
			}
			phase += step
			out = append(out, int16(v*32767))
		}
	}
	return out
}
