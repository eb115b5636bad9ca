package audio

import (
	"fmt"
	"math"
)

// silenceFloor keeps log10 defined for all-zero buffers. An RMS at the
// floor maps to -200 dBFS.
const silenceFloor = 1e-10

// DecodeLinear16 converts linear PCM bytes (16-bit signed integers,
// little-endian) to samples.
func DecodeLinear16(data []byte) ([]int16, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty PCM data")
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples)")
	}

	samples := make([]int16, len(data)/2)
	for i := 0; i < len(samples); i++ {
		// Little-endian 16-bit signed integer
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples, nil
}

// EncodeLinear16 converts samples to linear PCM bytes (little-endian).
func EncodeLinear16(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		data[i*2] = byte(sample)
		data[i*2+1] = byte(sample >> 8)
	}
	return data
}

// ToFloat64 scales 16-bit samples into the [-1, 1) float range the
// analyzers operate on.
func ToFloat64(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, sample := range samples {
		out[i] = float64(sample) / 32768.0
	}
	return out
}

// ToInt16 converts float samples back to 16-bit PCM, clamping anything
// outside [-1, 1).
func ToInt16(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, sample := range samples {
		scaled := sample * 32768.0
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		out[i] = int16(scaled)
	}
	return out
}

// RMS calculates the root mean square of float samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += sample * sample
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// RMSInt16 calculates the root mean square of raw 16-bit samples.
// Useful for detecting audio levels and silence on the wire format.
func RMSInt16(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// MeanSquare calculates the mean squared energy of float samples.
func MeanSquare(samples []float64) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += sample * sample
	}
	return sum / float64(len(samples))
}

// DBFS converts an RMS level in [0, 1] to decibels relative to full scale.
// Levels at or below the silence floor map to -200 dB.
func DBFS(rms float64) float64 {
	return 20 * math.Log10(math.Max(rms, silenceFloor))
}

// DurationMs returns the duration of a sample count at the given rate.
func DurationMs(sampleCount, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(sampleCount) / float64(sampleRate) * 1000.0
}
