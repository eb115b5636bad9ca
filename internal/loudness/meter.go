// Package loudness measures integrated loudness and applies the
// pre-analysis gain stages: device calibration first, then a pull
// toward the reference level.
package loudness

import (
	"math"
)

// Gated integrated loudness in the shape of BS.1770: 400ms blocks with
// 75% overlap, an absolute gate at -70 LUFS, then a relative gate 10 LU
// under the first-pass mean. The K-weighting pre-filter is omitted; for
// mono speech the unweighted estimate tracks close enough to steer a
// gain decision.
const (
	blockMs          = 400
	absoluteGateLUFS = -70.0
	relativeGateLU   = 10.0
	energyFloor      = 1e-10
)

// IntegratedLUFS estimates the integrated loudness of a mono buffer.
// Digital silence reports roughly -100 LUFS.
func IntegratedLUFS(samples []float64, sampleRate int) float64 {
	blockLen := sampleRate * blockMs / 1000
	if blockLen <= 0 || len(samples) < blockLen {
		// Captures shorter than one block are judged whole.
		return blockLoudness(meanSquare(samples))
	}
	hop := blockLen / 4

	var energies, levels []float64
	for start := 0; start+blockLen <= len(samples); start += hop {
		e := meanSquare(samples[start : start+blockLen])
		l := blockLoudness(e)
		if l >= absoluteGateLUFS {
			energies = append(energies, e)
			levels = append(levels, l)
		}
	}
	if len(energies) == 0 {
		return blockLoudness(0)
	}

	firstPass := blockLoudness(mean(energies))
	relativeGate := firstPass - relativeGateLU

	var gated []float64
	for i, e := range energies {
		if levels[i] >= relativeGate {
			gated = append(gated, e)
		}
	}
	if len(gated) == 0 {
		return firstPass
	}
	return blockLoudness(mean(gated))
}

func blockLoudness(meanSquare float64) float64 {
	if meanSquare < energyFloor {
		meanSquare = energyFloor
	}
	return -0.691 + 10*math.Log10(meanSquare)
}

func meanSquare(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return sum / float64(len(samples))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
