// Package calibration stores per-device microphone profiles used by the
// loudness normalizer. Profiles are written by the device enrollment
// flow and read once per analysis; a missing profile is a normal case,
// not an error the engine surfaces.
package calibration

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no profile exists for a device.
var ErrNotFound = errors.New("calibration profile not found")

// Profile describes one capture device's measured characteristics.
// NoiseFloor and GainAdjustment are in dB, ReferenceLevel in LUFS.
type Profile struct {
	DeviceID       string    `json:"device_id"`
	NoiseFloor     float64   `json:"noise_floor"`
	ReferenceLevel float64   `json:"reference_level"`
	GainAdjustment float64   `json:"gain_adjustment"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store is the profile storage interface. The redis implementation
// backs multi-instance deployments; the memory implementation backs
// single-instance and test runs.
type Store interface {
	Get(ctx context.Context, deviceID string) (*Profile, error)
	Put(ctx context.Context, profile *Profile) error
	Delete(ctx context.Context, deviceID string) error
	Ping() error
	Close() error
}
