package calibration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type memoryEntry struct {
	profile   Profile
	expiresAt time.Time
}

// MemoryStore keeps profiles in an in-memory map with periodic cleanup.
// Used as a fallback when no redis URL is configured.
type MemoryStore struct {
	data   map[string]memoryEntry
	ttl    time.Duration
	mu     sync.RWMutex
	stopCh chan struct{}
}

// NewMemoryStore creates an in-memory profile store. A ttl of zero keeps
// profiles for the life of the process.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		data:   make(map[string]memoryEntry),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}

	if ttl > 0 {
		go s.cleanupLoop(time.Minute)
	}

	log.Info().Str("component", "calibration").Dur("ttl", ttl).Msg("In-memory profile store initialized")
	return s
}

func (s *MemoryStore) Get(_ context.Context, deviceID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && entry.expiresAt.Before(time.Now()) {
		return nil, ErrNotFound
	}

	profile := entry.profile
	return &profile, nil
}

func (s *MemoryStore) Put(_ context.Context, profile *Profile) error {
	if profile == nil || profile.DeviceID == "" {
		return fmt.Errorf("profile requires a device id")
	}
	profile.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{profile: *profile}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}
	s.data[profile.DeviceID] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, deviceID)
	return nil
}

func (s *MemoryStore) Ping() error {
	return nil
}

func (s *MemoryStore) Close() error {
	close(s.stopCh)
	return nil
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	expired := 0
	for key, entry := range s.data {
		if !entry.expiresAt.IsZero() && entry.expiresAt.Before(now) {
			delete(s.data, key)
			expired++
		}
	}

	if expired > 0 {
		log.Debug().Str("component", "calibration").Int("expired_profiles", expired).Msg("Profile cleanup completed")
	}
}
