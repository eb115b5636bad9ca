package calibration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "calibration:device:"

// RedisStore keeps profiles in redis so every instance sees the same
// calibration state.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redis and verifies the connection.
// A ttl of zero keeps profiles forever.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("component", "calibration").Msg("Connected to Redis profile store")
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, deviceID string) (*Profile, error) {
	data, err := s.client.Get(ctx, keyPrefix+deviceID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}

func (s *RedisStore) Put(ctx context.Context, profile *Profile) error {
	if profile == nil || profile.DeviceID == "" {
		return fmt.Errorf("profile requires a device id")
	}
	profile.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+profile.DeviceID, data, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, deviceID string) error {
	return s.client.Del(ctx, keyPrefix+deviceID).Err()
}

func (s *RedisStore) Ping() error {
	return s.client.Ping(context.Background()).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
