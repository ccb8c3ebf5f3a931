package sensorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulsar-rules/pulsar/internal/domain"
	"github.com/redis/go-redis/v9"
)

const redisSensorHashKey = "pulsar:sensors"

// RedisStore is an alternative Pro-tier SensorStore for deployments that
// already run Redis as their sensor cache, grounded on the teacher's
// internal/cache Redis adapter. All readings live in one hash keyed by
// sensor name, so GetMany/SetMany are single round trips.
type RedisStore struct {
	client *redis.Client
}

type redisEntry struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRedisStore opens a Redis-backed sensor store.
func NewRedisStore(cfg domain.StoreConfig) (*RedisStore, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("sensorstore: failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// GetMany reads the requested sensor names from the shared hash in one
// HMGet round trip.
func (s *RedisStore) GetMany(ctx context.Context, names []string) (map[string]domain.SensorReading, error) {
	out := make(map[string]domain.SensorReading, len(names))
	if len(names) == 0 {
		return out, nil
	}

	vals, err := s.client.HMGet(ctx, redisSensorHashKey, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("sensorstore: hmget: %w", err)
	}

	for i, raw := range vals {
		str, ok := raw.(string)
		if !ok || str == "" {
			continue
		}
		var entry redisEntry
		if err := json.Unmarshal([]byte(str), &entry); err != nil {
			return nil, fmt.Errorf("sensorstore: decode %q: %w", names[i], err)
		}
		out[names[i]] = domain.SensorReading{Value: entry.Value, Timestamp: entry.Timestamp}
	}
	return out, nil
}

// SetMany writes every (value, timestamp=now) pair into the shared hash
// with a single HSet call.
func (s *RedisStore) SetMany(ctx context.Context, values map[string]float64) error {
	if len(values) == 0 {
		return nil
	}

	now := time.Now().UTC()
	fields := make(map[string]any, len(values))
	for name, value := range values {
		data, err := json.Marshal(redisEntry{Value: value, Timestamp: now})
		if err != nil {
			return fmt.Errorf("sensorstore: encode %q: %w", name, err)
		}
		fields[name] = data
	}

	return s.client.HSet(ctx, redisSensorHashKey, fields).Err()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
