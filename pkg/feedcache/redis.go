package feedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-feedcache/pkg/feed"
)

// RedisConfig holds the configuration for the Redis snapshot store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Key is the fixed key the single snapshot lives under.
	Key string
}

// redisSnapshot is the JSON rendering of the snapshot stored under the key.
type redisSnapshot struct {
	Timestamp time.Time     `json:"timestamp"`
	Images    []ImageRecord `json:"images"`
}

// RedisStore implements Store directly on Redis. The whole snapshot is one
// JSON value, so SET, GET and DEL are each atomic on their own and no serial
// lane or transaction is needed: every mutation is a single total replace.
// Entries carry no TTL; the cache holds its snapshot until replaced or
// deleted.
type RedisStore struct {
	redisClient *redis.Client
	key         string
	logger      zerolog.Logger
}

// NewRedisStore creates and connects a RedisStore. It pings the server to
// ensure connectivity before returning.
func NewRedisStore(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	if cfg.Key == "" {
		return nil, errors.New("redis snapshot key is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis for feed cache.")

	return &RedisStore{
		redisClient: rdb,
		key:         cfg.Key,
		logger:      logger.With().Str("component", "RedisStore").Logger(),
	}, nil
}

// Retrieve fetches and decodes the snapshot. A missing key, an empty image
// list, or a snapshot with no decodable images all fold to empty.
func (s *RedisStore) Retrieve(ctx context.Context) (*CachedFeed, error) {
	data, err := s.redisClient.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, accessError("redis get", err)
	}

	var snap redisSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, accessError("unmarshal snapshot", err)
	}
	if len(snap.Images) == 0 {
		return nil, nil
	}

	f := make(feed.Feed, 0, len(snap.Images))
	for _, img := range snap.Images {
		decoded, decodeErr := decodeImage(img)
		if decodeErr != nil {
			s.logger.Warn().Err(decodeErr).Str("image_id", img.ID).Msg("Dropping undecodable image record.")
			continue
		}
		f = append(f, decoded)
	}
	if len(f) == 0 {
		return nil, nil
	}
	return &CachedFeed{Feed: f, Timestamp: snap.Timestamp}, nil
}

// Insert replaces the snapshot with a single SET.
func (s *RedisStore) Insert(ctx context.Context, f feed.Feed, timestamp time.Time) error {
	rec := encodeRecord(f, timestamp)
	jsonData, err := json.Marshal(redisSnapshot{Timestamp: rec.Timestamp, Images: rec.Images})
	if err != nil {
		return accessError("marshal snapshot", err)
	}
	if err := s.redisClient.Set(ctx, s.key, jsonData, 0).Err(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set snapshot in Redis.")
		return accessError("redis set", err)
	}
	return nil
}

// Delete removes the key. Deleting an absent key still succeeds.
func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.redisClient.Del(ctx, s.key).Err(); err != nil {
		return accessError("redis del", err)
	}
	return nil
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	if s.redisClient != nil {
		s.logger.Info().Msg("Closing Redis client connection...")
		return s.redisClient.Close()
	}
	return nil
}
