package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "checkout:session:"

// RedisSessionStore keeps serialized checkout sessions with a sliding TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Load returns the stored session, or nil when there is none.
func (s *RedisSessionStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.GetEx(ctx, sessionKeyPrefix+key, s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return data, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, sessionKeyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
