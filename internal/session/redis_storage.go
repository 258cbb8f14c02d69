package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL bounds how long a slot survives without being rewritten.
const DefaultRedisTTL = 12 * time.Hour

const redisOpTimeout = 3 * time.Second

// RedisStorage keeps slots in Redis under a key prefix. Every Save refreshes
// the TTL.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage wraps an existing client. A ttl of zero uses
// DefaultRedisTTL; a negative ttl disables expiry.
func NewRedisStorage(client *redis.Client, prefix string, ttl time.Duration) *RedisStorage {
	if ttl == 0 {
		ttl = DefaultRedisTTL
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStorage{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStorage) redisKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *RedisStorage) Load(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *RedisStorage) Save(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.redisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStorage) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
