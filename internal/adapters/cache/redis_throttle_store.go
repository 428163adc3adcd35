package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSendThrottleStore counts one-time-code sends per key in Redis.
type RedisSendThrottleStore struct {
	client *redis.Client
}

func NewRedisSendThrottleStore(client *redis.Client) *RedisSendThrottleStore {
	return &RedisSendThrottleStore{client: client}
}

// Allow increments the window counter and reports whether the send is
// still within the threshold. The expiry is only set on the first hit so
// the window does not slide forward with every attempt.
func (s *RedisSendThrottleStore) Allow(ctx context.Context, key string, threshold int, window time.Duration) (bool, error) {
	redisKey := "auth:send:" + key
	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		_ = s.client.Expire(ctx, redisKey, window).Err()
	}
	return count <= int64(threshold), nil
}
