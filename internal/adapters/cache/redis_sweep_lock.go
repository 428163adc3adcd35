package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSweepLock serializes the login-code cleanup sweep across worker
// replicas with a plain SET NX lease.
type RedisSweepLock struct {
	client *redis.Client
}

func NewRedisSweepLock(client *redis.Client) *RedisSweepLock {
	return &RedisSweepLock{client: client}
}

func (l *RedisSweepLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, "auth:lock:"+name, "1", ttl).Result()
}

func (l *RedisSweepLock) Release(ctx context.Context, name string) error {
	return l.client.Del(ctx, "auth:lock:"+name).Err()
}
