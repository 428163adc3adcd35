package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimbusboard/nimbusboard/internal/ports"
)

// RedisOAuthStateStore keeps authorize state (including the PKCE verifier)
// server-side between redirect and callback. Redis TTLs make states
// self-expiring; a replayed state simply reads as absent.
type RedisOAuthStateStore struct {
	client *redis.Client
}

func NewRedisOAuthStateStore(client *redis.Client) *RedisOAuthStateStore {
	return &RedisOAuthStateStore{client: client}
}

func (s *RedisOAuthStateStore) Put(ctx context.Context, state string, value ports.OAuthState, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, "auth:oauth_state:"+state, raw, ttl).Err()
}

func (s *RedisOAuthStateStore) Get(ctx context.Context, state string) (*ports.OAuthState, error) {
	raw, err := s.client.Get(ctx, "auth:oauth_state:"+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var value ports.OAuthState
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return &value, nil
}

func (s *RedisOAuthStateStore) Delete(ctx context.Context, state string) error {
	return s.client.Del(ctx, "auth:oauth_state:"+state).Err()
}
