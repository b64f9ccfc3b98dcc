//go:build !js || !wasm

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares one session between gateway replicas.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	// ttl caps how long an entry outlives its last write; zero keeps it
	// until cleared.
	ttl time.Duration
}

// NewRedisStore stores the session under key.
func NewRedisStore(client redis.UniversalClient, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context) (*Credential, *Principal, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read session from redis: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, nil, fmt.Errorf("invalid session in redis: %w", err)
	}
	return s.Credential, s.Principal, nil
}

func (r *RedisStore) Set(ctx context.Context, cred *Credential, principal *Principal) error {
	data, err := json.Marshal(Session{Credential: cred, Principal: principal, SavedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Name() string {
	return fmt.Sprintf("RedisStore(%s)", r.key)
}
