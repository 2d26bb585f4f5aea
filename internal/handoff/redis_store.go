package handoff

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pf-nexus/papermark/internal/port"
)

const keyPrefix = "papermark:handoff:"

// RedisStore records consumed handoff ids in Redis, shared by every replica.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Consume sets the id key only if it does not exist yet. The key expires with
// the token so the keyspace stays bounded.
func (s *RedisStore) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := s.client.SetNX(ctx, keyPrefix+id, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("handoff.Consume: %w", err)
	}
	return ok, nil
}

// Ping checks Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ port.HandoffStore = (*RedisStore)(nil)
