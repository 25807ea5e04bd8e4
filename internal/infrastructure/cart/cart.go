package cart

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore clears the session cart kept by the storefront in Redis.
type RedisStore struct {
	client    *redis.Client
	keyFormat string
}

// NewRedisStore expects keyFormat to contain a single %s for the session ID.
func NewRedisStore(client *redis.Client, keyFormat string) *RedisStore {
	return &RedisStore{client: client, keyFormat: keyFormat}
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.client.Del(ctx, fmt.Sprintf(s.keyFormat, sessionID)).Err(); err != nil {
		return fmt.Errorf("clear cart for session %s: %w", sessionID, err)
	}
	return nil
}

// Noop is used when carts are not held by this service.
type Noop struct{}

func (Noop) Clear(context.Context, string) error { return nil }
