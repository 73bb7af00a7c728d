package identity

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry stores revoked session IDs as expiring keys.
type RedisRegistry struct {
	client *redis.Client
	prefix string
}

func NewRedisRegistry(client *redis.Client, prefix string) *RedisRegistry {
	return &RedisRegistry{client: client, prefix: prefix}
}

func (r *RedisRegistry) key(uid string) string {
	return r.prefix + ":" + uid
}

func (r *RedisRegistry) Revoke(ctx context.Context, uid string, ttl time.Duration) error {
	if ttl < time.Second {
		ttl = time.Second
	}
	return r.client.Set(ctx, r.key(uid), 1, ttl).Err()
}

func (r *RedisRegistry) IsRevoked(ctx context.Context, uid string) (bool, error) {
	count, err := r.client.Exists(ctx, r.key(uid)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
