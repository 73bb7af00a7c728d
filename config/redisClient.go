package config

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis initializes the Redis client
func ConnectRedis(ctx context.Context, backend Backend) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     backend.RedisAddress,
		Password: backend.RedisPassword,
		DB:       backend.RedisDB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("Connected to Redis")
	return client, nil
}
