package config

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis instance named by REDIS_ADDR,
// or REDIS_HOST/REDIS_PORT when no full address is given, with an
// optional REDIS_PASSWORD and REDIS_DB.  Redis backs the rebalance
// locks, the signup throttle and the catalogue cache; all three
// degrade without it, so a failed ping returns nil and the server
// starts anyway.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = getenv("REDIS_HOST", "localhost") + ":" + getenv("REDIS_PORT", "6379")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
