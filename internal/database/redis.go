package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"witweb-studio/config"
)

const redisPingTimeout = 5 * time.Second

// RedisClient backs the finalize queue and the credits cache
var RedisClient *redis.Client

func ConnectRedis(cfg *config.Config) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisFullAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("ping %s: %w", cfg.RedisFullAddr(), err)
	}

	RedisClient = client
	return nil
}
