package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// ConnectRedis initializes a singleton Redis client based on environment variables.
// Returns the client (or nil) and an error if the connection ping failed. Redis is
// optional: token revocation and rate limiting degrade gracefully without it.
func ConnectRedis() (*redis.Client, error) {
	var err error
	redisOnce.Do(func() {
		cfg := LoadConfig()
		if cfg != nil && cfg.AppEnv == "test" {
			// Skip connecting Redis in test environment.
			return
		}

		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		pass := os.Getenv("REDIS_PASS")
		dbNum := 0
		if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
			if v, e := strconv.Atoi(dbStr); e == nil {
				dbNum = v
			}
		}

		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: pass,
			DB:       dbNum,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err = rdb.Ping(ctx).Err(); err != nil {
			redisClient = nil
			err = fmt.Errorf("redis ping failed: %w", err)
			return
		}

		redisClient = rdb
		log.Printf("connected to Redis at %s", addr)
	})
	return redisClient, err
}

// GetRedisClient returns the singleton Redis client, or nil when Redis is
// unavailable or was never connected.
func GetRedisClient() *redis.Client {
	return redisClient
}

// SetRedisClient overrides the singleton client. Intended for tests.
func SetRedisClient(c *redis.Client) {
	redisClient = c
}
