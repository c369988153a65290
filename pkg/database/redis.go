package database

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"

	"taskboard/configs"
)

// ConnectRedis membuka koneksi Redis untuk cache task.
// Mengembalikan nil jika RedisAddr kosong (cache dimatikan).
func ConnectRedis(ctx context.Context, cfg configs.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Could not connect to Redis: %v", err)
	}
	return client
}
