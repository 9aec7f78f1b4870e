package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	applog "hopper/internal/log"
)

// Redis keeps values in a Redis server so visitor state survives restarts.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis wraps an existing client. Keys are stored as "<prefix>:<key>".
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix != "" {
		prefix += ":"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// DialRedis parses url, connects and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) Read(ctx context.Context, key string) (string, bool) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			applog.Error(ctx, "storage read failed", "key", key, "error", err)
		}
		return "", false
	}
	return value, value != ""
}

func (r *Redis) Write(ctx context.Context, key, value string) {
	if value == "" {
		r.Delete(ctx, key)
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		applog.Error(ctx, "storage write failed", "key", key, "error", err)
	}
}

func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		applog.Error(ctx, "storage delete failed", "key", key, "error", err)
	}
}
