package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBridge shares challenge responses through Redis so the worker and
// any number of API replicas see the same tokens.
type RedisBridge struct {
	client *redis.Client
}

// NewRedisBridge connects to Redis at the given URL and verifies the
// connection with a ping.
func NewRedisBridge(ctx context.Context, redisURL string) (*RedisBridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisBridge{client: client}, nil
}

func (b *RedisBridge) Publish(ctx context.Context, token, keyAuth string, ttl time.Duration) error {
	if err := b.client.Set(ctx, keyPrefix+token, keyAuth, ttl).Err(); err != nil {
		return fmt.Errorf("publish challenge: %w", err)
	}
	return nil
}

func (b *RedisBridge) Resolve(ctx context.Context, token string) (string, error) {
	val, err := b.client.Get(ctx, keyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve challenge: %w", err)
	}
	return val, nil
}

func (b *RedisBridge) Discard(ctx context.Context, token string) error {
	if err := b.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("discard challenge: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
