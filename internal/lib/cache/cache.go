// Package cache is a thin redis client wrapper shaped for container
// management: ping on start, close on pre-destroy.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/0xsj/go-loom/internal/lib/logger"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

type Cache struct {
	client *redis.Client
	logger logger.Logger
}

func New(config *Config, log logger.Logger) *Cache {
	if log == nil {
		log = logger.Discard()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &Cache{client: client, logger: log.WithComponent("cache")}
}

// Ping verifies the connection; used by the on-start hook.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return err
	}
	c.logger.Info("Cache connected")
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) Close() error {
	c.logger.Info("Cache closing")
	return c.client.Close()
}
