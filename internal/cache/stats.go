// Package cache keeps computed statistics in Redis so repeated reads skip the
// history walk.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rewired-gh/lottosmart/internal/models"
)

// DefaultStatsTTL is used when NewStatsCache gets a non-positive TTL.
const DefaultStatsTTL = 10 * time.Minute

const keyPrefix = "lottosmart:stats:"

// StatsCache reads and writes per-game statistics.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache wraps an existing client.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	return &StatsCache{client: client, ttl: ttl}
}

// Connect parses a redis:// URL, pings the server and returns a cache on it.
func Connect(ctx context.Context, url string, ttl time.Duration) (*StatsCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewStatsCache(client, ttl), nil
}

func statsKey(game string) string {
	return keyPrefix + game
}

// Get returns the cached statistics of game. A miss is (nil, nil).
func (c *StatsCache) Get(ctx context.Context, game string) (*models.Statistics, error) {
	data, err := c.client.Get(ctx, statsKey(game)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached stats: %w", err)
	}
	var stats models.Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decoding cached stats: %w", err)
	}
	return &stats, nil
}

// Set stores stats under its game with the cache TTL.
func (c *StatsCache) Set(ctx context.Context, stats *models.Statistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	return c.client.Set(ctx, statsKey(stats.Game), data, c.ttl).Err()
}

// Invalidate drops the cached statistics of game.
func (c *StatsCache) Invalidate(ctx context.Context, game string) error {
	return c.client.Del(ctx, statsKey(game)).Err()
}

// Close closes the underlying client.
func (c *StatsCache) Close() error {
	return c.client.Close()
}
