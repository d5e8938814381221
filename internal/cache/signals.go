package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix prefixes the per-strategy last signal hashes
const KeyPrefix = "ats:last_signal:"

const atSuffix = "@"

// setIfNewer writes ticker -> action unless a newer signal is already stored
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1] .. '@')
if cur and tonumber(cur) > tonumber(ARGV[3]) then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2], ARGV[1] .. '@', ARGV[3])
if tonumber(ARGV[4]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[4])
end
return 1
`)

// SignalCache keeps the latest action per ticker of every strategy
type SignalCache interface {
	Get(ctx context.Context, strategyID int) (map[string]string, bool, error)
	Set(ctx context.Context, strategyID int, ticker, action string, at time.Time) error
	Drop(ctx context.Context, strategyID int) error
}

// RedisSignalCache stores one hash per strategy
type RedisSignalCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisSignalCache connects to the Redis URL and verifies the connection
func NewRedisSignalCache(ctx context.Context, url string, ttl time.Duration) (*RedisSignalCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisSignalCache{Client: client, TTL: ttl}, nil
}

// Key returns the hash key of a strategy
func Key(strategyID int) string {
	return KeyPrefix + strconv.Itoa(strategyID)
}

// Get returns the cached actions of a strategy; ok is false on a miss
func (c *RedisSignalCache) Get(ctx context.Context, strategyID int) (map[string]string, bool, error) {
	fields, err := c.Client.HGetAll(ctx, Key(strategyID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read last signals: %w", err)
	}

	out := make(map[string]string, len(fields)/2)
	for field, value := range fields {
		if strings.HasSuffix(field, atSuffix) {
			continue
		}
		out[field] = value
	}
	if len(out) == 0 {
		return nil, false, nil
	}
	return out, true, nil
}

// Set stores the action of a ticker unless a newer one is cached
func (c *RedisSignalCache) Set(ctx context.Context, strategyID int, ticker, action string, at time.Time) error {
	ticker = strings.ToUpper(ticker)
	action = strings.ToUpper(action)
	err := setIfNewer.Run(ctx, c.Client, []string{Key(strategyID)},
		ticker, action, at.UnixMilli(), c.TTL.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to cache last signal: %w", err)
	}
	return nil
}

// Drop forgets every cached action of a strategy
func (c *RedisSignalCache) Drop(ctx context.Context, strategyID int) error {
	if err := c.Client.Del(ctx, Key(strategyID)).Err(); err != nil {
		return fmt.Errorf("failed to drop last signals: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisSignalCache) Close() error {
	return c.Client.Close()
}

// Nop is a SignalCache that never hits; used when Redis is not configured
type Nop struct{}

func (Nop) Get(context.Context, int) (map[string]string, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, int, string, string, time.Time) error { return nil }

func (Nop) Drop(context.Context, int) error { return nil }
