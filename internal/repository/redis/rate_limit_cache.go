package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/client"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/ratelimit"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

const (
	rateWindowPrefix = "rate_window"
	rateStatsPrefix  = "rate_stats"
)

// fixedWindowScript opens a new window when none exists or the current one
// is older than the window, otherwise increments it. The hash expires after
// two windows, which stands in for the in-process sweep.
var fixedWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local start = tonumber(redis.call('HGET', key, 'start'))
if (not start) or (now - start > window) then
    redis.call('HSET', key, 'start', now, 'count', 1)
    redis.call('PEXPIRE', key, window * 2)
    return {now, 1}
end

local count = redis.call('HINCRBY', key, 'count', 1)
return {start, count}
`)

// RateWindowCache keeps fixed windows in Redis so every replica shares the
// same counters.
type RateWindowCache struct {
	client *client.RedisClient
}

func NewRateWindowCache(client *client.RedisClient) *RateWindowCache {
	return &RateWindowCache{client: client}
}

var _ ratelimit.Store = (*RateWindowCache)(nil)

func (c *RateWindowCache) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (ratelimit.Window, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	res, err := fixedWindowScript.Run(ctx, c.client.Client,
		[]string{c.client.Key(rateWindowPrefix, key)},
		now.UnixMilli(), window.Milliseconds()).Int64Slice()
	if err != nil {
		util.Error("Failed to execute fixed window rate limit",
			zap.String("key", key),
			zap.Duration("window", window),
			zap.Error(err))
		return ratelimit.Window{}, fmt.Errorf("failed to execute fixed window rate limit: %w", err)
	}
	if len(res) != 2 {
		return ratelimit.Window{}, fmt.Errorf("unexpected result format from fixed window script")
	}

	return ratelimit.Window{
		Start: time.UnixMilli(res[0]),
		Count: int(res[1]),
	}, nil
}

// RateLimitStats counts limiter decisions in two Redis hashes: one for the
// totals and one keyed by route.
type RateLimitStats struct {
	client *client.RedisClient
}

func NewRateLimitStats(client *client.RedisClient) *RateLimitStats {
	return &RateLimitStats{client: client}
}

var _ ratelimit.StatsStore = (*RateLimitStats)(nil)

func (s *RateLimitStats) Record(ctx context.Context, ev ratelimit.StatsEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	outcome := "allowed"
	if !ev.Allowed {
		outcome = "denied"
	}

	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, s.client.Key(rateStatsPrefix, "total"), outcome, 1)
	pipe.HIncrBy(ctx, s.client.Key(rateStatsPrefix, "routes"), ratelimit.RouteKey(ev.Method, ev.Route)+"|"+outcome, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record rate limit stats: %w", err)
	}
	return nil
}

func (s *RateLimitStats) Snapshot(ctx context.Context) (ratelimit.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipe := s.client.Pipeline()
	totalCmd := pipe.HGetAll(ctx, s.client.Key(rateStatsPrefix, "total"))
	routesCmd := pipe.HGetAll(ctx, s.client.Key(rateStatsPrefix, "routes"))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		util.Warn("Failed to read rate limit stats", zap.Error(err))
		return ratelimit.Snapshot{}, fmt.Errorf("failed to read rate limit stats: %w", err)
	}

	snap := ratelimit.Snapshot{ByRoute: make(map[string]ratelimit.Counters)}
	total := totalCmd.Val()
	snap.Total.Allowed = parseCount(total["allowed"])
	snap.Total.Denied = parseCount(total["denied"])

	for field, raw := range routesCmd.Val() {
		idx := strings.LastIndex(field, "|")
		if idx < 0 {
			continue
		}
		route, outcome := field[:idx], field[idx+1:]
		c := snap.ByRoute[route]
		switch outcome {
		case "allowed":
			c.Allowed = parseCount(raw)
		case "denied":
			c.Denied = parseCount(raw)
		}
		snap.ByRoute[route] = c
	}
	return snap, nil
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
