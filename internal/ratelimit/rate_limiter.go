// Package ratelimit throttles requests per client with a Redis sliding
// window.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Enabled        bool
	WindowDuration time.Duration
	Requests       int
	KeyPrefix      string
}

type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

type RateLimiter struct {
	client redis.Scripter
	config Config
	now    func() time.Time
}

func NewRateLimiter(client redis.Scripter, config Config) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "flighter:ratelimit"
	}
	return &RateLimiter{
		client: client,
		config: config,
		now:    time.Now,
	}
}

// slidingWindow trims entries older than the window, then admits the
// request if fewer than limit remain. Returns {count, remaining}.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)
	if current >= limit then
		redis.call('PEXPIRE', key, window_ms)
		return {current + 1, 0}
	end

	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window_ms)
	return {current + 1, limit - current - 1}
`)

// Allow records one request from client in the scope bucket.
func (r *RateLimiter) Allow(ctx context.Context, scope, client string) (*Result, error) {
	now := r.now()
	reset := now.Add(r.config.WindowDuration).Unix()

	if !r.config.Enabled {
		return &Result{Allowed: true, Limit: r.config.Requests, Remaining: r.config.Requests, ResetTime: reset}, nil
	}

	key := fmt.Sprintf("%s:%s:%s", r.config.KeyPrefix, scope, client)
	windowStart := now.Add(-r.config.WindowDuration)
	member := strconv.FormatInt(now.UnixNano(), 10)

	values, err := slidingWindow.Run(ctx, r.client, []string{key},
		windowStart.UnixMilli(),
		now.UnixMilli(),
		r.config.Requests,
		r.config.WindowDuration.Milliseconds(),
		member,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis eval failed: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected redis response: %v", values)
	}

	return &Result{
		Allowed:   int(values[0]) <= r.config.Requests,
		Limit:     r.config.Requests,
		Remaining: int(values[1]),
		ResetTime: reset,
	}, nil
}
