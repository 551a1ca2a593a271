package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"donorhub/pkg/platform/sentinel"
)

// slidingWindow trims, counts and conditionally records in one round trip.
// Returns {allowed, count, oldest_ms}; oldest_ms is absent for an empty set.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  count = count + 1
  allowed = 1
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {allowed, count, tonumber(oldest[2])}
`)

// RedisStore implements Store on Redis sorted sets so limits hold across
// replicas.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "donorhub:ratelimit:",
		now:    time.Now,
	}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := s.now()
	reply, err := slidingWindow.Run(ctx, s.client, []string{s.prefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit %q: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	if len(reply) < 2 {
		return nil, fmt.Errorf("rate limit %q: unexpected reply %v", key, reply)
	}

	resetAt := now.Add(window)
	if len(reply) > 2 {
		resetAt = time.UnixMilli(reply[2]).Add(window)
	}
	res := &Result{
		Allowed: reply[0] == 1,
		Limit:   limit,
		ResetAt: resetAt,
	}
	if res.Allowed {
		res.Remaining = limit - int(reply[1])
	}
	return res, nil
}
