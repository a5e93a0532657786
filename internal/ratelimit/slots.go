// Package ratelimit bounds how many external model calls one user can have
// in flight, shared across every server instance through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var acquireScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current < tonumber(ARGV[1]) then
	redis.call('INCR', KEYS[1])
	redis.call('EXPIRE', KEYS[1], ARGV[2])
	return 1
end
return 0
`)

var releaseScript = redis.NewScript(`
local n = redis.call('DECR', KEYS[1])
if n <= 0 then
	redis.call('DEL', KEYS[1])
end
return n
`)

type SlotLimiter struct {
	client redis.Cmdable
	max    int
	// ttl bounds how long a slot leaked by a crashed instance stays taken.
	ttl time.Duration
	log *slog.Logger
}

func NewSlotLimiter(client redis.Cmdable, maxPerUser int, ttl time.Duration, log *slog.Logger) *SlotLimiter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SlotLimiter{client: client, max: maxPerUser, ttl: ttl, log: log}
}

func key(userID uint) string {
	return fmt.Sprintf("news_guard:external_slots:%d", userID)
}

// Acquire takes one slot for userID. A non-positive limit disables limiting.
func (l *SlotLimiter) Acquire(ctx context.Context, userID uint) (bool, func(), error) {
	if l.max <= 0 {
		return true, func() {}, nil
	}
	k := key(userID)
	res, err := acquireScript.Run(ctx, l.client, []string{k}, l.max, int(l.ttl.Seconds())).Int64()
	if err != nil {
		return false, nil, fmt.Errorf("acquire slot: %w", err)
	}
	if res != 1 {
		if n, err := l.inFlight(ctx, userID); err == nil {
			l.log.Info("external_slot_denied", "user_id", userID, "in_flight", n, "max", l.max)
		}
		return false, nil, nil
	}
	release := func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{k}).Err(); err != nil {
			l.log.Warn("release_slot_failed", "user_id", userID, "error", err)
		}
	}
	return true, release, nil
}

// inFlight reports the number of slots userID currently holds.
func (l *SlotLimiter) inFlight(ctx context.Context, userID uint) (int, error) {
	n, err := l.client.Get(ctx, key(userID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
