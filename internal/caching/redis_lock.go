package caching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotHeld = errors.New("lock not held")

// Only delete the key if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Only extend the lease if it still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a single-key lease lock. While held, the lease is extended
// every ttl/3 so long runs keep it. A holder that dies stops refreshing and
// the lease expires after ttl.
type RedisLocker struct {
	client redis.UniversalClient
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	refreshCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go l.keepAlive(refreshCtx, key, token, ttl, done)

	var once sync.Once
	release := func(ctx context.Context) error {
		once.Do(func() {
			stop()
			<-done
		})
		n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("unlock %s: %w", key, err)
		}
		if n == 0 {
			return fmt.Errorf("unlock %s: %w", key, ErrLockNotHeld)
		}
		return nil
	}
	return release, true, nil
}

// keepAlive extends the lease until ctx is cancelled or the key no longer
// holds token. Failed refreshes are retried on the next tick.
func (l *RedisLocker) keepAlive(ctx context.Context, key, token string, ttl time.Duration, done chan<- struct{}) {
	defer close(done)

	interval := ttl / 3
	if interval < time.Millisecond {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := refreshScript.Run(ctx, l.client, []string{key}, token, ttl.Milliseconds()).Int()
			if err == nil && n == 0 {
				return
			}
		}
	}
}
