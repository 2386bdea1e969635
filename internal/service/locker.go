package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker is the reminder sweep's non-overlap guard. Acquire is
// non-blocking: false means another sweep holds the lock and the caller
// should skip, not queue.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Release must only delete the key when it still holds this acquirer's
// token. If the TTL expired and another sweep took the lock, an
// unconditional DEL would release that sweep's lock out from under it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client redis.UniversalClient

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisLocker returns a Locker backed by redis SETNX with a TTL, so a
// crashed sweep cannot wedge the lock forever. Each acquisition stores a
// unique token; release is check-and-delete against that token.
func NewRedisLocker(client redis.UniversalClient) Locker {
	return &redisLocker{
		client: client,
		tokens: make(map[string]string),
	}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !acquired {
		return false, err
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()

	return true, nil
}

func (l *redisLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, held := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !held {
		return nil
	}

	return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}
