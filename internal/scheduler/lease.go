package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease решает, какой экземпляр выполняет тик, когда их несколько.
type Lease interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// NoopLease — единственный экземпляр, аренда всегда своя.
type NoopLease struct{}

func (NoopLease) TryAcquire(context.Context) (bool, error) { return true, nil }
func (NoopLease) Release(context.Context) error            { return nil }

// Удаляет ключ, только если он всё ещё наш.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Продлевает ключ, только если он всё ещё наш.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLease — аренда на ttl через SET NX. Ключ не снимается после
// тика, а истекает сам: так за один интервал тик выполняет только
// один экземпляр. Владелец продлевает аренду на следующем тике.
type RedisLease struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

func NewRedisLease(client redis.UniversalClient, key string, ttl time.Duration) *RedisLease {
	return &RedisLease{client: client, key: key, ttl: ttl, token: uuid.NewString()}
}

func (l *RedisLease) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", l.key, err)
	}
	if ok {
		return true, nil
	}

	extended, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis extend %s: %w", l.key, err)
	}
	return extended == 1, nil
}

func (l *RedisLease) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", l.key, err)
	}
	return nil
}
