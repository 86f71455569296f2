package distlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLock implements Lock with SET NX plus a lease TTL. Each instance
// carries a random token so Release and Extend only act on a lock this
// instance took; both use Lua to keep the ownership check atomic.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
	lease  time.Duration
}

// NewRedisLock creates a Redis-backed lock under the outreach keyspace.
func NewRedisLock(client *redis.Client, name string, lease time.Duration) *RedisLock {
	b := make([]byte, 16)
	rand.Read(b)
	return &RedisLock{
		client: client,
		key:    "outreach:lock:" + name,
		token:  hex.EncodeToString(b),
		lease:  lease,
	}
}

func (l *RedisLock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.lease).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

func (l *RedisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Extend renews the lease mid-run. Long dispatch loops call this between
// batches so the lock outlives the initial TTL.
func (l *RedisLock) Extend(ctx context.Context, lease time.Duration) error {
	if err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, lease.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("extend %s: %w", l.key, err)
	}
	return nil
}
