package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotAcquired = errors.New("lock is held by another owner")

const unlockScript = `if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end`

// Locker acquires short-lived locks shared by every process using the same
// Redis instance.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration, retries int) (func(), error)
}

type RedisLocker struct {
	rdb      *redis.Client
	interval time.Duration
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, interval: 200 * time.Millisecond}
}

// TryLock sets key with a random owner token. It retries up to retries times
// and returns ErrNotAcquired when the key stays taken. The returned func only
// deletes the key if this caller still owns it.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration, retries int) (func(), error) {
	owner := uuid.NewString()
	for i := 0; i <= retries; i++ {
		ok, err := l.rdb.SetNX(ctx, key, owner, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				l.rdb.Eval(context.WithoutCancel(ctx), unlockScript, []string{key}, owner)
			}, nil
		}
		if i == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.interval):
		}
	}
	return nil, ErrNotAcquired
}
