package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

// Locker hands out short-lived distributed locks backed by redis.
type Locker struct {
	client   *RedisClient
	ttl      time.Duration
	attempts int
	backoff  time.Duration
}

func NewLocker(client *RedisClient) *Locker {
	return &Locker{
		client:   client,
		ttl:      5 * time.Second,
		attempts: 3,
		backoff:  100 * time.Millisecond,
	}
}

// Lock acquires key and returns the function that releases it.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	value := uuid.New().String()

	for i := 0; i < l.attempts; i++ {
		ok, err := l.client.AcquireLock(ctx, key, value, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// the caller's context may already be done
				_ = l.client.ReleaseLock(context.Background(), key, value)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.backoff):
		}
	}

	return nil, ErrLockNotAcquired
}
