package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/surplus-backend/pkg/instance"
	pkgredis "github.com/angelmondragon/surplus-backend/pkg/redis"
)

// A crashed holder blocks later cycles for at most this long.
const defaultLockTTL = 50 * time.Minute

// Unlock gives a held lock back.
type Unlock func(ctx context.Context) error

// Locker hands out exclusive cycles across replicas. TryLock returns a nil
// Unlock when another replica holds the lock.
type Locker interface {
	TryLock(ctx context.Context) (Unlock, error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLocker stores a per-attempt token under key. Unlock only deletes the
// key while it still carries that token, so a holder whose lease expired
// cannot free a lock taken over by someone else.
type RedisLocker struct {
	store lockStore
	key   string
	ttl   time.Duration
}

func NewRedisLocker(store lockStore, key string, ttl time.Duration) (*RedisLocker, error) {
	switch {
	case store == nil:
		return nil, errors.New("cron lock: redis store required")
	case key == "":
		return nil, errors.New("cron lock: key required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context) (Unlock, error) {
	token := fmt.Sprintf("%s/%s", instance.GetID(), uuid.NewString())
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("cron lock %s: %w", l.key, err)
	}
	if !won {
		return nil, nil
	}
	return func(ctx context.Context) error { return l.unlock(ctx, token) }, nil
}

func (l *RedisLocker) unlock(ctx context.Context, token string) error {
	current, err := l.store.Get(ctx, l.key)
	switch {
	case pkgredis.IsNil(err):
		return nil
	case err != nil:
		return fmt.Errorf("cron lock %s: read holder: %w", l.key, err)
	case current != token:
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("cron lock %s: delete: %w", l.key, err)
	}
	return nil
}
