package distlock

import (
	"context"
	"database/sql"
	"time"

	"github.com/ignite/whisperbox/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// KeyedLocker serializes work per key (for example one sender fingerprint)
// across processes. Locking is best-effort: if the backend errors or the
// lock cannot be obtained within the wait budget, the work runs unlocked.
type KeyedLocker struct {
	redis  *redis.Client
	db     *sql.DB
	prefix string
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

// NewKeyedLocker creates a locker. ttl bounds how long a crashed holder can
// keep the key; wait bounds how long a caller queues behind another holder.
func NewKeyedLocker(redisClient *redis.Client, db *sql.DB, prefix string, ttl, wait time.Duration) *KeyedLocker {
	return &KeyedLocker{
		redis:  redisClient,
		db:     db,
		prefix: prefix,
		ttl:    ttl,
		wait:   wait,
		poll:   25 * time.Millisecond,
	}
}

// Run executes fn while holding the lock for key.
func (k *KeyedLocker) Run(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if k == nil || (k.redis == nil && k.db == nil) {
		return fn(ctx)
	}

	lock := NewLock(k.redis, k.db, k.prefix+":"+key, k.ttl)
	deadline := time.Now().Add(k.wait)
	for {
		ok, err := lock.Acquire(ctx)
		if err != nil {
			logger.Warn("distlock: acquire failed, continuing unlocked", "prefix", k.prefix, "error", err)
			return fn(ctx)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			logger.Warn("distlock: wait budget exhausted, continuing unlocked", "prefix", k.prefix)
			return fn(ctx)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(k.poll):
		}
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			logger.Warn("distlock: release failed", "prefix", k.prefix, "error", err)
		}
	}()
	return fn(ctx)
}
