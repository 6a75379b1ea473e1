package escalation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLock is a LeaderLock backed by a Redis `SET NX PX` advisory lock,
// letting multiple deployment replicas agree on a single active sweeper.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLock builds a RedisLock. key should be stable across replicas
// (e.g. "grievance:escalation-sweep"); ttl bounds how long a crashed holder
// can block the next sweep.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{client: client, key: key, ttl: ttl}
}

// TryAcquire attempts the non-blocking SET NX PX; ok is false (no error) if
// another instance currently holds the lock.
func (l *RedisLock) TryAcquire(ctx context.Context) (release func(), ok bool, err error) {
	token := uuid.New().String()
	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}
	release = func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Best-effort: only clear the key if we still own it (compare-and-delete
		// via Lua would be stricter, but the TTL already bounds staleness and a
		// lost release simply means the next sweep waits out the TTL).
		if v, _ := l.client.Get(releaseCtx, l.key).Result(); v == token {
			l.client.Del(releaseCtx, l.key)
		}
	}
	return release, true, nil
}
