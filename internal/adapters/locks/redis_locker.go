package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/caldermed/chartsync/internal/domain/providers"
	redisclient "github.com/caldermed/chartsync/internal/infrastructure/clients/redis"
)

const lockRetryInterval = 50 * time.Millisecond

// releaseScript deletes the lock only if the caller still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements EntityLocker across process boundaries using
// SET NX PX with a per-acquisition token. The TTL bounds how long a crashed
// holder can block others.
type RedisLocker struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedisLocker creates a new redis-backed entity locker
func NewRedisLocker(client *redisclient.Client, ttl time.Duration) providers.EntityLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
	}
}

// Acquire blocks until the lock for key is held or ctx is done
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := "lock:" + key
	token := uuid.New().String()

	for {
		ok, err := l.client.Client().SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			release := func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := releaseScript.Run(releaseCtx, l.client.Client(), []string{redisKey}, token).Err(); err != nil {
					// The key stays held until the TTL expires.
					log.Warn().Err(err).Str("lock_key", key).Msg("failed to release entity lock")
				}
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}
