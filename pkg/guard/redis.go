package guard

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a guard shared by every frontend instance pointing at the same Redis.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (g *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := LockKeyPrefix + key
	token := uuid.NewString()
	acquired, err := g.rdb.SetNX(ctx, lockKey, token, LockTimeout).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", lockKey, err)
	}
	if !acquired {
		return nil, ErrHeld
	}
	return func() {
		// the caller's context may already be done
		if err := releaseScript.Run(context.Background(), g.rdb, []string{lockKey}, token).Err(); err != nil {
			log.Printf("[guard] failed to release %s: %v", lockKey, err)
		}
	}, nil
}
