// Package lockx provides a redis-backed lease so that only one producer
// replica runs a scheduler tick at a time.
package lockx

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

type Lock struct {
	Key   string
	Token string
	TTL   time.Duration
}

// Lease hands out short-lived locks on a single key.
type Lease struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewLease(client *redis.Client, key string, ttl time.Duration) (*Lease, error) {
	if client == nil {
		return nil, errors.New("redis client not initialized")
	}
	if key == "" {
		return nil, errors.New("lease key is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be > 0")
	}
	return &Lease{client: client, key: key, ttl: ttl}, nil
}

// Acquire returns ok=false without error when another holder owns the key.
func (l *Lease) Acquire(ctx context.Context) (*Lock, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{Key: l.key, Token: token, TTL: l.ttl}, true, nil
}

// Release deletes the key only if it still carries our token, so an expired
// lease re-acquired by another replica is left alone.
func (l *Lease) Release(ctx context.Context, lock *Lock) error {
	if lock == nil {
		return errors.New("lock is nil")
	}
	return l.client.Eval(ctx, releaseScript, []string{lock.Key}, lock.Token).Err()
}

func ReadyCheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis not configured")
		}
		return client.Ping(ctx).Err()
	}
}
