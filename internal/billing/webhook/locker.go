package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix = "webhook:event:"
	lockTTL       = 60 * time.Second
)

// EventLocker serializes concurrent deliveries of the same gateway event.
type EventLocker interface {
	// Acquire reports false when another delivery of eventID holds the lock.
	Acquire(ctx context.Context, eventID string) (release func(), acquired bool, err error)
}

// NewEventLocker uses Redis when a client is available and a pass-through
// locker otherwise; the webhook ledger's unique key still decides.
func NewEventLocker(client *redis.Client) EventLocker {
	if client == nil {
		return noopLocker{}
	}
	return &redisLocker{client: client, ttl: lockTTL}
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// Delete the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *redisLocker) Acquire(ctx context.Context, eventID string) (func(), bool, error) {
	key := lockKeyPrefix + eventID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
