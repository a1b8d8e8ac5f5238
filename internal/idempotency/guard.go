// Package idempotency provides the fast-path lock in front of payment
// creation. The durable guarantee is the (client_id, idempotency_key)
// unique constraint the Lifecycle Engine enforces via
// repositories.IdempotencyRepository; this guard only collapses
// concurrent duplicate requests before they'd otherwise race to hit
// that constraint, mirroring the teacher's SetNX-lock-then-process
// shape.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lightning-gateway/pkg/redis"
)

const (
	// LockDuration bounds how long a "processing" placeholder holds
	// the key before a retry is allowed to attempt again (e.g. after
	// a crash mid-request).
	LockDuration = 30 * time.Second
	processingValue = "processing"
)

var (
	redisSetNX = redis.SetNX
	redisDel   = redis.Del
)

// Guard is the Redis-backed fast-path lock.
type Guard struct{}

func NewGuard() *Guard {
	return &Guard{}
}

// Acquire attempts to claim (clientID, key) for the duration of one
// request. acquired is false if another request already holds it —
// callers should respond 409 rather than proceed.
func (g *Guard) Acquire(ctx context.Context, clientID uuid.UUID, key string) (acquired bool, err error) {
	if key == "" {
		// No idempotency key: no dedup is requested, so nothing to lock.
		return true, nil
	}
	return redisSetNX(ctx, storageKey(clientID, key), processingValue, LockDuration)
}

// Release frees the lock once the request has finished (successfully
// or not), letting a legitimate retry proceed immediately rather than
// wait out LockDuration.
func (g *Guard) Release(ctx context.Context, clientID uuid.UUID, key string) error {
	if key == "" {
		return nil
	}
	return redisDel(ctx, storageKey(clientID, key))
}

func storageKey(clientID uuid.UUID, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", clientID, key)
}
