package repositories

import (
	"context"

	"github.com/google/uuid"
)

// IdempotencyRecord maps a (client, idempotency key) pair to the
// payment it produced and the fingerprint of the request that
// produced it.
type IdempotencyRecord struct {
	ClientID    uuid.UUID
	Key         string
	Fingerprint string
	PaymentID   uuid.UUID
}

// IdempotencyRepository is the durable half of the idempotency guard;
// the unique (client_id, key) constraint is the authoritative
// guarantee, Redis in front of it only collapses concurrent races
// before they'd otherwise hit that constraint.
type IdempotencyRepository interface {
	// Insert records a new mapping. Returns ErrAlreadyExists if the
	// (client_id, key) pair is already recorded.
	Insert(ctx context.Context, rec IdempotencyRecord) error
	Get(ctx context.Context, clientID uuid.UUID, key string) (*IdempotencyRecord, error)
}
