package repositories

import (
	"context"

	"github.com/google/uuid"
	"lightning-gateway/internal/domain/entities"
)

// PaymentEventRepository persists the append-only per-client event log.
type PaymentEventRepository interface {
	// Create inserts the event with the next dense seq for ev.ClientID.
	// Must run inside the same transaction as the status transition it
	// records, under the client's row lock, so seq allocation is
	// serialized per client.
	Create(ctx context.Context, ev *entities.PaymentEvent) error
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*entities.PaymentEvent, error)
	// ListSince returns events for clientID with seq > afterSeq, in
	// seq order, for replay on stream reconnect.
	ListSince(ctx context.Context, clientID uuid.UUID, afterSeq int64, limit int) ([]*entities.PaymentEvent, error)
	LastSeq(ctx context.Context, clientID uuid.UUID) (int64, error)
}
