package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"lightning-gateway/internal/domain/entities"
)

// PaymentRequestRepository persists PaymentRequest rows.
type PaymentRequestRepository interface {
	Create(ctx context.Context, req *entities.PaymentRequest) error
	// GetByID fetches a payment request. Callers that intend to
	// transition it should run this inside uow.Do with uow.WithLock
	// so the read takes a row-level lock.
	GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error)
	GetByIDForClient(ctx context.Context, id, clientID uuid.UUID) (*entities.PaymentRequest, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*entities.PaymentRequest, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.Status, reason string) error
	// AssignInvoice sets the provider invoice sub-record and
	// transitions to PENDING in one statement; callers must already
	// hold the row lock via uow.WithLock.
	AssignInvoice(ctx context.Context, id uuid.UUID, providerName, providerInvoiceID, checkoutLink, bolt11 string, providerExpiresAt time.Time) error
	// GetOpen returns requests in a non-terminal status, for the
	// monitoring worker's startup/crash-recovery sweep.
	GetOpen(ctx context.Context, limit int) ([]*entities.PaymentRequest, error)
	// GetByProviderInvoiceID looks up the owning request for an
	// inbound webhook keyed by the provider's own invoice id.
	GetByProviderInvoiceID(ctx context.Context, providerInvoiceID string) (*entities.PaymentRequest, error)
}
