package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"lightning-gateway/internal/domain/entities"
)

type mockPaymentRequestRepository struct {
	mock.Mock
}

func (m *mockPaymentRequestRepository) Create(ctx context.Context, req *entities.PaymentRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockPaymentRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequest), args.Error(1)
}

func (m *mockPaymentRequestRepository) GetByIDForClient(ctx context.Context, id, clientID uuid.UUID) (*entities.PaymentRequest, error) {
	args := m.Called(ctx, id, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequest), args.Error(1)
}

func (m *mockPaymentRequestRepository) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*entities.PaymentRequest, int, error) {
	args := m.Called(ctx, clientID, limit, offset)
	return nil, 0, args.Error(2)
}

func (m *mockPaymentRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.Status, reason string) error {
	return m.Called(ctx, id, status, reason).Error(0)
}

func (m *mockPaymentRequestRepository) AssignInvoice(ctx context.Context, id uuid.UUID, providerName, providerInvoiceID, checkoutLink, bolt11 string, providerExpiresAt time.Time) error {
	return m.Called(ctx, id, providerName, providerInvoiceID, checkoutLink, bolt11, providerExpiresAt).Error(0)
}

func (m *mockPaymentRequestRepository) GetOpen(ctx context.Context, limit int) ([]*entities.PaymentRequest, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PaymentRequest), args.Error(1)
}

func (m *mockPaymentRequestRepository) GetByProviderInvoiceID(ctx context.Context, providerInvoiceID string) (*entities.PaymentRequest, error) {
	args := m.Called(ctx, providerInvoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequest), args.Error(1)
}

type mockHintApplier struct {
	mock.Mock
}

func (m *mockHintApplier) ApplyHint(ctx context.Context, paymentID uuid.UUID, hint entities.Hint) (entities.Status, error) {
	args := m.Called(ctx, paymentID, hint)
	return args.Get(0).(entities.Status), args.Error(1)
}
