package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"lightning-gateway/internal/domain/entities"
	"lightning-gateway/internal/domain/repositories"
)

type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, fn func(context.Context) error) error {
	m.Called(ctx)
	return fn(ctx)
}

func (m *MockUnitOfWork) WithLock(ctx context.Context) context.Context {
	m.Called(ctx)
	return ctx
}

type MockPaymentRequestRepository struct {
	mock.Mock
}

func (m *MockPaymentRequestRepository) Create(ctx context.Context, req *entities.PaymentRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockPaymentRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequest), args.Error(1)
}

func (m *MockPaymentRequestRepository) GetByIDForClient(ctx context.Context, id, clientID uuid.UUID) (*entities.PaymentRequest, error) {
	args := m.Called(ctx, id, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequest), args.Error(1)
}

func (m *MockPaymentRequestRepository) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*entities.PaymentRequest, int, error) {
	args := m.Called(ctx, clientID, limit, offset)
	return args.Get(0).([]*entities.PaymentRequest), args.Int(1), args.Error(2)
}

func (m *MockPaymentRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.Status, reason string) error {
	return m.Called(ctx, id, status, reason).Error(0)
}

func (m *MockPaymentRequestRepository) AssignInvoice(ctx context.Context, id uuid.UUID, providerName, providerInvoiceID, checkoutLink, bolt11 string, providerExpiresAt time.Time) error {
	return m.Called(ctx, id, providerName, providerInvoiceID, checkoutLink, bolt11).Error(0)
}

func (m *MockPaymentRequestRepository) GetOpen(ctx context.Context, limit int) ([]*entities.PaymentRequest, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*entities.PaymentRequest), args.Error(1)
}

func (m *MockPaymentRequestRepository) GetByProviderInvoiceID(ctx context.Context, providerInvoiceID string) (*entities.PaymentRequest, error) {
	args := m.Called(ctx, providerInvoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRequest), args.Error(1)
}

type MockPaymentEventRepository struct {
	mock.Mock
}

func (m *MockPaymentEventRepository) Create(ctx context.Context, ev *entities.PaymentEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockPaymentEventRepository) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*entities.PaymentEvent, error) {
	args := m.Called(ctx, paymentID)
	return args.Get(0).([]*entities.PaymentEvent), args.Error(1)
}

func (m *MockPaymentEventRepository) ListSince(ctx context.Context, clientID uuid.UUID, afterSeq int64, limit int) ([]*entities.PaymentEvent, error) {
	args := m.Called(ctx, clientID, afterSeq, limit)
	return args.Get(0).([]*entities.PaymentEvent), args.Error(1)
}

func (m *MockPaymentEventRepository) LastSeq(ctx context.Context, clientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).(int64), args.Error(1)
}

type MockIdempotencyRepository struct {
	mock.Mock
}

func (m *MockIdempotencyRepository) Insert(ctx context.Context, rec repositories.IdempotencyRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockIdempotencyRepository) Get(ctx context.Context, clientID uuid.UUID, key string) (*repositories.IdempotencyRecord, error) {
	args := m.Called(ctx, clientID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.IdempotencyRecord), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyTerminal(req *entities.PaymentRequest, reason string) {
	m.Called(req, reason)
}
