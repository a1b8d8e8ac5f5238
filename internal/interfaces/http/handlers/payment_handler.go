package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lightning-gateway/internal/domain/entities"
	domainerrors "lightning-gateway/internal/domain/errors"
	"lightning-gateway/internal/idempotency"
	"lightning-gateway/internal/interfaces/http/middleware"
	"lightning-gateway/internal/interfaces/http/response"
)

// PaymentEngine is the subset of the lifecycle engine the HTTP layer
// drives directly.
type PaymentEngine interface {
	Create(ctx context.Context, clientID uuid.UUID, in entities.CreatePaymentInput) (*entities.PaymentRequest, error)
	Get(ctx context.Context, clientID, id uuid.UUID) (*entities.PaymentRequest, error)
	Cancel(ctx context.Context, clientID, paymentID uuid.UUID) error
}

// PaymentHandler handles payment creation and lookup.
type PaymentHandler struct {
	engine PaymentEngine
	guard  *idempotency.Guard
}

func NewPaymentHandler(engine PaymentEngine, guard *idempotency.Guard) *PaymentHandler {
	return &PaymentHandler{engine: engine, guard: guard}
}

type amountView struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type invoiceView struct {
	Provider          string     `json:"provider,omitempty"`
	ProviderInvoiceID string     `json:"provider_invoice_id,omitempty"`
	CheckoutLink      string     `json:"checkout_link,omitempty"`
	Bolt11            string     `json:"bolt11,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

type paymentView struct {
	PaymentID      uuid.UUID   `json:"payment_id"`
	Status         string      `json:"status"`
	MonitorUntil   time.Time   `json:"monitor_until"`
	Invoice        invoiceView `json:"invoice"`
	Amount         amountView  `json:"amount"`
	Metadata       string      `json:"metadata,omitempty"`
	ExternalCode   string      `json:"external_code"`
	CreatedAt      time.Time   `json:"created_at"`
	FinalizedAt    *time.Time  `json:"finalized_at,omitempty"`
	StatusReason   string      `json:"status_reason,omitempty"`
	LightningInvoice string    `json:"lightning_invoice,omitempty"`
}

func toPaymentView(req *entities.PaymentRequest) paymentView {
	v := paymentView{
		PaymentID:    req.ID,
		Status:       string(req.Status),
		MonitorUntil: req.MonitorUntil,
		Amount:       amountView{Amount: req.Amount, Currency: req.Currency},
		Metadata:     req.Metadata.String,
		ExternalCode: req.ExternalCode,
		CreatedAt:    req.CreatedAt,
		StatusReason: req.StatusReason.String,
	}
	if req.Bolt11.Valid {
		v.LightningInvoice = req.Bolt11.String
	}
	if req.FinalizedAt.Valid {
		t := req.FinalizedAt.Time
		v.FinalizedAt = &t
	}
	if req.HasInvoice() {
		v.Invoice = invoiceView{
			Provider:          req.ProviderName.String,
			ProviderInvoiceID: req.ProviderInvoiceID.String,
			CheckoutLink:      req.CheckoutLink.String,
			Bolt11:            req.Bolt11.String,
		}
		if req.ProviderExpiresAt.Valid {
			t := req.ProviderExpiresAt.Time
			v.Invoice.ExpiresAt = &t
		}
	}
	return v
}

// CreatePayment creates a new Lightning-backed payment.
// POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	clientID, ok := middleware.GetClientID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("client not authenticated"))
		return
	}

	var input entities.CreatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	acquired, err := h.guard.Acquire(c.Request.Context(), clientID, input.IdempotencyKey)
	if err != nil {
		response.Error(c, domainerrors.Internal(err))
		return
	}
	if !acquired {
		response.Error(c, domainerrors.Conflict("a request with this idempotency key is already in flight"))
		return
	}
	defer h.guard.Release(c.Request.Context(), clientID, input.IdempotencyKey)

	req, err := h.engine.Create(c.Request.Context(), clientID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, toPaymentView(req))
}

// GetPayment reads a single payment owned by the authenticated client.
// GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	clientID, ok := middleware.GetClientID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("client not authenticated"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid payment id"))
		return
	}

	req, err := h.engine.Get(c.Request.Context(), clientID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, toPaymentView(req))
}

// CancelPayment cancels a still-open payment owned by the
// authenticated client. Not part of the canonical external surface
// but exposed for operational use, mirroring the lifecycle engine's
// optional Cancel operation.
// POST /api/v1/payments/:id/cancel
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	clientID, ok := middleware.GetClientID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("client not authenticated"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid payment id"))
		return
	}

	if err := h.engine.Cancel(c.Request.Context(), clientID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "canceled"})
}
