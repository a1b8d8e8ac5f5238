package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// Status is the lifecycle state of a payment request.
type Status string

const (
	StatusCreated  Status = "CREATED"
	StatusPending  Status = "PENDING"
	StatusPaid     Status = "PAID"
	StatusExpired  Status = "EXPIRED"
	StatusTimedOut Status = "TIMED_OUT"
	StatusFailed   Status = "FAILED"
	StatusCanceled Status = "CANCELED"
)

// IsTerminal reports whether status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPaid, StatusExpired, StatusTimedOut, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// PaymentRequest is a single Lightning invoice-backed payment under
// orchestration. The invoice sub-record (ProviderName..ProviderExpiresAt)
// is set at most once, when Create transitions CREATED -> PENDING, and
// is immutable afterward.
type PaymentRequest struct {
	ID                 uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID           uuid.UUID       `json:"client_id" gorm:"type:uuid;not null;index"`
	Amount             decimal.Decimal `json:"amount" gorm:"type:numeric(20,8);not null"`
	Currency           string          `json:"currency" gorm:"not null;default:'BTC'"`
	Status             Status          `json:"status" gorm:"not null;index"`
	ExternalCode       string          `json:"external_code" gorm:"not null"`
	Description        null.String     `json:"description,omitempty"`
	ProviderName        null.String     `json:"provider,omitempty"`
	ProviderInvoiceID   null.String     `json:"provider_invoice_id,omitempty" gorm:"index"`
	CheckoutLink        null.String     `json:"checkout_link,omitempty"`
	Bolt11              null.String     `json:"bolt11,omitempty"`
	ProviderExpiresAt    null.Time       `json:"provider_expires_at,omitempty"`
	IdempotencyKey     null.String     `json:"-"`
	CallbackURL        null.String     `json:"callback_url,omitempty"`
	RedirectURL        null.String     `json:"redirect_url,omitempty"`
	Metadata           null.String     `json:"metadata,omitempty"`
	StatusReason       null.String     `json:"status_reason,omitempty"`
	MonitorUntil       time.Time       `json:"monitor_until"`
	FinalizedAt        null.Time       `json:"finalized_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// HasInvoice reports whether the provider invoice sub-record has been
// assigned yet (set exactly once, on CREATED -> PENDING).
func (p *PaymentRequest) HasInvoice() bool {
	return p.ProviderInvoiceID.Valid
}

// CreatePaymentInput is the payload for POST /api/v1/payments.
type CreatePaymentInput struct {
	PaymentMethod  string          `json:"payment_method" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Currency       string          `json:"currency" binding:"required"`
	ExternalCode   string          `json:"external_code" binding:"required"`
	Description    string          `json:"description,omitempty"`
	CallbackURL    string          `json:"callback_url,omitempty"`
	RedirectURL    string          `json:"redirect_url,omitempty"`
	Metadata       string          `json:"metadata,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// HintKind is the provider-facing vocabulary a webhook or poller
// reports; the lifecycle engine translates it into a Status transition.
type HintKind string

const (
	HintPaid        HintKind = "PAID"
	HintExpired     HintKind = "EXPIRED"
	HintInvalid     HintKind = "INVALID"
	HintTimedOut    HintKind = "TIMED_OUT"
	HintStillPending HintKind = "STILL_PENDING"
)

// Hint is a suggested transition surfaced by a webhook or the provider
// poller; the lifecycle engine still validates it against the current
// state before applying it.
type Hint struct {
	Kind   HintKind
	Reason string
}
