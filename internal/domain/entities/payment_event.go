package entities

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the vocabulary of events recorded against a payment
// request's append-only log. "keepalive" is synthetic: it is never
// persisted, only ever sent on the live stream during idle periods.
type EventType string

const (
	EventCreated       EventType = "payment.created"
	EventInvoiceCreated EventType = "payment.invoice_created"
	EventStatusChanged EventType = "payment.status_changed"
	EventPaid          EventType = "payment.paid"
	EventExpired       EventType = "payment.expired"
	EventTimedOut      EventType = "payment.timed_out"
	EventFailed        EventType = "payment.failed"
	EventKeepalive     EventType = "keepalive"
)

// PaymentEvent is one immutable entry in a payment's transition log.
// Seq is dense and starts at 1 per client, never per payment, so a
// client's live stream can resume from a single cursor across all of
// its payments.
type PaymentEvent struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID  uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	PaymentID uuid.UUID `json:"payment_id" gorm:"type:uuid;not null;index"`
	Seq       int64     `json:"seq" gorm:"not null"`
	Type      EventType `json:"type" gorm:"not null"`
	Status    Status    `json:"status" gorm:"not null"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
