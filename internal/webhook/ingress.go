// Package webhook verifies and decodes inbound provider notifications
// before handing a transition hint to the Lifecycle Engine.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"lightning-gateway/internal/domain/entities"
	domainerrors "lightning-gateway/internal/domain/errors"
	"lightning-gateway/internal/domain/repositories"
	"lightning-gateway/internal/metrics"
)

// Verdict is the outcome reported back to the provider, mirroring the
// three dispositions the ingress contract allows: a hint was applied,
// the invoice was unrecognized, or the hint didn't change anything.
type Verdict string

const (
	VerdictProcessed Verdict = "processed"
	VerdictIgnored   Verdict = "ignored"
	VerdictLogged    Verdict = "logged"
)

// HintApplier is the subset of the Lifecycle Engine the ingress needs.
type HintApplier interface {
	ApplyHint(ctx context.Context, paymentID uuid.UUID, hint entities.Hint) (entities.Status, error)
}

// Ingress is the Webhook Ingress: HMAC verification, payload decoding,
// and event-type-to-hint translation.
type Ingress struct {
	secret   string
	eventMap map[string]string
	payments repositories.PaymentRequestRepository
	engine   HintApplier
}

func NewIngress(secret string, eventMap map[string]string, payments repositories.PaymentRequestRepository, engine HintApplier) *Ingress {
	return &Ingress{secret: secret, eventMap: eventMap, payments: payments, engine: engine}
}

// providerNotification is the subset of the provider's webhook payload
// this ingress needs; the rest is ignored.
type providerNotification struct {
	ProviderInvoiceID string `json:"invoice_id"`
	EventType         string `json:"event_type"`
}

// ErrBadSignature is returned when the signature header is missing or
// does not match; callers must respond 401.
var ErrBadSignature = errors.New("webhook: signature verification failed")

// VerifySignature checks header against HMAC-SHA256(body, secret) in
// the "sha256=<hex>" framing, in constant time.
func (in *Ingress) VerifySignature(body []byte, header string) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(in.secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(header), []byte(expected))
}

// Handle verifies the signature, decodes the payload, and submits a
// hint to the Lifecycle Engine. An unrecognized invoice returns
// VerdictIgnored rather than an error; an error is returned only when
// the signature fails, the body is malformed, or the invoice lookup or
// the engine's ApplyHint fails.
func (in *Ingress) Handle(ctx context.Context, body []byte, signatureHeader string) (Verdict, error) {
	if !in.VerifySignature(body, signatureHeader) {
		return "", ErrBadSignature
	}

	var payload providerNotification
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", domainerrors.BadRequest("malformed webhook payload")
	}
	if payload.ProviderInvoiceID == "" {
		return "", domainerrors.BadRequest("missing invoice_id")
	}

	req, err := in.payments.GetByProviderInvoiceID(ctx, payload.ProviderInvoiceID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			metrics.WebhookVerdicts.WithLabelValues(string(VerdictIgnored)).Inc()
			return VerdictIgnored, nil
		}
		return "", domainerrors.Internal(err)
	}

	kind, ok := in.hintKind(payload.EventType)
	if !ok {
		metrics.WebhookVerdicts.WithLabelValues(string(VerdictLogged)).Inc()
		return VerdictLogged, nil
	}

	before := req.Status
	after, err := in.engine.ApplyHint(ctx, req.ID, entities.Hint{Kind: kind, Reason: "provider_webhook"})
	if err != nil {
		return "", err
	}
	if after == before {
		metrics.WebhookVerdicts.WithLabelValues(string(VerdictLogged)).Inc()
		return VerdictLogged, nil
	}
	metrics.WebhookVerdicts.WithLabelValues(string(VerdictProcessed)).Inc()
	return VerdictProcessed, nil
}

func (in *Ingress) hintKind(eventType string) (entities.HintKind, bool) {
	mapped, ok := in.eventMap[eventType]
	if !ok {
		return "", false
	}
	switch entities.HintKind(mapped) {
	case entities.HintPaid:
		return entities.HintPaid, true
	case entities.HintExpired:
		return entities.HintExpired, true
	case entities.HintInvalid:
		return entities.HintInvalid, true
	case entities.HintStillPending:
		return entities.HintStillPending, true
	default:
		return "", false
	}
}
