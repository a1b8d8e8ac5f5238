// Package notifier delivers best-effort callback POSTs when a payment
// reaches a terminal state.
package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lightning-gateway/internal/domain/entities"
)

// backoff is the fixed retry sequence: up to 3 attempts total, with
// the delay before the 2nd and 3rd.
var backoff = []time.Duration{1 * time.Second, 5 * time.Second, 25 * time.Second}

// sleep is a package var so tests can shrink retry delays to zero.
var sleep = time.Sleep

// Payload is the JSON body POSTed to callback_url, matching the body
// the stream sends for the same event.
type Payload struct {
	ID           string          `json:"id"`
	Status       entities.Status `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	ExternalCode string          `json:"external_code"`
	Reason       string          `json:"reason,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Notifier is the Callback Notifier.
type Notifier struct {
	client *http.Client
	secret string
	logger *zap.Logger
}

func New(secret string, logger *zap.Logger) *Notifier {
	return &Notifier{
		client: &http.Client{Timeout: 30 * time.Second},
		secret: secret,
		logger: logger,
	}
}

// NotifyTerminal fires a background, best-effort delivery for a
// payment that just reached a terminal status. It returns
// immediately; failures are logged, never surfaced to the caller, and
// payment state is never touched.
func (n *Notifier) NotifyTerminal(req *entities.PaymentRequest, reason string) {
	if !req.CallbackURL.Valid || req.CallbackURL.String == "" || !req.Status.IsTerminal() {
		return
	}
	payload := Payload{
		ID:           req.ID.String(),
		Status:       req.Status,
		Amount:       req.Amount,
		Currency:     req.Currency,
		ExternalCode: req.ExternalCode,
		Reason:       reason,
		Timestamp:    time.Now().UTC(),
	}
	go n.deliver(req.CallbackURL.String, payload)
}

func (n *Notifier) deliver(url string, payload Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("notifier: failed to marshal callback payload", zap.Error(err))
		return
	}

	for attempt := 0; attempt < len(backoff); attempt++ {
		if attempt > 0 {
			sleep(backoff[attempt-1])
		}
		if n.attempt(url, body) {
			return
		}
	}
	n.logger.Warn("notifier: callback delivery exhausted all attempts",
		zap.String("url", url), zap.String("payment_id", payload.ID))
}

func (n *Notifier) attempt(url string, body []byte) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("notifier: failed to build callback request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set("Provider-Sig", n.sign(body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("notifier: callback delivery failed", zap.String("url", url), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warn("notifier: callback returned non-2xx",
			zap.String("url", url), zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}

func (n *Notifier) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(n.secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
