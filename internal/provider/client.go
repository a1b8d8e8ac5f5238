package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the provider's own vocabulary for invoice state,
// distinct from entities.Status: the webhook/poller layer translates
// this into a Hint for the lifecycle engine.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusSettled InvoiceStatus = "settled"
	InvoiceStatusExpired InvoiceStatus = "expired"
	InvoiceStatusInvalid InvoiceStatus = "invalid"
)

// Invoice is the provider's representation of a created Lightning invoice.
type Invoice struct {
	ProviderInvoiceID string
	CheckoutLink      string
	Bolt11            string
	Status            InvoiceStatus
	ExpiresAt         time.Time
}

// CreateInvoiceInput carries the fields PA needs to ask the provider
// for a new invoice.
type CreateInvoiceInput struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	StoreID     string
}

// Client is the HTTP adapter for the external Lightning provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	storeID    string
}

func NewClient(baseURL, apiKey, storeID string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		storeID:    storeID,
	}
}

type createInvoiceRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	StoreID     string `json:"store_id"`
}

type invoiceResponse struct {
	ID           string    `json:"id"`
	CheckoutLink string    `json:"checkout_link"`
	Bolt11       string    `json:"bolt11"`
	Status       string    `json:"status"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CreateInvoice asks the provider to mint a new Lightning invoice for
// the given amount. Callers must apply a context deadline; PA itself
// adds no extra timeout beyond the client's configured one.
func (c *Client) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error) {
	body, err := json.Marshal(createInvoiceRequest{
		Amount:      in.Amount.String(),
		Currency:    in.Currency,
		Description: in.Description,
		StoreID:     in.StoreID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode create-invoice request: %w", err)
	}

	var out invoiceResponse
	if err := c.do(ctx, http.MethodPost, "/v1/invoices", body, &out); err != nil {
		return nil, err
	}
	return toInvoice(out), nil
}

// GetInvoice fetches the current status of a previously created invoice.
func (c *Client) GetInvoice(ctx context.Context, providerInvoiceID string) (*Invoice, error) {
	var out invoiceResponse
	if err := c.do(ctx, http.MethodGet, "/v1/invoices/"+providerInvoiceID, nil, &out); err != nil {
		return nil, err
	}
	return toInvoice(out), nil
}

func toInvoice(r invoiceResponse) *Invoice {
	return &Invoice{
		ProviderInvoiceID: r.ID,
		CheckoutLink:      r.CheckoutLink,
		Bolt11:            r.Bolt11,
		Status:            InvoiceStatus(r.Status),
		ExpiresAt:         r.ExpiresAt,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
	}
	return nil
}
