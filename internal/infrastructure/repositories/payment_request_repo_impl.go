package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"lightning-gateway/internal/domain/entities"
	domainerrors "lightning-gateway/internal/domain/errors"
	"github.com/volatiletech/null/v8"
)

// PaymentRequestRepositoryImpl implements repositories.PaymentRequestRepository.
type PaymentRequestRepositoryImpl struct {
	db *sql.DB
}

func NewPaymentRequestRepository(db *sql.DB) *PaymentRequestRepositoryImpl {
	return &PaymentRequestRepositoryImpl{db: db}
}

func (r *PaymentRequestRepositoryImpl) Create(ctx context.Context, req *entities.PaymentRequest) error {
	e, _ := execFrom(ctx, r.db)
	if req.ID == uuid.Nil {
		req.ID = uuid.Must(uuid.NewV7())
	}
	query := `
		INSERT INTO payment_requests (
			id, client_id, amount, currency, status, external_code, description,
			provider_name, provider_invoice_id, checkout_link, bolt11, provider_expires_at,
			idempotency_key, callback_url, redirect_url, metadata, status_reason,
			monitor_until, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
	`
	_, err := e.ExecContext(ctx, query,
		req.ID, req.ClientID, req.Amount, req.Currency, req.Status, req.ExternalCode, req.Description,
		req.ProviderName, req.ProviderInvoiceID, req.CheckoutLink, req.Bolt11, req.ProviderExpiresAt,
		req.IdempotencyKey, req.CallbackURL, req.RedirectURL, req.Metadata, req.StatusReason,
		req.MonitorUntil,
	)
	return err
}

const paymentRequestColumns = `
	id, client_id, amount, currency, status, external_code, description,
	provider_name, provider_invoice_id, checkout_link, bolt11, provider_expires_at,
	idempotency_key, callback_url, redirect_url, metadata, status_reason,
	monitor_until, finalized_at, created_at, updated_at
`

func scanPaymentRequest(row interface{ Scan(...interface{}) error }) (*entities.PaymentRequest, error) {
	var req entities.PaymentRequest
	err := row.Scan(
		&req.ID, &req.ClientID, &req.Amount, &req.Currency, &req.Status, &req.ExternalCode, &req.Description,
		&req.ProviderName, &req.ProviderInvoiceID, &req.CheckoutLink, &req.Bolt11, &req.ProviderExpiresAt,
		&req.IdempotencyKey, &req.CallbackURL, &req.RedirectURL, &req.Metadata, &req.StatusReason,
		&req.MonitorUntil, &req.FinalizedAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *PaymentRequestRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error) {
	e, locked := execFrom(ctx, r.db)
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE id = $1`
	if locked {
		query += ` FOR UPDATE`
	}

	req, err := scanPaymentRequest(e.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *PaymentRequestRepositoryImpl) GetByIDForClient(ctx context.Context, id, clientID uuid.UUID) (*entities.PaymentRequest, error) {
	e, _ := execFrom(ctx, r.db)
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE id = $1 AND client_id = $2`

	req, err := scanPaymentRequest(e.QueryRowContext(ctx, query, id, clientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *PaymentRequestRepositoryImpl) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*entities.PaymentRequest, int, error) {
	e, _ := execFrom(ctx, r.db)

	var total int
	if err := e.QueryRowContext(ctx, `SELECT COUNT(*) FROM payment_requests WHERE client_id = $1`, clientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := e.QueryContext(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*entities.PaymentRequest
	for rows.Next() {
		req, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, req)
	}
	return out, total, rows.Err()
}

func (r *PaymentRequestRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.Status, reason string) error {
	e, _ := execFrom(ctx, r.db)
	var finalizedAt null.Time
	if status.IsTerminal() {
		finalizedAt = null.TimeFrom(nowUTC())
	}
	query := `
		UPDATE payment_requests
		SET status = $1, status_reason = $2, finalized_at = CASE WHEN $3 THEN $4 ELSE finalized_at END, updated_at = NOW()
		WHERE id = $5
	`
	_, err := e.ExecContext(ctx, query, status, nullIfEmpty(reason), finalizedAt.Valid, finalizedAt, id)
	return err
}

func (r *PaymentRequestRepositoryImpl) AssignInvoice(ctx context.Context, id uuid.UUID, providerName, providerInvoiceID, checkoutLink, bolt11 string, providerExpiresAt time.Time) error {
	e, _ := execFrom(ctx, r.db)
	query := `
		UPDATE payment_requests
		SET status = $1, provider_name = $2, provider_invoice_id = $3, checkout_link = $4, bolt11 = $5,
		    provider_expires_at = $6, updated_at = NOW()
		WHERE id = $7
	`
	_, err := e.ExecContext(ctx, query, entities.StatusPending,
		nullIfEmpty(providerName), nullIfEmpty(providerInvoiceID), nullIfEmpty(checkoutLink), nullIfEmpty(bolt11),
		providerExpiresAt, id,
	)
	return err
}

func (r *PaymentRequestRepositoryImpl) GetOpen(ctx context.Context, limit int) ([]*entities.PaymentRequest, error) {
	e, _ := execFrom(ctx, r.db)
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE status IN ('CREATED', 'PENDING') ORDER BY created_at ASC LIMIT $1`
	rows, err := e.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entities.PaymentRequest
	for rows.Next() {
		req, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *PaymentRequestRepositoryImpl) GetByProviderInvoiceID(ctx context.Context, providerInvoiceID string) (*entities.PaymentRequest, error) {
	e, _ := execFrom(ctx, r.db)
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE provider_invoice_id = $1`
	req, err := scanPaymentRequest(e.QueryRowContext(ctx, query, providerInvoiceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}
