package repositories

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"lightning-gateway/internal/domain/entities"
)

// PaymentEventRepositoryImpl implements repositories.PaymentEventRepository.
type PaymentEventRepositoryImpl struct {
	db *sql.DB
}

func NewPaymentEventRepository(db *sql.DB) *PaymentEventRepositoryImpl {
	return &PaymentEventRepositoryImpl{db: db}
}

// Create allocates the next dense seq for ev.ClientID and inserts the
// event. Callers must already hold the client's row lock (via
// UnitOfWork.WithLock) inside the enclosing transaction so concurrent
// transitions for the same client can't race on seq allocation.
func (r *PaymentEventRepositoryImpl) Create(ctx context.Context, ev *entities.PaymentEvent) error {
	e, _ := execFrom(ctx, r.db)

	if ev.ID == uuid.Nil {
		ev.ID = uuid.Must(uuid.NewV7())
	}
	ev.CreatedAt = nowUTC()

	row := e.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM payment_events WHERE client_id = $1`, ev.ClientID)
	if err := row.Scan(&ev.Seq); err != nil {
		return err
	}

	query := `
		INSERT INTO payment_events (
			id, client_id, payment_id, seq, type, status, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := e.ExecContext(ctx, query,
		ev.ID, ev.ClientID, ev.PaymentID, ev.Seq, ev.Type, ev.Status, ev.Reason, ev.CreatedAt,
	)
	return err
}

const paymentEventColumns = `id, client_id, payment_id, seq, type, status, reason, created_at`

func scanPaymentEvent(row interface{ Scan(...interface{}) error }) (*entities.PaymentEvent, error) {
	var ev entities.PaymentEvent
	err := row.Scan(&ev.ID, &ev.ClientID, &ev.PaymentID, &ev.Seq, &ev.Type, &ev.Status, &ev.Reason, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *PaymentEventRepositoryImpl) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*entities.PaymentEvent, error) {
	e, _ := execFrom(ctx, r.db)
	query := `SELECT ` + paymentEventColumns + ` FROM payment_events WHERE payment_id = $1 ORDER BY seq ASC`

	rows, err := e.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entities.PaymentEvent
	for rows.Next() {
		ev, err := scanPaymentEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *PaymentEventRepositoryImpl) ListSince(ctx context.Context, clientID uuid.UUID, afterSeq int64, limit int) ([]*entities.PaymentEvent, error) {
	e, _ := execFrom(ctx, r.db)
	query := `SELECT ` + paymentEventColumns + ` FROM payment_events WHERE client_id = $1 AND seq > $2 ORDER BY seq ASC LIMIT $3`

	rows, err := e.QueryContext(ctx, query, clientID, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entities.PaymentEvent
	for rows.Next() {
		ev, err := scanPaymentEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *PaymentEventRepositoryImpl) LastSeq(ctx context.Context, clientID uuid.UUID) (int64, error) {
	e, _ := execFrom(ctx, r.db)
	var seq int64
	err := e.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM payment_events WHERE client_id = $1`, clientID).Scan(&seq)
	return seq, err
}
