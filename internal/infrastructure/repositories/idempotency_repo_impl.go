package repositories

import (
	"context"
	"database/sql"
	"errors"

	domainRepos "lightning-gateway/internal/domain/repositories"
	domainerrors "lightning-gateway/internal/domain/errors"
	"github.com/google/uuid"
)

// IdempotencyRepositoryImpl implements repositories.IdempotencyRepository.
type IdempotencyRepositoryImpl struct {
	db *sql.DB
}

func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepositoryImpl {
	return &IdempotencyRepositoryImpl{db: db}
}

func (r *IdempotencyRepositoryImpl) Insert(ctx context.Context, rec domainRepos.IdempotencyRecord) error {
	e, _ := execFrom(ctx, r.db)
	query := `
		INSERT INTO idempotency_records (client_id, key, fingerprint, payment_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := e.ExecContext(ctx, query, rec.ClientID, rec.Key, rec.Fingerprint, rec.PaymentID)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *IdempotencyRepositoryImpl) Get(ctx context.Context, clientID uuid.UUID, key string) (*domainRepos.IdempotencyRecord, error) {
	e, _ := execFrom(ctx, r.db)
	query := `SELECT client_id, key, fingerprint, payment_id FROM idempotency_records WHERE client_id = $1 AND key = $2`

	var rec domainRepos.IdempotencyRecord
	err := e.QueryRowContext(ctx, query, clientID, key).Scan(&rec.ClientID, &rec.Key, &rec.Fingerprint, &rec.PaymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}
