package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"lightning-gateway/internal/domain/entities"
	domainerrors "lightning-gateway/internal/domain/errors"
)

// ClientRepositoryImpl implements repositories.ClientRepository.
type ClientRepositoryImpl struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepositoryImpl {
	return &ClientRepositoryImpl{db: db}
}

func (r *ClientRepositoryImpl) Create(ctx context.Context, client *entities.Client) error {
	e, _ := execFrom(ctx, r.db)
	if client.ID == uuid.Nil {
		client.ID = uuid.Must(uuid.NewV7())
	}
	query := `
		INSERT INTO clients (id, machine_id, password_hash, active, allowed_source_ips, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := e.ExecContext(ctx, query,
		client.ID, client.MachineID, client.PasswordHash, client.Active, pq.Array(client.AllowedSourceIPs),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

const clientColumns = `id, machine_id, password_hash, active, allowed_source_ips, created_at, updated_at`

func scanClient(row interface{ Scan(...interface{}) error }) (*entities.Client, error) {
	var c entities.Client
	err := row.Scan(&c.ID, &c.MachineID, &c.PasswordHash, &c.Active, pq.Array(&c.AllowedSourceIPs), &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Client, error) {
	e, locked := execFrom(ctx, r.db)
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	if locked {
		query += ` FOR UPDATE`
	}
	c, err := scanClient(e.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *ClientRepositoryImpl) GetByMachineID(ctx context.Context, machineID string) (*entities.Client, error) {
	e, _ := execFrom(ctx, r.db)
	query := `SELECT ` + clientColumns + ` FROM clients WHERE machine_id = $1`
	c, err := scanClient(e.QueryRowContext(ctx, query, machineID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *ClientRepositoryImpl) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	e, _ := execFrom(ctx, r.db)
	_, err := e.ExecContext(ctx, `UPDATE clients SET active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
