package repositories

import (
	"context"

	"github.com/google/uuid"
	"lightning-gateway/internal/domain/entities"
)

// ClientRepository persists kiosk/client credentials.
type ClientRepository interface {
	Create(ctx context.Context, client *entities.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Client, error)
	GetByMachineID(ctx context.Context, machineID string) (*entities.Client, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
