package entities

import (
	"time"

	"github.com/google/uuid"
)

// Client represents a kiosk (or other caller) authorized to create
// and query payments.
type Client struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	MachineID      string    `json:"machine_id" gorm:"uniqueIndex;not null"`
	PasswordHash   string    `json:"-" gorm:"not null"`
	Active         bool      `json:"active" gorm:"not null;default:true"`
	AllowedSourceIPs []string `json:"allowed_source_ips,omitempty" gorm:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TokenRequestInput is the payload for POST /api/v1/auth/token.
type TokenRequestInput struct {
	MachineID string `json:"machine_id" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// TokenResponse is the payload returned by POST /api/v1/auth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// CreateClientInput is the admin payload for provisioning a new client.
type CreateClientInput struct {
	MachineID        string   `json:"machine_id" binding:"required"`
	Password         string   `json:"password" binding:"required,min=8"`
	AllowedSourceIPs []string `json:"allowed_source_ips,omitempty"`
}
