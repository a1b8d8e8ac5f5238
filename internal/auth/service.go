package auth

import (
	"context"
	"errors"

	"lightning-gateway/internal/domain/entities"
	domainerrors "lightning-gateway/internal/domain/errors"
	"lightning-gateway/internal/domain/repositories"
	"lightning-gateway/internal/ratelimit"
	"lightning-gateway/pkg/crypto"
	"lightning-gateway/pkg/jwt"
)

// Service is the Authentication Service: token issuance and
// verification for kiosk clients.
type Service struct {
	clients repositories.ClientRepository
	tokens  *jwt.TokenService
	limiter *ratelimit.Limiter
}

func NewService(clients repositories.ClientRepository, tokens *jwt.TokenService, tokenLimitPerMinutePerIP int) *Service {
	return &Service{
		clients: clients,
		tokens:  tokens,
		limiter: ratelimit.New(tokenLimitPerMinutePerIP),
	}
}

// IssueToken verifies machine_id/password and the source-IP allow-list,
// rate-limited per source IP. Failure modes are distinguished exactly
// as the public contract requires: 401 bad credentials, 403
// inactive/disallowed IP, 429 rate limited.
func (s *Service) IssueToken(ctx context.Context, in entities.TokenRequestInput, sourceIP string) (*entities.TokenResponse, error) {
	if !s.limiter.Allow(sourceIP) {
		return nil, domainerrors.RateLimited("too many token requests")
	}

	client, err := s.clients.GetByMachineID(ctx, in.MachineID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.Unauthorized("invalid credentials")
		}
		return nil, domainerrors.Internal(err)
	}

	if !client.Active {
		return nil, domainerrors.Forbidden("client is not active")
	}
	if !sourceIPAllowed(client.AllowedSourceIPs, sourceIP) {
		return nil, domainerrors.Forbidden("source IP not permitted for this client")
	}
	if !crypto.CheckPassword(in.Password, client.PasswordHash) {
		return nil, domainerrors.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.IssueToken(client.ID)
	if err != nil {
		return nil, domainerrors.Internal(err)
	}

	return &entities.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.tokens.TTLSeconds(),
	}, nil
}

// Authenticate parses and verifies a bearer token, then confirms the
// owning client is still active. Any failure collapses to 401.
func (s *Service) Authenticate(ctx context.Context, token string) (*entities.Client, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token")
	}

	client, err := s.clients.GetByID(ctx, claims.ClientID)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token")
	}
	if !client.Active {
		return nil, domainerrors.Unauthorized("invalid or expired token")
	}
	return client, nil
}

// sourceIPAllowed reports whether ip passes client's allow-list. An
// empty or unset list means no restriction.
func sourceIPAllowed(allowed []string, ip string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == ip {
			return true
		}
	}
	return false
}
