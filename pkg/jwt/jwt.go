package jwt

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrUnknownKey   = errors.New("unknown signing key id")
)

const issuer = "lightning-gateway"

// Claims identifies the client a bearer token was issued to.
type Claims struct {
	ClientID uuid.UUID `json:"client_id"`
	jwt.RegisteredClaims
}

var signJWTToken = func(token *jwt.Token, key ed25519.PrivateKey) (string, error) {
	return token.SignedString(key)
}

var parseJWTWithClaims = func(tokenString string, claims jwt.Claims, keyfunc jwt.Keyfunc, opts ...jwt.ParserOption) (*jwt.Token, error) {
	return jwt.ParseWithClaims(tokenString, claims, keyfunc, opts...)
}

// TokenService issues and verifies EdDSA bearer tokens against a
// rotatable public-key set: tokens carry a "kid" header identifying
// which key signed them, so retiring the active signing key doesn't
// invalidate tokens still verifying against an older key in the set.
type TokenService struct {
	mu               sync.RWMutex
	signingKey       ed25519.PrivateKey
	activeKeyID      string
	verificationKeys map[string]ed25519.PublicKey
	ttl              time.Duration
	clockSkew        time.Duration
}

// NewTokenService builds a service from a hex-encoded Ed25519 seed
// (the active signing key) and a kid->hex-encoded-public-key set used
// for verification. The active key's own public half is added to the
// verification set automatically.
func NewTokenService(signingKeyHex, activeKeyID string, verificationKeysHex map[string]string, ttl, clockSkew time.Duration) (*TokenService, error) {
	seed, err := hex.DecodeString(signingKeyHex)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid signing key: must be %d-byte hex seed", ed25519.SeedSize)
	}
	signingKey := ed25519.NewKeyFromSeed(seed)

	keys := make(map[string]ed25519.PublicKey, len(verificationKeysHex)+1)
	for kid, hexKey := range verificationKeysHex {
		pub, err := decodePublicKey(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid verification key %q: %w", kid, err)
		}
		keys[kid] = pub
	}
	keys[activeKeyID] = signingKey.Public().(ed25519.PublicKey)

	return &TokenService{
		signingKey:       signingKey,
		activeKeyID:      activeKeyID,
		verificationKeys: keys,
		ttl:              ttl,
		clockSkew:        clockSkew,
	}, nil
}

func decodePublicKey(hexKey string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("must be %d-byte hex public key", ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// AddVerificationKey adds a new kid->public-key pair to the
// verification set without touching the active signing key, enabling
// rotation: roll out the new key here, start signing with it once
// every instance has it, only then retire the old one.
func (s *TokenService) AddVerificationKey(kid, hexKey string) error {
	pub, err := decodePublicKey(hexKey)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verificationKeys[kid] = pub
	return nil
}

// IssueToken mints a bearer token for clientID signed with the active key.
func (s *TokenService) IssueToken(clientID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = s.activeKeyID
	return signJWTToken(token, s.signingKey)
}

// TTLSeconds reports the configured token lifetime in whole seconds,
// for the access-token response's expires_in field.
func (s *TokenService) TTLSeconds() int {
	return int(s.ttl.Seconds())
}

// ValidateToken parses and verifies token, selecting the verification
// key by its "kid" header, and enforces issuer + expiry.
//
// clockSkew is not applied as jwt.WithLeeway: that option extends
// validity past the nominal exp, which would accept a token already
// at (or just past) its expiry as long as it's within the skew
// window — the opposite of what the skew is for here. Instead it is
// subtracted from the token's remaining lifetime, so a token is only
// honored while more than clockSkew of its life is left; a token
// exactly at its nominal expiry always fails this strictly, with or
// without skew configured.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := parseJWTWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, ErrInvalidToken
		}
		kid, _ := token.Header["kid"].(string)
		s.mu.RLock()
		defer s.mu.RUnlock()
		key, ok := s.verificationKeys[kid]
		if !ok {
			return nil, ErrUnknownKey
		}
		return key, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !time.Now().Add(s.clockSkew).Before(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}
