package jwt

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSeed(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return hex.EncodeToString(priv.Seed())
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc, err := NewTokenService(newTestSeed(t), "k1", nil, time.Minute, 30*time.Second)
	require.NoError(t, err)

	clientID := uuid.Must(uuid.NewV7())
	token, err := svc.IssueToken(clientID)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, clientID, claims.ClientID)
}

func TestTokenService_ValidateInvalidToken(t *testing.T) {
	svc, err := NewTokenService(newTestSeed(t), "k1", nil, time.Minute, 30*time.Second)
	require.NoError(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_ValidateExpiredToken(t *testing.T) {
	svc, err := NewTokenService(newTestSeed(t), "k1", nil, -time.Second, 0)
	require.NoError(t, err)

	token, err := svc.IssueToken(uuid.Must(uuid.NewV7()))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenService_ValidateWrongSigningMethod(t *testing.T) {
	svc, err := NewTokenService(newTestSeed(t), "k1", nil, time.Minute, 30*time.Second)
	require.NoError(t, err)

	claims := gjwt.MapClaims{
		"client_id": uuid.NewString(),
		"iss":       issuer,
		"exp":       time.Now().Add(time.Minute).Unix(),
	}
	unsigned := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims)
	tokenStr, err := unsigned.SignedString(gjwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(tokenStr)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RotationAcceptsOldAndNewKeys(t *testing.T) {
	oldSeed := newTestSeed(t)
	svc, err := NewTokenService(oldSeed, "k1", nil, time.Minute, 30*time.Second)
	require.NoError(t, err)

	oldToken, err := svc.IssueToken(uuid.Must(uuid.NewV7()))
	require.NoError(t, err)

	_, newPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	newSeedHex := hex.EncodeToString(newPriv.Seed())

	require.NoError(t, svc.AddVerificationKey("k2", hex.EncodeToString(newPriv.Public().(ed25519.PublicKey))))

	rotated, err := NewTokenService(newSeedHex, "k2", map[string]string{
		"k1": hex.EncodeToString([]byte(mustPublicKeyFromSeedHex(t, oldSeed))),
	}, time.Minute, 30*time.Second)
	require.NoError(t, err)

	_, err = rotated.ValidateToken(oldToken)
	assert.NoError(t, err)

	newToken, err := rotated.IssueToken(uuid.Must(uuid.NewV7()))
	require.NoError(t, err)
	_, err = svc.ValidateToken(newToken)
	assert.NoError(t, err)
}

func mustPublicKeyFromSeedHex(t *testing.T, seedHex string) ed25519.PublicKey {
	t.Helper()
	seed, err := hex.DecodeString(seedHex)
	require.NoError(t, err)
	priv := ed25519.NewKeyFromSeed(seed)
	return priv.Public().(ed25519.PublicKey)
}

func TestTokenService_IssueToken_SignError(t *testing.T) {
	origSign := signJWTToken
	t.Cleanup(func() { signJWTToken = origSign })

	svc, err := NewTokenService(newTestSeed(t), "k1", nil, time.Minute, 30*time.Second)
	require.NoError(t, err)

	signJWTToken = func(*gjwt.Token, ed25519.PrivateKey) (string, error) {
		return "", errors.New("sign failed")
	}
	_, err = svc.IssueToken(uuid.Must(uuid.NewV7()))
	assert.Error(t, err)
}

func TestTokenService_ValidateToken_ClaimsTypeAndValidityBranches(t *testing.T) {
	origParse := parseJWTWithClaims
	t.Cleanup(func() { parseJWTWithClaims = origParse })

	svc, err := NewTokenService(newTestSeed(t), "k1", nil, time.Minute, 30*time.Second)
	require.NoError(t, err)

	t.Run("invalid claims type", func(t *testing.T) {
		parseJWTWithClaims = func(_ string, _ gjwt.Claims, _ gjwt.Keyfunc, _ ...gjwt.ParserOption) (*gjwt.Token, error) {
			return &gjwt.Token{Claims: gjwt.MapClaims{"foo": "bar"}, Valid: true}, nil
		}
		_, err := svc.ValidateToken("token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("token invalid flag", func(t *testing.T) {
		parseJWTWithClaims = func(_ string, _ gjwt.Claims, _ gjwt.Keyfunc, _ ...gjwt.ParserOption) (*gjwt.Token, error) {
			return &gjwt.Token{Claims: &Claims{ClientID: uuid.New()}, Valid: false}, nil
		}
		_, err := svc.ValidateToken("token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewTokenService_InvalidSeed(t *testing.T) {
	_, err := NewTokenService("not-hex", "k1", nil, time.Minute, 0)
	assert.Error(t, err)

	_, err = NewTokenService(hex.EncodeToString([]byte("short")), "k1", nil, time.Minute, 0)
	assert.Error(t, err)
}

func TestNewTokenService_InvalidVerificationKey(t *testing.T) {
	_, err := NewTokenService(newTestSeed(t), "k1", map[string]string{"k2": "not-hex"}, time.Minute, 0)
	assert.Error(t, err)
}
