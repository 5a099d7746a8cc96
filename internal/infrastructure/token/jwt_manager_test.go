package token

import (
	"testing"
	"time"

	domain "backoffice/boilerplate/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClaims = domain.Claims{
	Subject: "user-1",
	Email:   "jane@example.com",
	Name:    "Jane",
	Role:    domain.RoleUser,
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, 2*time.Hour, "boilerplate")

	access, err := m.IssueAccessToken(testClaims)
	require.NoError(t, err)
	got, err := m.Verify(access)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, domain.RoleUser, got.Role)
	assert.Empty(t, got.Subject)

	refresh, err := m.IssueRefreshToken(testClaims)
	require.NoError(t, err)
	got, err = m.Verify(refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.Subject)
}

func TestJWTManager_TokensAreUnique(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, time.Hour, "")
	a, err := m.IssueAccessToken(testClaims)
	require.NoError(t, err)
	b, err := m.IssueAccessToken(testClaims)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret", time.Hour, time.Hour, "")
	verifier := NewJWTManager("other", time.Hour, time.Hour, "")

	tok, err := issuer.IssueAccessToken(testClaims)
	require.NoError(t, err)
	_, err = verifier.Verify(tok)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", time.Minute, time.Minute, "")
	past := time.Now().Add(-time.Hour)
	m.nowFunc = func() time.Time { return past }
	tok, err := m.IssueAccessToken(testClaims)
	require.NoError(t, err)

	m.nowFunc = time.Now
	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTManager_RejectsOtherAlgorithm(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, time.Hour, "")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		Email: "jane@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.Verify(signed)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTManager_RejectsGarbage(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, time.Hour, "")
	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := m.Verify(tok)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid, tok)
	}
}

func TestJWTManager_RejectsUnknownRole(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, time.Hour, "")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: "jane@example.com",
		Role:  "Root",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.Verify(signed)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
