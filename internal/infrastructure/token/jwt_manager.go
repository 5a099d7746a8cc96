package token

import (
	"errors"
	"fmt"
	"time"

	domain "backoffice/boilerplate/internal/domain/auth"
	usecase "backoffice/boilerplate/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTManager issues and validates JWT tokens.
type JWTManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	issuer        string
	nowFunc       func() time.Time
}

// NewJWTManager constructs a manager with the provided secret and expirations.
func NewJWTManager(secret string, accessExpiry, refreshExpiry time.Duration, issuer string) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		issuer:        issuer,
		nowFunc:       time.Now,
	}
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Claims represents token claims.
type Claims struct {
	Email string          `json:"email"`
	Name  string          `json:"name"`
	Role  domain.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs the identity claims without a subject.
func (m *JWTManager) IssueAccessToken(c domain.Claims) (string, error) {
	return m.sign(c, "", m.accessExpiry)
}

// IssueRefreshToken signs the identity claims with the user id as subject.
func (m *JWTManager) IssueRefreshToken(c domain.Claims) (string, error) {
	return m.sign(c, c.Subject, m.refreshExpiry)
}

func (m *JWTManager) sign(c domain.Claims, subject string, expiry time.Duration) (string, error) {
	now := m.nowFunc().UTC()
	claims := Claims{
		Email: c.Email,
		Name:  c.Name,
		Role:  c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates the token returning its identity claims.
func (m *JWTManager) Verify(tokenString string) (domain.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Email == "" || !claims.Role.Valid() {
		return domain.Claims{}, domain.ErrTokenInvalid
	}
	return domain.Claims{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Role:    claims.Role,
	}, nil
}
