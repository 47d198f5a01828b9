// Package auth issues and validates the service's JWT access and refresh tokens.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "marketgo"

// Claims is the access-token payload.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the refresh-token payload. It deliberately carries no
// profile data, only the subject.
type RefreshClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies both token kinds with a shared HMAC secret.
type JWTManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewJWTManager(secret string, accessExpiry, refreshExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// RefreshExpiry returns the refresh token lifetime, used when persisting
// the token's revocation record.
func (m *JWTManager) RefreshExpiry() time.Duration {
	return m.refreshExpiry
}

func (m *JWTManager) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now().UTC()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    issuer,
	}
}

func (m *JWTManager) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *JWTManager) parse(tokenString string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	return err
}

// GenerateAccessToken signs a short-lived token carrying the user's
// identity and role.
func (m *JWTManager) GenerateAccessToken(userID, email, role string) (string, error) {
	token, err := m.sign(&Claims{
		UserID:           userID,
		Email:            email,
		Role:             role,
		RegisteredClaims: m.registered(userID, m.accessExpiry),
	})
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

// GenerateRefreshToken signs a long-lived token used only to mint new
// access tokens.
func (m *JWTManager) GenerateRefreshToken(userID string) (string, error) {
	token, err := m.sign(&RefreshClaims{
		UserID:           userID,
		RegisteredClaims: m.registered(userID, m.refreshExpiry),
	})
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return token, nil
}

// ValidateAccessToken verifies the signature, issuer and expiry and
// returns the embedded claims.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	var claims Claims
	if err := m.parse(tokenString, &claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return &claims, nil
}

// ValidateRefreshToken verifies a refresh token and returns its claims.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := m.parse(tokenString, &claims); err != nil {
		return nil, fmt.Errorf("parse refresh token: %w", err)
	}
	return &claims, nil
}
