// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, OTPs, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces declared by the consumers.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// # Token Lifetimes

// Lifetimes are fixed so every token of a given purpose carries the same security posture.
const (
	// AccessTokenTTL is the lifetime of a signed access token.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the lifetime of a signed refresh token.
	RefreshTokenTTL = 7 * 24 * time.Hour

	// PasswordResetTokenTTL is the lifetime of a signed password-reset token.
	PasswordResetTokenTTL = 1 * time.Hour
)

// TokenPurpose namespaces a token so it can only be redeemed for what it was minted for.
type TokenPurpose string

const (
	PurposeAccess        TokenPurpose = "access"
	PurposeRefresh       TokenPurpose = "refresh"
	PurposePasswordReset TokenPurpose = "password_reset"
)

var (
	// ErrTokenExpired is returned when a token is well-formed and signed but past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid covers every other verification failure (signature, structure, secret, purpose).
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// Identity is the subject information embedded in every token.
type Identity struct {
	UserID string
	Email  string
}

// AuthClaims represents the payload embedded inside a JWT.
//
// Custom application claims are abbreviated to keep the JWT payload small.
type AuthClaims struct {
	jwt.RegisteredClaims

	UserID  string       `json:"uid"`
	Email   string       `json:"email,omitempty"`
	Purpose TokenPurpose `json:"typ"`
}

// TokenSecrets holds the three HMAC keys. They must be non-empty and pairwise distinct.
type TokenSecrets struct {
	Access        string
	Refresh       string
	PasswordReset string
}

// TokenService handles generation and verification of HS256 JWTs for every token purpose.
type TokenService struct {
	secrets map[TokenPurpose][]byte
	issuer  string
	now     func() time.Time
}

// TokenOption customises a [TokenService].
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(service *TokenService) {
		service.now = now
	}
}

// NewTokenService creates a new TokenService.
func NewTokenService(secrets TokenSecrets, issuer string, opts ...TokenOption) (*TokenService, error) {
	if secrets.Access == "" || secrets.Refresh == "" || secrets.PasswordReset == "" {
		return nil, fmt.Errorf("auth: all token secrets must be set")
	}

	if secrets.Access == secrets.Refresh || secrets.Access == secrets.PasswordReset || secrets.Refresh == secrets.PasswordReset {
		return nil, fmt.Errorf("auth: token secrets must be distinct")
	}

	service := &TokenService{
		secrets: map[TokenPurpose][]byte{
			PurposeAccess:        []byte(secrets.Access),
			PurposeRefresh:       []byte(secrets.Refresh),
			PurposePasswordReset: []byte(secrets.PasswordReset),
		},
		issuer: issuer,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// # Issuance

// IssueAccessToken signs a 15-minute access token.
func (service *TokenService) IssueAccessToken(identity Identity) (string, error) {
	return service.issue(identity, PurposeAccess, AccessTokenTTL)
}

// IssueRefreshToken signs a 7-day refresh token.
func (service *TokenService) IssueRefreshToken(identity Identity) (string, error) {
	return service.issue(identity, PurposeRefresh, RefreshTokenTTL)
}

// IssuePasswordResetToken signs a 1-hour password-reset token.
func (service *TokenService) IssuePasswordResetToken(identity Identity) (string, error) {
	return service.issue(identity, PurposePasswordReset, PasswordResetTokenTTL)
}

func (service *TokenService) issue(identity Identity, purpose TokenPurpose, timeToLive time.Duration) (string, error) {
	if identity.UserID == "" {
		return "", fmt.Errorf("auth: cannot sign token without a subject")
	}

	currentTime := service.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps two tokens minted within the same second distinct.
			ID:        uuid.NewString(),
			Subject:   identity.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:  identity.UserID,
		Email:   identity.Email,
		Purpose: purpose,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secrets[purpose])
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign %s token: %w", purpose, err)
	}

	return signedToken, nil
}

// # Verification

// VerifyAccessToken validates an access token.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, PurposeAccess)
}

// VerifyRefreshToken validates a refresh token.
func (service *TokenService) VerifyRefreshToken(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, PurposeRefresh)
}

// VerifyPasswordResetToken validates a password-reset token.
func (service *TokenService) VerifyPasswordResetToken(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, PurposePasswordReset)
}

func (service *TokenService) verify(tokenString string, purpose TokenPurpose) (*AuthClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	}
	if service.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(service.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		return service.secrets[purpose], nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.Purpose != purpose || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
