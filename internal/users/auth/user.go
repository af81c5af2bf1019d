// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the credential store, session manager and access guard.

It defines the core domain entities (User, RefreshToken) and the logic for signup,
e-mail verification, login, refresh-token rotation, password recovery and logout.

# Architecture

  - store.go: repository contracts, implemented by Postgres (credentials, refresh
    tokens) and Redis (resend cooldown).
  - service.go: the session state machine. All policy lives here.
  - guard.go: request-time verification of access tokens.
  - http.go: JSON transport, cookies and route registration.
*/
package auth

import (
	"strings"
	"time"

	"github.com/taibuivan/nexus/internal/platform/sec"
)

// # Domain Entities

// User is a credential record. Secret-bearing fields never leave the process.
type User struct {
	ID           string
	Name         string
	Username     string
	Email        string
	PasswordHash string
	Role         sec.UserRole
	IsVerified   bool

	// Pending e-mail verification. Empty hash means nothing is pending.
	VerificationTokenHash    string
	VerificationTokenExpires *time.Time

	// Pending password reset. The signed token is stored as issued.
	ResetPasswordToken        string
	ResetPasswordTokenExpires *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile is the sanitized projection of [User] returned to clients.
type Profile struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Username        string       `json:"username"`
	Email           string       `json:"email"`
	Role            sec.UserRole `json:"role"`
	IsEmailVerified bool         `json:"isEmailVerified"`
	LastLogin       *time.Time   `json:"lastLogin,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// Profile strips hashes and pending tokens.
func (user *User) Profile() *Profile {
	return &Profile{
		ID:              user.ID,
		Name:            user.Name,
		Username:        user.Username,
		Email:           user.Email,
		Role:            user.Role,
		IsEmailVerified: user.IsVerified,
		LastLogin:       user.LastLoginAt,
		CreatedAt:       user.CreatedAt,
	}
}

// Sanitized returns a copy without the password hash or pending tokens.
func (user *User) Sanitized() *User {
	sanitized := *user
	sanitized.PasswordHash = ""
	sanitized.VerificationTokenHash = ""
	sanitized.VerificationTokenExpires = nil
	sanitized.ResetPasswordToken = ""
	sanitized.ResetPasswordTokenExpires = nil
	return &sanitized
}

// Identity returns the subject embedded in tokens minted for this user.
func (user *User) Identity() sec.Identity {
	return sec.Identity{UserID: user.ID, Email: user.Email}
}

// HasPendingVerification reports whether an unexpired OTP is on file.
func (user *User) HasPendingVerification(now time.Time) bool {
	return user.VerificationTokenHash != "" &&
		user.VerificationTokenExpires != nil &&
		user.VerificationTokenExpires.After(now)
}

// RefreshToken is one stored device session. Only the SHA-256 of the token is kept.
type RefreshToken struct {
	TokenHash string    `json:"-"`
	UserID    string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenPair is returned to the client after login, verification and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is the result of any operation that authenticates the caller.
type Session struct {
	User   *Profile
	Tokens TokenPair
}

// NormalizeEmail trims and lower-cases an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// # Field Identifiers

// Field names used in validation details and JSON payloads.
const (
	FieldName            = "name"
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldOTP             = "otp"
	FieldToken           = "token"
	FieldCurrentPassword = "currentPassword"
	FieldNewPassword     = "newPassword"
	FieldAccessToken     = "accessToken"
	FieldRefreshToken    = "refreshToken"
	FieldUser            = "user"
)
