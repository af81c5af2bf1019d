// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for credential records.
//
// Every mutation is a single statement. Conditional updates report a lost race
// through an [apperr.AppError] rather than silently succeeding.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound when absent, or database failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given normalized email.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound when absent, or database failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		Create persists a brand-new, unverified user with its first OTP hash.

		Returns:
		  - error: apperr.Conflict when the email is taken, or persistence failures
	*/
	Create(context context.Context, user *User) error

	// SetVerificationToken overwrites the pending OTP hash and its expiry.
	SetVerificationToken(context context.Context, userID, otpHash string, expiresAt time.Time) error

	/*
		MarkVerified flips isverified to true and clears the pending OTP.

		Description: Conditional on isverified being false, so it succeeds exactly once.

		Returns:
		  - error: apperr.AlreadyVerified when another request won, or persistence failures
	*/
	MarkVerified(context context.Context, userID string) error

	// TouchLastLogin records the time of the latest successful authentication.
	TouchLastLogin(context context.Context, userID string, at time.Time) error

	// SetResetToken stores a freshly signed reset token, replacing any previous one.
	SetResetToken(context context.Context, userID, token string, expiresAt time.Time) error

	/*
		ResetPassword replaces the password hash and clears the reset token.

		Description: Compare-and-set on the stored token and its expiry, so a token
		can be redeemed at most once even under concurrent requests.

		Parameters:
		  - userID: string
		  - token: string (The presented reset token)
		  - passwordHash: string (New bcrypt hash)
		  - now: time.Time (Reference time for the expiry check)

		Returns:
		  - error: apperr.InvalidOrExpired when nothing matched, or persistence failures
	*/
	ResetPassword(context context.Context, userID, token, passwordHash string, now time.Time) error

	// UpdatePassword replaces only the password hash.
	UpdatePassword(context context.Context, userID, passwordHash string) error
}

// # Refresh Token Data Access

// RefreshTokenRepository stores the per-device refresh tokens of each user.
type RefreshTokenRepository interface {

	// Create stores a new refresh token.
	Create(context context.Context, token *RefreshToken) error

	/*
		Rotate atomically swaps an existing token for a new one.

		Description: Deletes the old row only if it belongs to the user and is
		unexpired, then inserts the replacement, all in one transaction.

		Returns:
		  - error: apperr.Unauthorized when the old token is not stored, or persistence failures
	*/
	Rotate(context context.Context, userID, oldTokenHash string, replacement *RefreshToken, now time.Time) error

	// Delete removes a single token. Missing rows are not an error.
	Delete(context context.Context, userID, tokenHash string) error

	// DeleteAllForUser revokes every device session of the user.
	DeleteAllForUser(context context.Context, userID string) error

	// DeleteAllExcept revokes every session of the user but the one given.
	DeleteAllExcept(context context.Context, userID, keepTokenHash string) error

	// PruneExpired removes a single user's expired tokens.
	PruneExpired(context context.Context, userID string, now time.Time) error

	/*
		DeleteExpired physically removes every expired token across all users.

		Returns:
		  - int64: Number of rows removed
		  - error: Cleanup failures
	*/
	DeleteExpired(context context.Context, now time.Time) (int64, error)

	// ListActive returns the user's unexpired sessions, newest first.
	ListActive(context context.Context, userID string, now time.Time) ([]RefreshToken, error)
}

// # Volatile Data Access

// OTPCooldownRepository rate-limits verification e-mails per address.
type OTPCooldownRepository interface {

	/*
		Acquire claims the cooldown window for an email.

		Returns:
		  - bool: true when the caller may send now
		  - time.Duration: remaining wait when it may not
		  - error: Storage failures
	*/
	Acquire(context context.Context, email string, window time.Duration) (bool, time.Duration, error)

	// Release frees a held window so a failed send does not lock the address out.
	Release(context context.Context, email string) error
}
