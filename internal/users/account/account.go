// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles the authenticated member's own profile and device sessions.

# Architecture

  - Entities: SessionInfo (DTO over a stored refresh token).
  - Domain: This package depends on the auth package for the User entity and
    the refresh-token store.
  - Security: Every route sits behind the access guard.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/nexus/internal/users/auth"
)

// # Domain Entities

// SessionInfo is the client-safe view of one device session.
// It never carries the token hash itself.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsCurrent bool      `json:"isCurrent"`
}

// sessionIDLength is how much of the token hash identifies a session to the client.
const sessionIDLength = 16

// MsgCurrentSessionRequired is returned when the calling device cannot be identified.
const MsgCurrentSessionRequired = "Refresh token of the current session is required"

// # Repository Contracts

// ProfileRepository defines the persistence contract for mutable profile fields.
type ProfileRepository interface {
	/*
		FindByID retrieves a user record by their unique ID.

		Returns:
		  - *auth.User: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*auth.User, error)

	/*
		UpdateName replaces the display name of a user.

		Returns:
		  - error: apperr.NotFound or storage failures
	*/
	UpdateName(context context.Context, userID, name string) error
}

// SessionRepository is the slice of the refresh-token store this package needs.
type SessionRepository interface {
	ListActive(context context.Context, userID string, now time.Time) ([]auth.RefreshToken, error)
	DeleteAllExcept(context context.Context, userID, keepTokenHash string) error
}
