// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/nexus/internal/platform/apperr"
	"github.com/taibuivan/nexus/internal/platform/sec"
	"github.com/taibuivan/nexus/internal/platform/validate"
	"github.com/taibuivan/nexus/internal/users/auth"
)

// # Service Layer

// Service orchestrates profile reads and updates plus session transparency.
type Service struct {
	profileRepository ProfileRepository
	sessionRepository SessionRepository
	logger            *slog.Logger
	now               func() time.Time
}

// NewService constructs a new [Service] with its repository dependencies.
func NewService(profileRepo ProfileRepository, sessionRepo SessionRepository, logger *slog.Logger) *Service {
	return &Service{
		profileRepository: profileRepo,
		sessionRepository: sessionRepo,
		logger:            logger,
		now:               time.Now,
	}
}

// # Profile Management

// GetProfile returns the sanitized profile of a user.
func (service *Service) GetProfile(context context.Context, userID string) (*auth.Profile, error) {
	user, err := service.profileRepository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return user.Profile(), nil
}

// UpdateProfileInput defines the mutable subset of profile fields.
type UpdateProfileInput struct {
	Name *string
}

/*
UpdateProfile applies a partial set of changes to the caller's profile.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *auth.Profile: The updated profile
  - error: ValidationError or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*auth.Profile, error) {
	if input.Name != nil {
		validator := &validate.Validator{}
		if err := validator.
			Required(auth.FieldName, *input.Name).
			MinLen(auth.FieldName, *input.Name, auth.NameMinLength).
			MaxLen(auth.FieldName, *input.Name, auth.NameMaxLength).
			Err(); err != nil {
			return nil, err
		}

		if err := service.profileRepository.UpdateName(context, userID, *input.Name); err != nil {
			return nil, fmt.Errorf("account_service_update_failed: %w", err)
		}

		service.logger.InfoContext(context, "user_profile_updated", slog.String("user_id", userID))
	}

	return service.GetProfile(context, userID)
}

// # Session Security

/*
ListSessions returns the caller's active device sessions, newest first.

Parameters:
  - context: context.Context
  - userID: string
  - currentRefreshToken: string (May be empty; marks the calling device)

Returns:
  - []SessionInfo: Active sessions
  - error: Retrieval errors
*/
func (service *Service) ListSessions(context context.Context, userID, currentRefreshToken string) ([]SessionInfo, error) {
	tokens, err := service.sessionRepository.ListActive(context, userID, service.now())
	if err != nil {
		return nil, fmt.Errorf("account_service_list_sessions_failed: %w", err)
	}

	currentHash := ""
	if currentRefreshToken != "" {
		currentHash = sec.HashToken(currentRefreshToken)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, token := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        token.TokenHash[:min(sessionIDLength, len(token.TokenHash))],
			CreatedAt: token.CreatedAt,
			ExpiresAt: token.ExpiresAt,
			IsCurrent: currentHash != "" && token.TokenHash == currentHash,
		})
	}

	return sessions, nil
}

// RevokeOtherSessions signs out every device except the calling one.
// The calling device is identified by its refresh token, which is therefore required.
func (service *Service) RevokeOtherSessions(context context.Context, userID, currentRefreshToken string) error {
	if currentRefreshToken == "" {
		return apperr.ValidationError(MsgCurrentSessionRequired, apperr.FieldError{
			Field:   auth.FieldRefreshToken,
			Message: MsgCurrentSessionRequired,
		})
	}

	if err := service.sessionRepository.DeleteAllExcept(context, userID, sec.HashToken(currentRefreshToken)); err != nil {
		return fmt.Errorf("account_service_revoke_sessions_failed: %w", err)
	}

	service.logger.InfoContext(context, "user_sessions_revoked", slog.String("user_id", userID))
	return nil
}
