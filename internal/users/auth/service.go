// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/taibuivan/nexus/internal/platform/apperr"
	"github.com/taibuivan/nexus/internal/platform/sec"
	"github.com/taibuivan/nexus/internal/platform/validate"
	"github.com/taibuivan/nexus/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for minting and checking signed tokens.
// It is satisfied by [sec.TokenService].
type TokenProvider interface {
	IssueAccessToken(identity sec.Identity) (string, error)
	IssueRefreshToken(identity sec.Identity) (string, error)
	IssuePasswordResetToken(identity sec.Identity) (string, error)
	VerifyRefreshToken(token string) (*sec.AuthClaims, error)
	VerifyPasswordResetToken(token string) (*sec.AuthClaims, error)
}

// Mailer delivers the transactional e-mails of the auth flow.
// It is satisfied by [mail.Mailer].
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, name, otp string) error
	SendPasswordResetEmail(ctx context.Context, email, name, token string) error
	SendWelcomeEmail(ctx context.Context, email, name string) error
}

// Service implements the session state machine:
//
//	Anonymous -> PendingVerification -> Authenticated -> (LoggedOut | PasswordResetPending) -> Authenticated
//
// It holds no in-process locks. Every state change is a single conditional
// statement in the repositories, so concurrent requests resolve in storage.
type Service struct {
	userRepository         UserRepository
	refreshTokenRepository RefreshTokenRepository
	cooldownRepository     OTPCooldownRepository
	tokenProvider          TokenProvider
	mailer                 Mailer
	logger                 *slog.Logger
	now                    func() time.Time
}

// ServiceOption customises a [Service].
type ServiceOption func(*Service)

// WithServiceClock overrides the time source used for expiries.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(service *Service) {
		service.now = now
	}
}

// NewService constructs a new [Service] with necessary dependencies.
// cooldownRepo may be nil, in which case resends are not throttled.
func NewService(
	userRepo UserRepository,
	refreshRepo RefreshTokenRepository,
	cooldownRepo OTPCooldownRepository,
	tokenProv TokenProvider,
	mailer Mailer,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	service := &Service{
		userRepository:         userRepo,
		refreshTokenRepository: refreshRepo,
		cooldownRepository:     cooldownRepo,
		tokenProvider:          tokenProv,
		mailer:                 mailer,
		logger:                 logger,
		now:                    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// # Registration Flow

// SignUpInput holds the data required to enroll a new member.
type SignUpInput struct {
	Name            string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

/*
SignUp validates, hashes, and persists a brand new unverified account, then
e-mails its verification code.

Description: No tokens are returned. If the e-mail cannot be sent the record
stays in place and the client can call ResendOTP.

Parameters:
  - context: context.Context
  - input: SignUpInput

Returns:
  - *Profile: Created account (sanitized)
  - error: ValidationError, Conflict, or Internal on mail failure
*/
func (service *Service) SignUp(context context.Context, input SignUpInput) (*Profile, error) {
	email := NormalizeEmail(input.Email)

	validator := &validate.Validator{}
	validator.
		Required(FieldName, input.Name).
		MinLen(FieldName, input.Name, NameMinLength).
		MaxLen(FieldName, input.Name, NameMaxLength).
		Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, NameMinLength).
		MaxLen(FieldUsername, input.Username, NameMaxLength).
		Username(FieldUsername, input.Username).
		Required(FieldEmail, email).
		Email(FieldEmail, email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, PasswordMinLength).
		MaxBytes(FieldPassword, input.Password, sec.MaxPasswordBytes).
		Required(FieldConfirmPassword, input.ConfirmPassword)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if input.Password != input.ConfirmPassword {
		return nil, apperr.ValidationError(MsgPasswordsDontMatch, apperr.FieldError{
			Field:   FieldConfirmPassword,
			Message: MsgPasswordsDontMatch,
		})
	}

	// Fast path; the unique index still catches a concurrent duplicate in Create.
	if _, err := service.userRepository.FindByEmail(context, email); err == nil {
		return nil, apperr.Conflict(MsgEmailRegistered)
	} else if !apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, fmt.Errorf("auth_service_signup_lookup_failed: %w", err)
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	otp, err := sec.GenerateOTPAt(service.now())
	if err != nil {
		return nil, fmt.Errorf("auth_service_otp_failed: %w", err)
	}

	user := &User{
		ID:                       uuid.New(),
		Name:                     input.Name,
		Username:                 input.Username,
		Email:                    email,
		PasswordHash:             hashedPassword,
		Role:                     sec.RoleDeveloper,
		IsVerified:               false,
		VerificationTokenHash:    otp.Hash,
		VerificationTokenExpires: &otp.ExpiresAt,
		CreatedAt:                service.now(),
	}

	if err := service.userRepository.Create(context, user); err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_signup_failed: %w", err)
	}

	// Start the resend window so the first resend waits for the cooldown too.
	service.acquireCooldown(context, email)

	if err := service.mailer.SendVerificationEmail(context, user.Email, user.Name, otp.Code); err != nil {
		service.releaseCooldown(context, email)
		return nil, apperr.InternalWithMessage("Failed to send verification email. Please try again later.", err)
	}

	service.logger.InfoContext(context, "auth_signup_succeeded", slog.String("user_id", user.ID))

	return user.Profile(), nil
}

/*
VerifyEmail redeems a pending OTP, marks the account verified and logs the user in.

Description: The welcome e-mail is best effort. The account is verified and
tokens are already issued when it is sent, so a delivery failure is only logged.

Parameters:
  - context: context.Context
  - email: string
  - otp: string

Returns:
  - *Session: Sanitized user and a fresh token pair
  - error: NotFound, AlreadyVerified, InvalidOTP or storage failures
*/
func (service *Service) VerifyEmail(context context.Context, email, otp string) (*Session, error) {
	email = NormalizeEmail(email)

	validator := &validate.Validator{}
	if err := validator.Required(FieldEmail, email).Required(FieldOTP, otp).Err(); err != nil {
		return nil, err
	}

	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		return nil, err
	}

	if user.IsVerified {
		return nil, apperr.AlreadyVerified(MsgAlreadyVerified)
	}

	if !user.HasPendingVerification(service.now()) {
		return nil, apperr.NotFound(MsgVerificationExpired)
	}

	if !sec.VerifyOTP(otp, user.VerificationTokenHash) {
		service.logger.WarnContext(context, "auth_verify_otp_mismatch", slog.String("user_id", user.ID))
		return nil, apperr.InvalidOTP(MsgInvalidOTP)
	}

	// Loses to a concurrent verification with AlreadyVerified.
	if err := service.userRepository.MarkVerified(context, user.ID); err != nil {
		return nil, err
	}
	user.IsVerified = true
	user.VerificationTokenHash = ""
	user.VerificationTokenExpires = nil

	session, err := service.startSession(context, user)
	if err != nil {
		return nil, err
	}

	if err := service.mailer.SendWelcomeEmail(context, user.Email, user.Name); err != nil {
		service.logger.WarnContext(context, "auth_welcome_mail_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	service.logger.InfoContext(context, "auth_email_verified", slog.String("user_id", user.ID))

	return session, nil
}

/*
ResendOTP issues a new verification code, replacing the previous one.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: NotFound, AlreadyVerified, RateLimited, or Internal on mail failure
*/
func (service *Service) ResendOTP(context context.Context, email string) error {
	email = NormalizeEmail(email)

	validator := &validate.Validator{}
	if err := validator.Required(FieldEmail, email).Email(FieldEmail, email).Err(); err != nil {
		return err
	}

	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		return err
	}

	if user.IsVerified {
		return apperr.AlreadyVerified(MsgAlreadyVerified)
	}

	if wait, throttled := service.acquireCooldown(context, email); throttled {
		return apperr.RateLimited(int(math.Ceil(wait.Seconds())))
	}

	otp, err := sec.GenerateOTPAt(service.now())
	if err != nil {
		return fmt.Errorf("auth_service_otp_failed: %w", err)
	}

	if err := service.userRepository.SetVerificationToken(context, user.ID, otp.Hash, otp.ExpiresAt); err != nil {
		service.releaseCooldown(context, email)
		return fmt.Errorf("auth_service_resend_otp_failed: %w", err)
	}

	if err := service.mailer.SendVerificationEmail(context, user.Email, user.Name, otp.Code); err != nil {
		service.releaseCooldown(context, email)
		return apperr.InternalWithMessage("Failed to send verification email. Please try again later.", err)
	}

	return nil
}

// acquireCooldown reports whether the resend window for email is still held.
// Storage failures fail open: a missing cooldown is preferable to a locked-out user.
func (service *Service) acquireCooldown(context context.Context, email string) (time.Duration, bool) {
	if service.cooldownRepository == nil {
		return 0, false
	}

	acquired, wait, err := service.cooldownRepository.Acquire(context, email, OTPResendCooldown)
	if err != nil {
		service.logger.WarnContext(context, "auth_otp_cooldown_unavailable", slog.Any("error", err))
		return 0, false
	}

	return wait, !acquired
}

// releaseCooldown frees the window after a send that never reached the user.
func (service *Service) releaseCooldown(context context.Context, email string) {
	if service.cooldownRepository == nil {
		return
	}

	if err := service.cooldownRepository.Release(context, email); err != nil {
		service.logger.WarnContext(context, "auth_otp_cooldown_release_failed", slog.Any("error", err))
	}
}

// # Authentication Flow

/*
Login validates user credentials and issues a token pair.

Description: Unknown e-mail and wrong password are indistinguishable, including
in timing: a dummy bcrypt comparison runs when the user does not exist.
Expired refresh tokens of the user are pruned before the new one is stored.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - *Session: Sanitized user and tokens
  - error: Unauthorized, Forbidden (unverified) or storage failures
*/
func (service *Service) Login(context context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)

	validator := &validate.Validator{}
	if err := validator.
		Required(FieldEmail, email).
		Email(FieldEmail, email).
		Required(FieldPassword, password).
		Err(); err != nil {
		return nil, err
	}

	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		if !apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
		}
		sec.BurnPasswordCheck(password)
		return nil, apperr.Unauthorized(MsgInvalidCredentials)
	}

	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		service.logger.WarnContext(context, "auth_login_failed", slog.String("user_id", user.ID))
		return nil, apperr.Unauthorized(MsgInvalidCredentials)
	}

	if !user.IsVerified {
		return nil, apperr.Forbidden(MsgVerifyEmailFirst)
	}

	if err := service.refreshTokenRepository.PruneExpired(context, user.ID, service.now()); err != nil {
		return nil, fmt.Errorf("auth_service_login_prune_failed: %w", err)
	}

	session, err := service.startSession(context, user)
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "auth_login_succeeded", slog.String("user_id", user.ID))

	return session, nil
}

// startSession mints a token pair, stores the refresh token and stamps lastloginat.
func (service *Service) startSession(context context.Context, user *User) (*Session, error) {
	pair, row, err := service.mintPair(user)
	if err != nil {
		return nil, err
	}

	if err := service.refreshTokenRepository.Create(context, row); err != nil {
		return nil, fmt.Errorf("auth_service_store_refresh_failed: %w", err)
	}

	loginAt := row.CreatedAt
	if err := service.userRepository.TouchLastLogin(context, user.ID, loginAt); err != nil {
		return nil, fmt.Errorf("auth_service_touch_last_login_failed: %w", err)
	}
	user.LastLoginAt = &loginAt

	return &Session{User: user.Profile(), Tokens: *pair}, nil
}

// mintPair signs an access and refresh token and prepares the refresh row.
func (service *Service) mintPair(user *User) (*TokenPair, *RefreshToken, error) {
	identity := user.Identity()

	accessToken, err := service.tokenProvider.IssueAccessToken(identity)
	if err != nil {
		return nil, nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	refreshToken, err := service.tokenProvider.IssueRefreshToken(identity)
	if err != nil {
		return nil, nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	now := service.now()
	row := &RefreshToken{
		TokenHash: sec.HashToken(refreshToken),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(RefreshTokenTTL),
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, row, nil
}

// # Session Management

/*
Refresh implements refresh-token rotation.

Description: The presented token must verify and still be stored. It is then
replaced by a new one in a single transaction, so a token can be redeemed once.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *TokenPair: New access and refresh tokens
  - error: Unauthorized or storage failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized(MsgRefreshRequired)
	}

	claims, err := service.tokenProvider.VerifyRefreshToken(refreshToken)
	if err != nil {
		service.logger.WarnContext(context, "auth_refresh_rejected", slog.String("reason", err.Error()))
		return nil, apperr.Unauthorized(MsgRefreshInvalid)
	}

	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthorized(MsgRefreshInvalid)
		}
		return nil, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}

	pair, row, err := service.mintPair(user)
	if err != nil {
		return nil, err
	}

	err = service.refreshTokenRepository.Rotate(context, user.ID, sec.HashToken(refreshToken), row, service.now())
	if err != nil {
		if apperr.IsAppError(err) {
			service.logger.WarnContext(context, "auth_refresh_rejected",
				slog.String("user_id", user.ID),
				slog.String("reason", "not_stored"),
			)
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_refresh_rotate_failed: %w", err)
	}

	return pair, nil
}

/*
Logout revokes one device session. It is idempotent.

Parameters:
  - context: context.Context
  - userID: string (From the access guard; may be empty)
  - refreshToken: string (May be empty)

Returns:
  - error: Storage failures only
*/
func (service *Service) Logout(context context.Context, userID, refreshToken string) error {
	if userID == "" || refreshToken == "" {
		return nil
	}

	if err := service.refreshTokenRepository.Delete(context, userID, sec.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

// # Password Recovery

/*
ForgotPassword issues a one-hour reset token and e-mails the reset link.

Description: A newer request replaces any earlier pending token.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: NotFound, or Internal on mail failure
*/
func (service *Service) ForgotPassword(context context.Context, email string) error {
	email = NormalizeEmail(email)

	validator := &validate.Validator{}
	if err := validator.Required(FieldEmail, email).Email(FieldEmail, email).Err(); err != nil {
		return err
	}

	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		return err
	}

	resetToken, err := service.tokenProvider.IssuePasswordResetToken(user.Identity())
	if err != nil {
		return fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	expiresAt := service.now().Add(ResetTokenTTL)
	if err := service.userRepository.SetResetToken(context, user.ID, resetToken, expiresAt); err != nil {
		return fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	if err := service.mailer.SendPasswordResetEmail(context, user.Email, user.Name, resetToken); err != nil {
		return apperr.InternalWithMessage("Failed to send reset password email. Please try again later.", err)
	}

	service.logger.InfoContext(context, "auth_password_reset_requested", slog.String("user_id", user.ID))

	return nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Verifies the token signature, then redeems it with a single
compare-and-set on the stored copy. On success every refresh token of the
user is deleted.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - error: ValidationError, InvalidOrExpired or storage failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {
	validator := &validate.Validator{}
	if err := validator.
		Required(FieldToken, token).
		Required(FieldNewPassword, newPassword).
		MinLen(FieldNewPassword, newPassword, PasswordMinLength).
		MaxBytes(FieldNewPassword, newPassword, sec.MaxPasswordBytes).
		Err(); err != nil {
		return err
	}

	claims, err := service.tokenProvider.VerifyPasswordResetToken(token)
	if err != nil {
		return apperr.InvalidOrExpired(MsgResetInvalid)
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	if err := service.userRepository.ResetPassword(context, claims.UserID, token, hashedPassword, service.now()); err != nil {
		if apperr.IsAppError(err) {
			return err
		}
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	if err := service.refreshTokenRepository.DeleteAllForUser(context, claims.UserID); err != nil {
		return fmt.Errorf("auth_service_reset_password_revoke_failed: %w", err)
	}

	service.logger.InfoContext(context, "auth_password_reset_completed", slog.String("user_id", claims.UserID))

	return nil
}

/*
ChangePassword allows an authenticated user to update their credentials.

Description: Keeps only the refresh token of the calling device, or revokes
every session when the caller did not present one.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string
  - currentRefreshToken: string

Returns:
  - error: ValidationError, Unauthorized or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID, currentPassword, newPassword, currentRefreshToken string) error {
	validator := &validate.Validator{}
	if err := validator.
		Required(FieldCurrentPassword, currentPassword).
		Required(FieldNewPassword, newPassword).
		MinLen(FieldNewPassword, newPassword, PasswordMinLength).
		MaxBytes(FieldNewPassword, newPassword, sec.MaxPasswordBytes).
		Err(); err != nil {
		return err
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return apperr.Unauthorized(MsgCurrentPasswordWrong)
		}
		return fmt.Errorf("auth_service_change_password_lookup_failed: %w", err)
	}

	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized(MsgCurrentPasswordWrong)
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_update_failed: %w", err)
	}

	if currentRefreshToken != "" {
		err = service.refreshTokenRepository.DeleteAllExcept(context, userID, sec.HashToken(currentRefreshToken))
	} else {
		err = service.refreshTokenRepository.DeleteAllForUser(context, userID)
	}
	if err != nil {
		return fmt.Errorf("auth_service_change_password_revoke_failed: %w", err)
	}

	service.logger.InfoContext(context, "auth_password_changed", slog.String("user_id", userID))

	return nil
}
