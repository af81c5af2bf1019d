// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"time"

	"github.com/taibuivan/nexus/internal/platform/sec"
)

// # Authentication Constraints

const (
	// AccessTokenTTL mirrors the signed lifetime so cookies expire with the token.
	AccessTokenTTL = sec.AccessTokenTTL

	// RefreshTokenTTL is both the JWT lifetime and the stored row lifetime.
	RefreshTokenTTL = sec.RefreshTokenTTL

	// ResetTokenTTL is how long a stored password reset token can be redeemed.
	ResetTokenTTL = sec.PasswordResetTokenTTL

	// OTPResendCooldown is the minimum gap between two verification e-mails.
	OTPResendCooldown = 60 * time.Second

	// PasswordMinLength is the shortest accepted password.
	PasswordMinLength = 6

	// NameMinLength applies to both the display name and the username.
	NameMinLength = 3

	// NameMaxLength bounds profile fields.
	NameMaxLength = 100
)

// # Client Messages

const (
	MsgSignupSucceeded      = "Registration successful. Please check your email to verify your account."
	MsgLoginSucceeded       = "Login successful"
	MsgEmailVerified        = "Email verified successfully"
	MsgOTPSent              = "OTP sent on email successfully"
	MsgTokenRefreshed       = "Token refreshed successfully"
	MsgResetEmailSent       = "Reset password email sent successfully"
	MsgPasswordReset        = "Password reset successfully"
	MsgPasswordChanged      = "Password changed successfully"
	MsgLoggedOut            = "Logged out successfully"
	MsgPasswordsDontMatch   = "Passwords don't match!"
	MsgEmailRegistered      = "Email already registered!"
	MsgInvalidCredentials   = "Invalid email or password"
	MsgVerifyEmailFirst     = "Please verify your email first"
	MsgUserNotFound         = "User not found"
	MsgVerificationExpired  = "User not found or verification token expired"
	MsgAlreadyVerified      = "Email already verified"
	MsgInvalidOTP           = "Invalid or expired OTP"
	MsgRefreshRequired      = "Refresh token is required"
	MsgRefreshInvalid       = "Invalid or expired refresh token"
	MsgResetInvalid         = "Invalid or expired reset password token"
	MsgCurrentPasswordWrong = "Current password is incorrect"
	MsgAccessTokenRequired  = "Access token required"
	MsgAccessTokenExpired   = "Access token expired"
	MsgInvalidToken         = "Invalid token"
	MsgEmailNotVerified     = "Email not verified"
)
