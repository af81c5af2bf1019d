// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/nexus/internal/platform/constants"
	requestutil "github.com/taibuivan/nexus/internal/platform/request"
	"github.com/taibuivan/nexus/internal/platform/respond"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler is a thin transport layer: it decodes JSON, delegates to
// [Service], and translates sessions into cookies plus the JSON envelope.
type Handler struct {
	authService   *Service
	guard         *Guard
	secureCookies bool
}

// NewHandler constructs a new [Handler]. Cookies carry the Secure flag unless
// secureCookies is false (development over plain HTTP).
func NewHandler(service *Service, guard *Guard, secureCookies bool) *Handler {
	return &Handler{authService: service, guard: guard, secureCookies: secureCookies}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /signup (alias /register)
//   - POST /login, /verify-email, /resend-otp, /refresh-token
//   - POST /forgot-password, /reset-password
//   - POST /logout, /change-password (guarded)
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/signup", handler.signUp)
	router.Post("/register", handler.signUp)
	router.Post("/login", handler.login)
	router.Post("/verify-email", handler.verifyEmail)
	router.Post("/resend-otp", handler.resendOTP)
	router.Post("/refresh-token", handler.refreshToken)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.guard.Require)
		r.Post("/logout", handler.logout)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

// # Request Payloads

type signUpRequest struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	RefreshToken    string `json:"refreshToken"`
}

/*
SignUp handles the creation of a new, unverified account.

POST /api/v1/auth/signup

Response:
  - 201: Profile of the pending account (no tokens)
  - 400: Validation failure or password mismatch
  - 409: Email already registered
*/
func (handler *Handler) signUp(writer http.ResponseWriter, request *http.Request) {
	var input signUpRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.authService.SignUp(request.Context(), SignUpInput{
		Name:            input.Name,
		Username:        input.Username,
		Email:           input.Email,
		Password:        input.Password,
		ConfirmPassword: input.ConfirmPassword,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, MsgSignupSucceeded, map[string]any{FieldUser: profile})
}

/*
Login authenticates a verified user and establishes a session.

POST /api/v1/auth/login

Response:
  - 200: User profile, token pair, and both auth cookies
  - 401: Invalid email or password
  - 403: Email not verified yet
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		handler.clearCookies(writer)
		respond.Error(writer, request, err)
		return
	}

	handler.setCookies(writer, session.Tokens)
	respond.WithTokens(writer, MsgLoginSucceeded, map[string]any{FieldUser: session.User}, session.Tokens)
}

/*
VerifyEmail redeems the OTP and logs the user in.

POST /api/v1/auth/verify-email

Response:
  - 200: User profile, token pair, and both auth cookies
  - 400: ALREADY_VERIFIED or INVALID_OTP
  - 404: Unknown user or no pending code
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input verifyEmailRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.VerifyEmail(request.Context(), input.Email, input.OTP)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setCookies(writer, session.Tokens)
	respond.WithTokens(writer, MsgEmailVerified, map[string]any{FieldUser: session.User}, session.Tokens)
}

// resendOTP handles POST /api/v1/auth/resend-otp.
func (handler *Handler) resendOTP(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResendOTP(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, MsgOTPSent, nil)
}

/*
RefreshToken rotates the refresh token.

POST /api/v1/auth/refresh-token

Description: The token is read from the refreshToken cookie, falling back to
the JSON body for clients that cannot hold cookies.

Response:
  - 200: New token pair and cookies
  - 401: Missing, invalid, expired, or already used token
*/
func (handler *Handler) refreshToken(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.Cookie(request, constants.RefreshTokenCookieName)
	if token == "" {
		var input refreshTokenRequest
		_ = requestutil.DecodeJSON(writer, request, &input)
		token = input.RefreshToken
	}

	pair, err := handler.authService.Refresh(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setCookies(writer, *pair)
	respond.WithTokens(writer, MsgTokenRefreshed, nil, pair)
}

// forgotPassword handles POST /api/v1/auth/forgot-password.
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ForgotPassword(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, MsgResetEmailSent, nil)
}

/*
ResetPassword completes the forgot-password flow.

POST /api/v1/auth/reset-password

Response:
  - 200: Password replaced; every session of the user is revoked
  - 400: INVALID_OR_EXPIRED_TOKEN or validation failure
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, MsgPasswordReset, nil)
}

/*
ChangePassword lets an authenticated user replace their password.

POST /api/v1/auth/change-password

Description: The refresh token of the calling device survives; every other
session is revoked.

Response:
  - 200: Password changed
  - 401: Not authenticated or wrong current password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	currentRefreshToken := requestutil.Cookie(request, constants.RefreshTokenCookieName)
	if currentRefreshToken == "" {
		currentRefreshToken = input.RefreshToken
	}

	err = handler.authService.ChangePassword(request.Context(), userID, input.CurrentPassword, input.NewPassword, currentRefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, MsgPasswordChanged, nil)
}

/*
Logout terminates the current device session.

POST /api/v1/auth/logout

Description: Cookies are cleared whether or not revocation succeeds.

Response:
  - 200: Logged out
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	userID, _ := requestutil.RequiredUserID(request)

	token := requestutil.Cookie(request, constants.RefreshTokenCookieName)
	if token == "" {
		var input refreshTokenRequest
		_ = requestutil.DecodeJSON(writer, request, &input)
		token = input.RefreshToken
	}

	handler.clearCookies(writer)

	if err := handler.authService.Logout(request.Context(), userID, token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, MsgLoggedOut, nil)
}

// # Cookies

func (handler *Handler) setCookies(writer http.ResponseWriter, tokens TokenPair) {
	http.SetCookie(writer, handler.cookie(constants.AccessTokenCookieName, tokens.AccessToken, AccessTokenTTL))
	http.SetCookie(writer, handler.cookie(constants.RefreshTokenCookieName, tokens.RefreshToken, RefreshTokenTTL))
}

func (handler *Handler) clearCookies(writer http.ResponseWriter) {
	for _, name := range []string{constants.AccessTokenCookieName, constants.RefreshTokenCookieName} {
		cookie := handler.cookie(name, "", 0)
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		http.SetCookie(writer, cookie)
	}
}

func (handler *Handler) cookie(name, value string, timeToLive time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     constants.AuthCookiePath,
		MaxAge:   int(timeToLive.Seconds()),
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
