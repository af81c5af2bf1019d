// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/taibuivan/nexus/internal/platform/apperr"
	"github.com/taibuivan/nexus/internal/platform/constants"
	"github.com/taibuivan/nexus/internal/platform/ctxkey"
	"github.com/taibuivan/nexus/internal/platform/ctxutil"
	"github.com/taibuivan/nexus/internal/platform/respond"
	"github.com/taibuivan/nexus/internal/platform/sec"
)

// maxGuardBodyBytes caps how much of a request body the guard inspects for a token.
const maxGuardBodyBytes = 1 << 20

// TokenVerifier defines the interface needed to verify access tokens in the guard.
//
// Declared here so the guard can be tested without real signing keys.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*sec.AuthClaims, error)
}

// UserLoader resolves the account named by a token.
type UserLoader interface {
	FindByID(context context.Context, id string) (*User, error)
}

// Guard authenticates requests to protected routes.
type Guard struct {
	verifier TokenVerifier
	users    UserLoader
}

// NewGuard creates a new access guard.
func NewGuard(verifier TokenVerifier, users UserLoader) *Guard {
	return &Guard{verifier: verifier, users: users}
}

/*
Require rejects any request that does not carry a valid access token for an
existing, verified account.

# Flow
 1. Candidate token: cookie "accessToken", then JSON body field "accessToken",
    then "Authorization: Bearer <token>".
 2. Verify signature and expiry. Expiry is reported with code TOKEN_EXPIRED.
 3. Load the user and require a verified e-mail.
 4. Attach claims and the loaded user to the request context.
*/
func (guard *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		token := extractAccessToken(request)
		if token == "" {
			respond.Error(writer, request, apperr.Unauthorized(MsgAccessTokenRequired))
			return
		}

		claims, err := guard.verifier.VerifyAccessToken(token)
		if err != nil {
			if errors.Is(err, sec.ErrTokenExpired) {
				respond.Error(writer, request, apperr.TokenExpired(MsgAccessTokenExpired))
				return
			}
			respond.Error(writer, request, apperr.Unauthorized(MsgInvalidToken))
			return
		}

		user, err := guard.users.FindByID(request.Context(), claims.UserID)
		if err != nil {
			if apperr.HasCode(err, apperr.CodeNotFound) {
				respond.Error(writer, request, apperr.Unauthorized(MsgUserNotFound))
				return
			}
			respond.Error(writer, request, err)
			return
		}

		if !user.IsVerified {
			respond.Error(writer, request, apperr.Unauthorized(MsgEmailNotVerified))
			return
		}

		ctx := ctxutil.WithAuthUser(request.Context(), claims)
		ctx = WithUser(ctx, user.Sanitized())

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// WithUser attaches the authenticated account to ctx.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, ctxkey.KeyAccount, user)
}

// UserFromContext returns the account attached by [Guard.Require], or nil.
// Credential fields of that account are always empty.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(ctxkey.KeyAccount).(*User)
	return user
}

// extractAccessToken applies the cookie, body, header precedence.
func extractAccessToken(request *http.Request) string {
	if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if token := accessTokenFromBody(request); token != "" {
		return token
	}

	header := request.Header.Get(constants.HeaderAuthorization)
	if strings.HasPrefix(header, constants.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, constants.BearerPrefix))
	}

	return ""
}

// accessTokenFromBody peeks at a JSON body and restores it for the next handler.
func accessTokenFromBody(request *http.Request) string {
	if request.Body == nil || request.Body == http.NoBody {
		return ""
	}
	if !strings.HasPrefix(request.Header.Get("Content-Type"), "application/json") {
		return ""
	}

	original := request.Body
	raw, err := io.ReadAll(io.LimitReader(original, maxGuardBodyBytes))
	request.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(raw), original), Closer: original}
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}

	return payload.AccessToken
}

type readCloser struct {
	io.Reader
	io.Closer
}
