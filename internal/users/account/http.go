// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/nexus/internal/platform/apperr"
	"github.com/taibuivan/nexus/internal/platform/constants"
	requestutil "github.com/taibuivan/nexus/internal/platform/request"
	"github.com/taibuivan/nexus/internal/platform/respond"
	"github.com/taibuivan/nexus/internal/users/auth"
)

// Handler implements the HTTP layer for the caller's own account.
type Handler struct {
	accountService *Service
	guard          *auth.Guard
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service, guard *auth.Guard) *Handler {
	return &Handler{accountService: service, guard: guard}
}

// Routes returns a [chi.Router] configured with the account endpoints.
// Every route requires a valid access token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.guard.Require)

	router.Get("/me", handler.getMe)
	router.Get("/profile", handler.getMe)
	router.Patch("/me", handler.updateMe)

	router.Get("/me/sessions", handler.listSessions)
	router.Delete("/me/sessions", handler.revokeOtherSessions)

	return router
}

/*
GET /api/v1/users/me (alias /profile).

Description: Returns the account loaded by the access guard. No extra query runs.

Response:
  - 200: Profile
  - 401: Not authenticated
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	user := auth.UserFromContext(request.Context())
	if user == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	respond.OK(writer, "", map[string]any{auth.FieldUser: user.Profile()})
}

type updateMeRequest struct {
	Name *string `json:"name"`
}

/*
PATCH /api/v1/users/me.

Request:
  - body: updateMeRequest (Partial JSON)

Response:
  - 200: The updated profile
  - 400: Invalid JSON or validation failure
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateMeRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.accountService.UpdateProfile(request.Context(), userID, UpdateProfileInput{Name: input.Name})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Profile updated successfully", map[string]any{auth.FieldUser: profile})
}

// listSessions handles GET /api/v1/users/me/sessions.
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	current := requestutil.Cookie(request, constants.RefreshTokenCookieName)
	if current == "" {
		current = request.Header.Get(constants.HeaderRefreshToken)
	}
	sessions, err := handler.accountService.ListSessions(request.Context(), userID, current)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "", map[string]any{"sessions": sessions})
}

type revokeSessionsRequest struct {
	RefreshToken string `json:"refreshToken"`
}

/*
DELETE /api/v1/users/me/sessions.

Description: The calling device keeps its session. Its refresh token is read
from the refreshToken cookie, then the X-Refresh-Token header, then the JSON body.

Response:
  - 200: Other sessions revoked
  - 400: Current refresh token missing
  - 401: Not authenticated
*/
func (handler *Handler) revokeOtherSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	current := requestutil.Cookie(request, constants.RefreshTokenCookieName)
	if current == "" {
		current = request.Header.Get(constants.HeaderRefreshToken)
	}
	if current == "" && request.ContentLength != 0 {
		var input revokeSessionsRequest
		if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
		current = input.RefreshToken
	}

	if err := handler.accountService.RevokeOtherSessions(request.Context(), userID, current); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Other sessions revoked", nil)
}
