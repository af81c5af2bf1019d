// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexus/internal/platform/apperr"
	"github.com/taibuivan/nexus/internal/platform/constants"
	"github.com/taibuivan/nexus/internal/platform/sec"
	"github.com/taibuivan/nexus/internal/users/account"
	"github.com/taibuivan/nexus/internal/users/auth"
)

// # Fakes

type fakeProfiles struct {
	users map[string]*auth.User
}

func (profiles *fakeProfiles) FindByID(_ context.Context, id string) (*auth.User, error) {
	user, ok := profiles.users[id]
	if !ok {
		return nil, apperr.NotFound(auth.MsgUserNotFound)
	}
	copied := *user
	return &copied, nil
}

func (profiles *fakeProfiles) UpdateName(_ context.Context, userID, name string) error {
	user, ok := profiles.users[userID]
	if !ok {
		return apperr.NotFound(auth.MsgUserNotFound)
	}
	user.Name = name
	return nil
}

type fakeSessions struct {
	tokens []auth.RefreshToken
}

func (sessions *fakeSessions) ListActive(_ context.Context, userID string, now time.Time) ([]auth.RefreshToken, error) {
	active := make([]auth.RefreshToken, 0)
	for _, token := range sessions.tokens {
		if token.UserID == userID && token.ExpiresAt.After(now) {
			active = append(active, token)
		}
	}
	return active, nil
}

func (sessions *fakeSessions) DeleteAllExcept(_ context.Context, userID, keep string) error {
	kept := sessions.tokens[:0]
	for _, token := range sessions.tokens {
		if token.UserID != userID || token.TokenHash == keep {
			kept = append(kept, token)
		}
	}
	sessions.tokens = kept
	return nil
}

type fixture struct {
	service  *account.Service
	profiles *fakeProfiles
	sessions *fakeSessions
	signer   *sec.TokenService
	user     *auth.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	signer, err := sec.NewTokenService(sec.TokenSecrets{
		Access: "access-secret", Refresh: "refresh-secret", PasswordReset: "reset-secret",
	}, "nexus.test")
	require.NoError(t, err)

	user := &auth.User{
		ID:         "u-1",
		Name:       "John Doe",
		Username:   "johndoe",
		Email:      "john@example.com",
		Role:       sec.RoleDeveloper,
		IsVerified: true,
		CreatedAt:  time.Now().Add(-time.Hour),
	}

	profiles := &fakeProfiles{users: map[string]*auth.User{user.ID: user}}
	sessions := &fakeSessions{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	return &fixture{
		service:  account.NewService(profiles, sessions, logger),
		profiles: profiles,
		sessions: sessions,
		signer:   signer,
		user:     user,
	}
}

func (fixture *fixture) addSession(refreshToken string, createdAt time.Time) {
	fixture.sessions.tokens = append(fixture.sessions.tokens, auth.RefreshToken{
		TokenHash: sec.HashToken(refreshToken),
		UserID:    fixture.user.ID,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(auth.RefreshTokenTTL),
	})
}

// # Service

func TestService_UpdateProfile(t *testing.T) {
	fixture := newFixture(t)
	name := "Johnny Doe"

	profile, err := fixture.service.UpdateProfile(context.Background(), fixture.user.ID, account.UpdateProfileInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, profile.Name)

	short := "Jo"
	_, err = fixture.service.UpdateProfile(context.Background(), fixture.user.ID, account.UpdateProfileInput{Name: &short})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
	assert.Equal(t, name, fixture.profiles.users[fixture.user.ID].Name)
}

func TestService_ListSessionsMarksCurrent(t *testing.T) {
	fixture := newFixture(t)
	now := time.Now()
	fixture.addSession("phone", now.Add(-time.Hour))
	fixture.addSession("laptop", now)
	fixture.addSession("stale", now.Add(-auth.RefreshTokenTTL-time.Hour))

	sessions, err := fixture.service.ListSessions(context.Background(), fixture.user.ID, "laptop")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	current := 0
	for _, session := range sessions {
		assert.Len(t, session.ID, 16)
		assert.NotEqual(t, sec.HashToken("laptop"), session.ID)
		if session.IsCurrent {
			current++
		}
	}
	assert.Equal(t, 1, current)
}

func TestService_RevokeOtherSessions(t *testing.T) {
	fixture := newFixture(t)
	now := time.Now()
	fixture.addSession("phone", now)
	fixture.addSession("laptop", now)

	require.NoError(t, fixture.service.RevokeOtherSessions(context.Background(), fixture.user.ID, "laptop"))
	require.Len(t, fixture.sessions.tokens, 1)
	assert.Equal(t, sec.HashToken("laptop"), fixture.sessions.tokens[0].TokenHash)

	err := fixture.service.RevokeOtherSessions(context.Background(), fixture.user.ID, "")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
	require.Len(t, fixture.sessions.tokens, 1, "an unidentified caller must not lose its own session")
}

// # HTTP

func TestHandler_MeRequiresAccessToken(t *testing.T) {
	fixture := newFixture(t)
	router := account.NewHandler(fixture.service, auth.NewGuard(fixture.signer, fixture.profiles)).Routes()

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestHandler_MeAndProfileAlias(t *testing.T) {
	fixture := newFixture(t)
	router := account.NewHandler(fixture.service, auth.NewGuard(fixture.signer, fixture.profiles)).Routes()

	token, err := fixture.signer.IssueAccessToken(fixture.user.Identity())
	require.NoError(t, err)

	for _, path := range []string{"/me", "/profile"} {
		request := httptest.NewRequest(http.MethodGet, path, nil)
		request.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		require.Equal(t, http.StatusOK, recorder.Code, path)

		var body struct {
			Data struct {
				User auth.Profile `json:"user"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
		assert.Equal(t, fixture.user.Email, body.Data.User.Email)
		assert.True(t, body.Data.User.IsEmailVerified)
		assert.NotContains(t, recorder.Body.String(), "password")
	}
}

func TestHandler_UpdateMe(t *testing.T) {
	fixture := newFixture(t)
	router := account.NewHandler(fixture.service, auth.NewGuard(fixture.signer, fixture.profiles)).Routes()

	token, err := fixture.signer.IssueAccessToken(fixture.user.Identity())
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPatch, "/me", strings.NewReader(`{"name":"Johnny Doe"}`))
	request.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, "Johnny Doe", fixture.profiles.users[fixture.user.ID].Name)
}

func TestHandler_RevokeOtherSessionsKeepsCaller(t *testing.T) {
	cases := []struct {
		name     string
		identify func(request *http.Request)
		body     string
	}{
		{"cookie", func(request *http.Request) {
			request.AddCookie(&http.Cookie{Name: constants.RefreshTokenCookieName, Value: "laptop"})
		}, ""},
		{"header", func(request *http.Request) {
			request.Header.Set(constants.HeaderRefreshToken, "laptop")
		}, ""},
		{"body", func(request *http.Request) {
			request.Header.Set("Content-Type", "application/json")
		}, `{"refreshToken":"laptop"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fixture := newFixture(t)
			router := account.NewHandler(fixture.service, auth.NewGuard(fixture.signer, fixture.profiles)).Routes()
			fixture.addSession("phone", time.Now())
			fixture.addSession("laptop", time.Now())

			token, err := fixture.signer.IssueAccessToken(fixture.user.Identity())
			require.NoError(t, err)

			request := httptest.NewRequest(http.MethodDelete, "/me/sessions", strings.NewReader(tc.body))
			request.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
			tc.identify(request)
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, request)

			require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
			require.Len(t, fixture.sessions.tokens, 1)
			assert.Equal(t, sec.HashToken("laptop"), fixture.sessions.tokens[0].TokenHash)
		})
	}
}

func TestHandler_RevokeOtherSessionsWithoutCurrentToken(t *testing.T) {
	fixture := newFixture(t)
	router := account.NewHandler(fixture.service, auth.NewGuard(fixture.signer, fixture.profiles)).Routes()
	fixture.addSession("phone", time.Now())
	fixture.addSession("laptop", time.Now())

	token, err := fixture.signer.IssueAccessToken(fixture.user.Identity())
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodDelete, "/me/sessions", nil)
	request.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Len(t, fixture.sessions.tokens, 2)
}
