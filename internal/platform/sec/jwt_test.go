// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexus/internal/platform/sec"
)

var testSecrets = sec.TokenSecrets{
	Access:        "access-secret-for-tests",
	Refresh:       "refresh-secret-for-tests",
	PasswordReset: "reset-secret-for-tests",
}

func newTokenService(t *testing.T, opts ...sec.TokenOption) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService(testSecrets, "nexus.test", opts...)
	require.NoError(t, err)
	return service
}

/*
TestTokenService_RoundTrip verifies that every purpose verifies its own tokens and
returns the embedded identity.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service := newTokenService(t)
	identity := sec.Identity{UserID: "0190a1b2-user", Email: "dev@nexus.test"}

	tests := []struct {
		name    string
		issue   func(sec.Identity) (string, error)
		verify  func(string) (*sec.AuthClaims, error)
		purpose sec.TokenPurpose
		ttl     time.Duration
	}{
		{"access", service.IssueAccessToken, service.VerifyAccessToken, sec.PurposeAccess, sec.AccessTokenTTL},
		{"refresh", service.IssueRefreshToken, service.VerifyRefreshToken, sec.PurposeRefresh, sec.RefreshTokenTTL},
		{"password_reset", service.IssuePasswordResetToken, service.VerifyPasswordResetToken, sec.PurposePasswordReset, sec.PasswordResetTokenTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.issue(identity)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := tt.verify(token)
			require.NoError(t, err)
			assert.Equal(t, identity.UserID, claims.UserID)
			assert.Equal(t, identity.UserID, claims.Subject)
			assert.Equal(t, identity.Email, claims.Email)
			assert.Equal(t, tt.purpose, claims.Purpose)
			assert.WithinDuration(t, claims.IssuedAt.Add(tt.ttl), claims.ExpiresAt.Time, time.Second)
		})
	}
}

/*
TestTokenService_TamperedToken checks that mutating a single character breaks verification.
*/
func TestTokenService_TamperedToken(t *testing.T) {
	service := newTokenService(t)

	token, err := service.IssueAccessToken(sec.Identity{UserID: "user-1"})
	require.NoError(t, err)

	// Flip a character in the middle of the payload segment.
	raw := []byte(token)
	index := len(raw) / 2
	if raw[index] == 'A' {
		raw[index] = 'B'
	} else {
		raw[index] = 'A'
	}

	_, err = service.VerifyAccessToken(string(raw))
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_CrossPurpose ensures a token minted for one purpose is rejected by the others.
*/
func TestTokenService_CrossPurpose(t *testing.T) {
	service := newTokenService(t)
	identity := sec.Identity{UserID: "user-1"}

	resetToken, err := service.IssuePasswordResetToken(identity)
	require.NoError(t, err)
	refreshToken, err := service.IssueRefreshToken(identity)
	require.NoError(t, err)
	accessToken, err := service.IssueAccessToken(identity)
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(resetToken)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)

	_, err = service.VerifyAccessToken(refreshToken)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)

	_, err = service.VerifyRefreshToken(accessToken)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)

	_, err = service.VerifyPasswordResetToken(accessToken)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_Expired distinguishes expiry from other failures.
*/
func TestTokenService_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	current := issuedAt

	service := newTokenService(t, sec.WithClock(func() time.Time { return current }))

	token, err := service.IssueAccessToken(sec.Identity{UserID: "user-1"})
	require.NoError(t, err)

	current = issuedAt.Add(sec.AccessTokenTTL + time.Minute)

	_, err = service.VerifyAccessToken(token)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
	assert.NotErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_Malformed covers structurally invalid input.
*/
func TestTokenService_Malformed(t *testing.T) {
	service := newTokenService(t)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"random_string", "invalid.token.here"},
		{"two_segments", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid"},
		{"alg_none", "eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ4In0."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.VerifyAccessToken(tt.token)
			assert.ErrorIs(t, err, sec.ErrTokenInvalid)
		})
	}
}

/*
TestTokenService_WrongSecret verifies tokens from another deployment are rejected.
*/
func TestTokenService_WrongSecret(t *testing.T) {
	service := newTokenService(t)
	other, err := sec.NewTokenService(sec.TokenSecrets{
		Access:        "another-access",
		Refresh:       "another-refresh",
		PasswordReset: "another-reset",
	}, "nexus.test")
	require.NoError(t, err)

	token, err := other.IssueAccessToken(sec.Identity{UserID: "user-1"})
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(token)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_DistinctTokens ensures two tokens for the same subject never collide.
*/
func TestTokenService_DistinctTokens(t *testing.T) {
	service := newTokenService(t)
	identity := sec.Identity{UserID: "user-1"}

	first, err := service.IssueRefreshToken(identity)
	require.NoError(t, err)
	second, err := service.IssueRefreshToken(identity)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

/*
TestNewTokenService_SecretRules rejects missing or shared secrets.
*/
func TestNewTokenService_SecretRules(t *testing.T) {
	_, err := sec.NewTokenService(sec.TokenSecrets{Access: "a", Refresh: "b"}, "")
	assert.Error(t, err)

	_, err = sec.NewTokenService(sec.TokenSecrets{Access: "a", Refresh: "a", PasswordReset: "c"}, "")
	assert.Error(t, err)

	_, err = sec.NewTokenService(sec.TokenSecrets{Access: "a", Refresh: "b", PasswordReset: "c"}, "")
	assert.NoError(t, err)
}
