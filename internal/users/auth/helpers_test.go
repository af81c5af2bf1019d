// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexus/internal/platform/apperr"
	"github.com/taibuivan/nexus/internal/platform/sec"
	"github.com/taibuivan/nexus/internal/users/auth"
)

// # Clock

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (clock *testClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *testClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(d)
}

// # Users

type fakeUserRepository struct {
	mu      sync.Mutex
	byID    map[string]*auth.User
	byEmail map[string]string
	err     error
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{byID: map[string]*auth.User{}, byEmail: map[string]string{}}
}

func (repository *fakeUserRepository) get(id string) (*auth.User, error) {
	if repository.err != nil {
		return nil, repository.err
	}
	user, ok := repository.byID[id]
	if !ok {
		return nil, apperr.NotFound(auth.MsgUserNotFound)
	}
	copied := *user
	return &copied, nil
}

func (repository *fakeUserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return repository.get(id)
}

func (repository *fakeUserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	id, ok := repository.byEmail[email]
	if !ok {
		if repository.err != nil {
			return nil, repository.err
		}
		return nil, apperr.NotFound(auth.MsgUserNotFound)
	}
	return repository.get(id)
}

func (repository *fakeUserRepository) Create(_ context.Context, user *auth.User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if _, exists := repository.byEmail[user.Email]; exists {
		return apperr.Conflict(auth.MsgEmailRegistered)
	}
	copied := *user
	repository.byID[user.ID] = &copied
	repository.byEmail[user.Email] = user.ID
	return nil
}

func (repository *fakeUserRepository) update(id string, mutate func(user *auth.User) error) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	user, ok := repository.byID[id]
	if !ok {
		return apperr.NotFound(auth.MsgUserNotFound)
	}
	return mutate(user)
}

func (repository *fakeUserRepository) SetVerificationToken(_ context.Context, userID, otpHash string, expiresAt time.Time) error {
	return repository.update(userID, func(user *auth.User) error {
		user.VerificationTokenHash = otpHash
		user.VerificationTokenExpires = &expiresAt
		return nil
	})
}

func (repository *fakeUserRepository) MarkVerified(_ context.Context, userID string) error {
	return repository.update(userID, func(user *auth.User) error {
		if user.IsVerified {
			return apperr.AlreadyVerified(auth.MsgAlreadyVerified)
		}
		user.IsVerified = true
		user.VerificationTokenHash = ""
		user.VerificationTokenExpires = nil
		return nil
	})
}

func (repository *fakeUserRepository) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	return repository.update(userID, func(user *auth.User) error {
		user.LastLoginAt = &at
		return nil
	})
}

func (repository *fakeUserRepository) SetResetToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	return repository.update(userID, func(user *auth.User) error {
		user.ResetPasswordToken = token
		user.ResetPasswordTokenExpires = &expiresAt
		return nil
	})
}

func (repository *fakeUserRepository) ResetPassword(_ context.Context, userID, token, passwordHash string, now time.Time) error {
	err := repository.update(userID, func(user *auth.User) error {
		if user.ResetPasswordToken == "" || user.ResetPasswordToken != token ||
			user.ResetPasswordTokenExpires == nil || !user.ResetPasswordTokenExpires.After(now) {
			return apperr.InvalidOrExpired(auth.MsgResetInvalid)
		}
		user.PasswordHash = passwordHash
		user.ResetPasswordToken = ""
		user.ResetPasswordTokenExpires = nil
		return nil
	})
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return apperr.InvalidOrExpired(auth.MsgResetInvalid)
	}
	return err
}

func (repository *fakeUserRepository) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	return repository.update(userID, func(user *auth.User) error {
		user.PasswordHash = passwordHash
		return nil
	})
}

func (repository *fakeUserRepository) mustGet(t *testing.T, email string) *auth.User {
	t.Helper()
	user, err := repository.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return user
}

// # Refresh tokens

type fakeRefreshTokenRepository struct {
	mu   sync.Mutex
	rows map[string]auth.RefreshToken
}

func newFakeRefreshTokenRepository() *fakeRefreshTokenRepository {
	return &fakeRefreshTokenRepository{rows: map[string]auth.RefreshToken{}}
}

func (repository *fakeRefreshTokenRepository) Create(_ context.Context, token *auth.RefreshToken) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.rows[token.TokenHash] = *token
	return nil
}

func (repository *fakeRefreshTokenRepository) Rotate(_ context.Context, userID, oldTokenHash string, replacement *auth.RefreshToken, now time.Time) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	row, ok := repository.rows[oldTokenHash]
	if !ok || row.UserID != userID || !row.ExpiresAt.After(now) {
		return apperr.Unauthorized(auth.MsgRefreshInvalid)
	}
	delete(repository.rows, oldTokenHash)
	repository.rows[replacement.TokenHash] = *replacement
	return nil
}

func (repository *fakeRefreshTokenRepository) deleteWhere(match func(row auth.RefreshToken) bool) int64 {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	var removed int64
	for hash, row := range repository.rows {
		if match(row) {
			delete(repository.rows, hash)
			removed++
		}
	}
	return removed
}

func (repository *fakeRefreshTokenRepository) Delete(_ context.Context, userID, tokenHash string) error {
	repository.deleteWhere(func(row auth.RefreshToken) bool { return row.UserID == userID && row.TokenHash == tokenHash })
	return nil
}

func (repository *fakeRefreshTokenRepository) DeleteAllForUser(_ context.Context, userID string) error {
	repository.deleteWhere(func(row auth.RefreshToken) bool { return row.UserID == userID })
	return nil
}

func (repository *fakeRefreshTokenRepository) DeleteAllExcept(_ context.Context, userID, keepTokenHash string) error {
	repository.deleteWhere(func(row auth.RefreshToken) bool { return row.UserID == userID && row.TokenHash != keepTokenHash })
	return nil
}

func (repository *fakeRefreshTokenRepository) PruneExpired(_ context.Context, userID string, now time.Time) error {
	repository.deleteWhere(func(row auth.RefreshToken) bool { return row.UserID == userID && !row.ExpiresAt.After(now) })
	return nil
}

func (repository *fakeRefreshTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return repository.deleteWhere(func(row auth.RefreshToken) bool { return !row.ExpiresAt.After(now) }), nil
}

func (repository *fakeRefreshTokenRepository) ListActive(_ context.Context, userID string, now time.Time) ([]auth.RefreshToken, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	tokens := make([]auth.RefreshToken, 0)
	for _, row := range repository.rows {
		if row.UserID == userID && row.ExpiresAt.After(now) {
			tokens = append(tokens, row)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].CreatedAt.After(tokens[j].CreatedAt) })
	return tokens, nil
}

func (repository *fakeRefreshTokenRepository) hashesFor(userID string) []string {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	hashes := make([]string, 0)
	for hash, row := range repository.rows {
		if row.UserID == userID {
			hashes = append(hashes, hash)
		}
	}
	return hashes
}

// # Cooldown

type fakeCooldown struct {
	mu    sync.Mutex
	clock *testClock
	until map[string]time.Time
	err   error
}

func (cooldown *fakeCooldown) Acquire(_ context.Context, email string, window time.Duration) (bool, time.Duration, error) {
	cooldown.mu.Lock()
	defer cooldown.mu.Unlock()
	if cooldown.err != nil {
		return false, 0, cooldown.err
	}
	now := cooldown.clock.Now()
	if until, ok := cooldown.until[email]; ok && until.After(now) {
		return false, until.Sub(now), nil
	}
	cooldown.until[email] = now.Add(window)
	return true, 0, nil
}

func (cooldown *fakeCooldown) Release(_ context.Context, email string) error {
	cooldown.mu.Lock()
	defer cooldown.mu.Unlock()
	if cooldown.err != nil {
		return cooldown.err
	}
	delete(cooldown.until, email)
	return nil
}

// # Mailer

type fakeMailer struct {
	mu               sync.Mutex
	otps             map[string]string
	resetTokens      map[string]string
	welcomed         []string
	failVerification bool
	failReset        bool
	failWelcome      bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{otps: map[string]string{}, resetTokens: map[string]string{}}
}

var errRelayDown = errors.New("relay down")

func (mailer *fakeMailer) SendVerificationEmail(_ context.Context, email, _, otp string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if mailer.failVerification {
		return errRelayDown
	}
	mailer.otps[email] = otp
	return nil
}

func (mailer *fakeMailer) SendPasswordResetEmail(_ context.Context, email, _, token string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if mailer.failReset {
		return errRelayDown
	}
	mailer.resetTokens[email] = token
	return nil
}

func (mailer *fakeMailer) SendWelcomeEmail(_ context.Context, email, _ string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if mailer.failWelcome {
		return errRelayDown
	}
	mailer.welcomed = append(mailer.welcomed, email)
	return nil
}

func (mailer *fakeMailer) lastOTP(email string) string {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	return mailer.otps[email]
}

func (mailer *fakeMailer) lastResetToken(email string) string {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	return mailer.resetTokens[email]
}

// # Environment

type testEnv struct {
	service  *auth.Service
	users    *fakeUserRepository
	tokens   *fakeRefreshTokenRepository
	cooldown *fakeCooldown
	mailer   *fakeMailer
	signer   *sec.TokenService
	clock    *testClock
	logger   *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newTestClock()
	signer, err := sec.NewTokenService(sec.TokenSecrets{
		Access:        "test-access-secret",
		Refresh:       "test-refresh-secret",
		PasswordReset: "test-reset-secret",
	}, "nexus.test", sec.WithClock(clock.Now))
	require.NoError(t, err)

	env := &testEnv{
		users:    newFakeUserRepository(),
		tokens:   newFakeRefreshTokenRepository(),
		cooldown: &fakeCooldown{clock: clock, until: map[string]time.Time{}},
		mailer:   newFakeMailer(),
		signer:   signer,
		clock:    clock,
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}

	env.service = auth.NewService(env.users, env.tokens, env.cooldown, signer, env.mailer, env.logger,
		auth.WithServiceClock(clock.Now))

	return env
}

const testPassword = "Password@123"

func signUpInput(email string) auth.SignUpInput {
	return auth.SignUpInput{
		Name:            "John Doe",
		Username:        "johndoe",
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
	}
}

// registerVerified signs up and verifies an account, returning its first session.
func (env *testEnv) registerVerified(t *testing.T, email string) *auth.Session {
	t.Helper()
	ctx := context.Background()

	_, err := env.service.SignUp(ctx, signUpInput(email))
	require.NoError(t, err)

	session, err := env.service.VerifyEmail(ctx, email, env.mailer.lastOTP(auth.NormalizeEmail(email)))
	require.NoError(t, err)
	return session
}

func requireCode(t *testing.T, err error, code string, status int) {
	t.Helper()
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError, "expected an AppError, got %v", err)
	require.Equal(t, code, appError.Code)
	require.Equal(t, status, appError.HTTPStatus)
}
