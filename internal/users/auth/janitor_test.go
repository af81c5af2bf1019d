// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexus/internal/users/auth"
)

type countingDeleter struct {
	calls atomic.Int32
	err   error
}

func (deleter *countingDeleter) DeleteExpired(context.Context, time.Time) (int64, error) {
	deleter.calls.Add(1)
	if deleter.err != nil {
		return 0, deleter.err
	}
	return 1, nil
}

func TestJanitor_SweepRemovesOnlyExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, env.tokens.Create(ctx, &auth.RefreshToken{TokenHash: "stale", UserID: "u-1", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, env.tokens.Create(ctx, &auth.RefreshToken{TokenHash: "live", UserID: "u-1", ExpiresAt: now.Add(time.Hour)}))

	janitor := auth.NewJanitor(env.tokens, time.Hour, env.logger)

	assert.Equal(t, int64(1), janitor.Sweep(ctx))
	assert.Equal(t, []string{"live"}, env.tokens.hashesFor("u-1"))
}

func TestJanitor_SweepSurvivesErrors(t *testing.T) {
	env := newTestEnv(t)
	deleter := &countingDeleter{err: errors.New("database down")}

	assert.Zero(t, auth.NewJanitor(deleter, time.Hour, env.logger).Sweep(context.Background()))
}

func TestJanitor_RunUntilCancelled(t *testing.T) {
	env := newTestEnv(t)
	deleter := &countingDeleter{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		auth.NewJanitor(deleter, 10*time.Millisecond, env.logger).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return deleter.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancellation")
	}
}
