// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredTokenDeleter is the slice of [RefreshTokenRepository] the janitor needs.
type ExpiredTokenDeleter interface {
	DeleteExpired(context context.Context, now time.Time) (int64, error)
}

// Janitor periodically purges expired refresh tokens across all users.
//
// Login already prunes the caller's own expired tokens; the janitor covers
// users who never log in again.
type Janitor struct {
	tokens   ExpiredTokenDeleter
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewJanitor creates a janitor that runs every interval.
func NewJanitor(tokens ExpiredTokenDeleter, interval time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{tokens: tokens, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (janitor *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(janitor.interval)
	defer ticker.Stop()

	janitor.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			janitor.Sweep(ctx)
		case <-ctx.Done():
			janitor.logger.Info("auth_janitor_stopped")
			return
		}
	}
}

// Sweep performs a single cleanup pass and reports how many rows were removed.
func (janitor *Janitor) Sweep(ctx context.Context) int64 {
	removed, err := janitor.tokens.DeleteExpired(ctx, janitor.now())
	if err != nil {
		janitor.logger.ErrorContext(ctx, "auth_janitor_sweep_failed", slog.Any("error", err))
		return 0
	}

	if removed > 0 {
		janitor.logger.InfoContext(ctx, "auth_janitor_swept", slog.Int64("removed", removed))
	}
	return removed
}
