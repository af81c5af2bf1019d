// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexus/internal/platform/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/nexus")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")
	t.Setenv("PASSWORD_RESET_SECRET", "reset")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, time.Hour, cfg.TokenCleanupInterval)
}

func TestLoad_MissingSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate_SharedSecrets(t *testing.T) {
	cfg := &config.Config{
		JWTSecret:            "same",
		JWTRefreshSecret:     "same",
		PasswordResetSecret:  "other",
		TokenCleanupInterval: time.Hour,
	}
	assert.Error(t, cfg.Validate())

	cfg.JWTRefreshSecret = "different"
	assert.NoError(t, cfg.Validate())
}
