// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/nexus/internal/platform/constants"
)

// RedisOTPCooldownRepository implements [OTPCooldownRepository] using Redis.
type RedisOTPCooldownRepository struct {
	client *redis.Client
}

// NewOTPCooldownRepository creates a new Redis-backed OTPCooldownRepository.
func NewOTPCooldownRepository(client *redis.Client) *RedisOTPCooldownRepository {
	return &RedisOTPCooldownRepository{client: client}
}

/*
Acquire claims the resend window for an email with SET NX EX.

Description: When the key already exists its remaining TTL is reported so the
caller can return a precise Retry-After.

Parameters:
  - context: context.Context
  - email: string
  - window: time.Duration

Returns:
  - bool: true when the window was free and is now held
  - time.Duration: remaining wait when it was not free
  - error: Execution errors
*/
func (repository *RedisOTPCooldownRepository) Acquire(context context.Context, email string, window time.Duration) (bool, time.Duration, error) {
	key := constants.RedisPrefixOTPCooldown + email

	acquired, err := repository.client.SetNX(context, key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis_otp_cooldown_acquire_failed: %w", err)
	}
	if acquired {
		return true, 0, nil
	}

	remaining, err := repository.client.TTL(context, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis_otp_cooldown_ttl_failed: %w", err)
	}

	// A key without expiry (-1) or that vanished between calls (-2) still blocks this attempt.
	if remaining <= 0 {
		remaining = window
	}

	return false, remaining, nil
}

// Release deletes the cooldown key. Releasing a free window is a no-op.
func (repository *RedisOTPCooldownRepository) Release(context context.Context, email string) error {
	if err := repository.client.Del(context, constants.RedisPrefixOTPCooldown+email).Err(); err != nil {
		return fmt.Errorf("redis_otp_cooldown_release_failed: %w", err)
	}
	return nil
}
