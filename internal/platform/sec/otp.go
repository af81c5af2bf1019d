// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// OTPLength is the number of decimal digits in a verification code.
	OTPLength = 6

	// OTPTTL is how long a verification code stays redeemable.
	OTPTTL = 10 * time.Minute
)

// otpSpace is 10^OTPLength; codes are drawn uniformly from [0, otpSpace).
var otpSpace = big.NewInt(1_000_000)

// OTP is a freshly generated one-time code. Code is sent to the user and never stored;
// Hash is the value persisted on the credential record.
type OTP struct {
	Code      string
	Hash      string
	ExpiresAt time.Time
}

// GenerateOTPCode returns a uniformly random, zero-padded 6-digit code.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("otp: failed to read entropy: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

// GenerateOTP creates a code, its salted bcrypt hash, and an expiry OTPTTL from now.
func GenerateOTP() (*OTP, error) {
	return GenerateOTPAt(time.Now())
}

// GenerateOTPAt is [GenerateOTP] with an explicit generation time.
func GenerateOTPAt(now time.Time) (*OTP, error) {
	code, err := GenerateOTPCode()
	if err != nil {
		return nil, err
	}

	// bcrypt draws a new random salt on every call.
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("otp: failed to hash code: %w", err)
	}

	return &OTP{
		Code:      code,
		Hash:      string(hash),
		ExpiresAt: now.Add(OTPTTL),
	}, nil
}

// VerifyOTP reports whether candidate is a well-formed 6-digit code matching hash.
// It never panics and returns false for empty, malformed, or mismatched input.
func VerifyOTP(candidate, hash string) bool {
	if !IsOTPFormat(candidate) || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// IsOTPFormat reports whether s consists of exactly OTPLength ASCII digits.
func IsOTPFormat(s string) bool {
	if len(s) != OTPLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
