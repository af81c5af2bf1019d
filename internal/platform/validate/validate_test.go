// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexus/internal/platform/apperr"
	"github.com/taibuivan/nexus/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "name", "Nexus", false},
		{"empty_string", "name", "", true},
		{"whitespace_only", "name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "test@example.com", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "test@", false},
		{"empty", "", false},
		{"display_name_form", "Eve <test@example.com>", false},
		{"angle_brackets_only", "<test@example.com>", false},
		{"surrounding_space", " test@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)

			if tt.isValid {
				assert.False(t, v.HasErrors())
			} else {
				assert.True(t, v.HasErrors())
			}
		})
	}
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	// Multi-rule validation
	err := v.
		Required("username", "tai").
		MinLen("username", "tai", 3).
		MaxLen("username", "tai", 10).
		Email("email", "tai@nexus.app").
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("username", "").       // Fails
		MinLen("username", "a", 5).     // Fails
		Email("email", "not-an-email"). // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	// Should accumulate all 3 errors
	assert.Len(t, ae.Details, 3)
}

/*
TestValidator_AuthRules covers the rules used by the signup and verification forms.
*/
func TestValidator_AuthRules(t *testing.T) {
	tests := []struct {
		name     string
		apply    func(v *validate.Validator)
		hasError bool
	}{
		{"otp_ok", func(v *validate.Validator) { v.OTP("otp", "012345") }, false},
		{"otp_short", func(v *validate.Validator) { v.OTP("otp", "12345") }, true},
		{"otp_letters", func(v *validate.Validator) { v.OTP("otp", "12a456") }, true},
		{"username_ok", func(v *validate.Validator) { v.Username("username", "john.doe_1") }, false},
		{"username_space", func(v *validate.Validator) { v.Username("username", "john doe") }, true},
		{"bytes_ok", func(v *validate.Validator) { v.MaxBytes("password", "secret", 72) }, false},
		{"bytes_over", func(v *validate.Validator) { v.MaxBytes("password", strings.Repeat("x", 73), 72) }, true},
		{"role_ok", func(v *validate.Validator) { v.OneOf("role", "tester", "developer", "tester") }, false},
		{"role_bad", func(v *validate.Validator) { v.OneOf("role", "root", "developer", "tester") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			tt.apply(v)
			assert.Equal(t, tt.hasError, v.HasErrors())
		})
	}
}
