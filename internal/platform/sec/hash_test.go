// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexus/internal/platform/sec"
)

func TestPasswordHash(t *testing.T) {
	hash, err := sec.HashPassword("Password@123")
	require.NoError(t, err)

	assert.True(t, sec.CheckPasswordHash("Password@123", hash))
	assert.False(t, sec.CheckPasswordHash("Password@124", hash))
	assert.False(t, sec.CheckPasswordHash("Password@123", ""))
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, sec.HashToken("abc"), sec.HashToken("abc"))
	assert.NotEqual(t, sec.HashToken("abc"), sec.HashToken("abd"))
	assert.Len(t, sec.HashToken("abc"), 64)
}
