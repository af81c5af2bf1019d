// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexus/internal/platform/apperr"
	"github.com/taibuivan/nexus/internal/platform/dberr"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, dberr.Wrap(nil, "noop"))

	notFound := apperr.As(dberr.Wrap(fmt.Errorf("scan: %w", pgx.ErrNoRows), "find_user"))
	require.NotNil(t, notFound)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	conflict := apperr.As(dberr.Wrap(&pgconn.PgError{Code: "23505"}, "create_user"))
	require.NotNil(t, conflict)
	assert.Equal(t, apperr.CodeConflict, conflict.Code)

	internal := apperr.As(dberr.Wrap(errors.New("connection reset"), "create_user"))
	require.NotNil(t, internal)
	assert.Equal(t, apperr.CodeInternal, internal.Code)
	assert.Contains(t, internal.Cause.Error(), "create_user")
}
