// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexus/internal/platform/apperr"
	"github.com/taibuivan/nexus/internal/users/account"
)

func TestPostgresProfileRepository_UpdateName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repository := account.NewProfileRepository(mock)
	query := regexp.QuoteMeta("UPDATE users.account SET name = $2, updatedat = NOW() WHERE id = $1")

	mock.ExpectExec(query).WithArgs("u-1", "Johnny").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(query).WithArgs("ghost", "Johnny").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(query).WithArgs("u-1", "Johnny").WillReturnError(errors.New("connection reset"))

	require.NoError(t, repository.UpdateName(context.Background(), "u-1", "Johnny"))

	err = repository.UpdateName(context.Background(), "ghost", "Johnny")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	err = repository.UpdateName(context.Background(), "u-1", "Johnny")
	assert.True(t, apperr.HasCode(err, apperr.CodeInternal))

	assert.NoError(t, mock.ExpectationsWereMet())
}
