// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/taibuivan/nexus/internal/platform/apperr"
	"github.com/taibuivan/nexus/internal/platform/database/schema"
	"github.com/taibuivan/nexus/internal/platform/dberr"
	"github.com/taibuivan/nexus/internal/platform/postgres"
	"github.com/taibuivan/nexus/internal/users/auth"
)

// PostgresProfileRepository implements [ProfileRepository] on top of users.account.
//
// Reads are delegated to the credential store so both packages hydrate users identically.
type PostgresProfileRepository struct {
	*auth.PostgresUserRepository
	db postgres.DBTX
}

// NewProfileRepository creates a new Postgres implementation for profile management.
func NewProfileRepository(db postgres.DBTX) *PostgresProfileRepository {
	return &PostgresProfileRepository{PostgresUserRepository: auth.NewUserRepository(db), db: db}
}

/*
UpdateName replaces the display name of a user.

Parameters:
  - context: context.Context
  - userID: string
  - name: string (Already validated)

Returns:
  - error: apperr.NotFound or update failures
*/
func (repository *PostgresProfileRepository) UpdateName(context context.Context, userID, name string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.Name,
		schema.UserAccount.UpdatedAt, schema.UserAccount.ID,
	)

	tag, err := repository.db.Exec(context, query, userID, name)
	if err != nil {
		return dberr.Wrap(err, "postgres_account_repo_update_name_failed")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(auth.MsgUserNotFound)
	}

	return nil
}
