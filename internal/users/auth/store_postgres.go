// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/taibuivan/nexus/internal/platform/apperr"
	"github.com/taibuivan/nexus/internal/platform/database/schema"
	"github.com/taibuivan/nexus/internal/platform/dberr"
	"github.com/taibuivan/nexus/internal/platform/postgres"
	"github.com/taibuivan/nexus/internal/platform/sec"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	db postgres.DBTX
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(db postgres.DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

var selectUserQuery = fmt.Sprintf("SELECT %s FROM %s",
	strings.Join(schema.UserAccount.Columns(), ", "), schema.UserAccount.Table)

// scanUser hydrates a [User] in the column order of [schema.UserAccountTable.Columns].
func scanUser(row pgx.Row) (*User, error) {
	var (
		user                      User
		role                      string
		verificationToken         pgtype.Text
		verificationTokenExpires  pgtype.Timestamptz
		resetPasswordToken        pgtype.Text
		resetPasswordTokenExpires pgtype.Timestamptz
		lastLoginAt               pgtype.Timestamptz
	)

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.IsVerified,
		&verificationToken,
		&verificationTokenExpires,
		&resetPasswordToken,
		&resetPasswordTokenExpires,
		&lastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = sec.UserRole(role)
	user.VerificationTokenHash = verificationToken.String
	user.VerificationTokenExpires = timePointer(verificationTokenExpires)
	user.ResetPasswordToken = resetPasswordToken.String
	user.ResetPasswordTokenExpires = timePointer(resetPasswordTokenExpires)
	user.LastLoginAt = timePointer(lastLoginAt)

	return &user, nil
}

func timePointer(value pgtype.Timestamptz) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

/*
FindByID retrieves a user record by its unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := fmt.Sprintf("%s WHERE %s = $1", selectUserQuery, schema.UserAccount.ID)

	user, err := scanUser(repository.db.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(MsgUserNotFound)
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string (Already normalized)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf("%s WHERE %s = $1", selectUserQuery, schema.UserAccount.Email)

	user, err := scanUser(repository.db.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(MsgUserNotFound)
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

/*
Create persists a new user record into the users.account table.

Description: The unique index on email turns a concurrent duplicate signup
into a Conflict instead of a second row.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict or database errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.Name, schema.UserAccount.Username,
		schema.UserAccount.Email, schema.UserAccount.Password, schema.UserAccount.Role,
		schema.UserAccount.IsVerified, schema.UserAccount.VerificationToken,
		schema.UserAccount.VerificationTokenExpires, schema.UserAccount.CreatedAt,
		schema.UserAccount.UpdatedAt,
	)

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	_, err := repository.db.Exec(context, query,
		user.ID,
		user.Name,
		user.Username,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.IsVerified,
		user.VerificationTokenHash,
		user.VerificationTokenExpires,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict(MsgEmailRegistered)
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

// SetVerificationToken overwrites the pending OTP of a user.
func (repository *PostgresUserRepository) SetVerificationToken(context context.Context, userID, otpHash string, expiresAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = NOW() WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.VerificationToken, schema.UserAccount.VerificationTokenExpires,
		schema.UserAccount.UpdatedAt, schema.UserAccount.ID,
	)

	tag, err := repository.db.Exec(context, query, userID, otpHash, expiresAt)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_set_verification_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(MsgUserNotFound)
	}

	return nil
}

/*
MarkVerified flips isverified and clears the pending OTP in a single statement.

Returns:
  - error: apperr.AlreadyVerified when the row was already verified
*/
func (repository *PostgresUserRepository) MarkVerified(context context.Context, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE, %s = NULL, %s = NULL, %s = NOW()
		WHERE %s = $1 AND %s = FALSE`,
		schema.UserAccount.Table,
		schema.UserAccount.IsVerified, schema.UserAccount.VerificationToken,
		schema.UserAccount.VerificationTokenExpires, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, schema.UserAccount.IsVerified,
	)

	tag, err := repository.db.Exec(context, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_verified_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.AlreadyVerified(MsgAlreadyVerified)
	}

	return nil
}

// TouchLastLogin records the latest successful authentication.
func (repository *PostgresUserRepository) TouchLastLogin(context context.Context, userID string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.LastLoginAt, schema.UserAccount.ID)

	if _, err := repository.db.Exec(context, query, userID, at); err != nil {
		return fmt.Errorf("postgres_user_repo_touch_last_login_failed: %w", err)
	}

	return nil
}

// SetResetToken stores the issued reset token, replacing any earlier one.
func (repository *PostgresUserRepository) SetResetToken(context context.Context, userID, token string, expiresAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = NOW() WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.ResetPasswordToken, schema.UserAccount.ResetPasswordTokenExpires,
		schema.UserAccount.UpdatedAt, schema.UserAccount.ID,
	)

	tag, err := repository.db.Exec(context, query, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_set_reset_token_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(MsgUserNotFound)
	}

	return nil
}

/*
ResetPassword redeems a reset token with a compare-and-set update.

Description: The row only changes when the stored token equals the presented
one and has not expired. The token is cleared in the same statement.

Parameters:
  - context: context.Context
  - userID: string
  - token: string
  - passwordHash: string
  - now: time.Time

Returns:
  - error: apperr.InvalidOrExpired or database errors
*/
func (repository *PostgresUserRepository) ResetPassword(context context.Context, userID, token, passwordHash string, now time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $3, %s = NULL, %s = NULL, %s = NOW()
		WHERE %s = $1 AND %s = $2 AND %s > $4`,
		schema.UserAccount.Table,
		schema.UserAccount.Password, schema.UserAccount.ResetPasswordToken,
		schema.UserAccount.ResetPasswordTokenExpires, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, schema.UserAccount.ResetPasswordToken,
		schema.UserAccount.ResetPasswordTokenExpires,
	)

	tag, err := repository.db.Exec(context, query, userID, token, passwordHash, now)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_reset_password_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidOrExpired(MsgResetInvalid)
	}

	return nil
}

// UpdatePassword replaces only the password hash.
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, passwordHash string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.Password,
		schema.UserAccount.UpdatedAt, schema.UserAccount.ID)

	tag, err := repository.db.Exec(context, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(MsgUserNotFound)
	}

	return nil
}

// # Refresh Token Repository

// PostgresRefreshTokenRepository implements [RefreshTokenRepository] using pgx.
type PostgresRefreshTokenRepository struct {
	db postgres.DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL implementation of the RefreshTokenRepository.
func NewRefreshTokenRepository(db postgres.DBTX) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{db: db}
}

var insertRefreshTokenQuery = fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s) VALUES ($1, $2, $3, $4)`,
	schema.UserRefreshToken.Table,
	schema.UserRefreshToken.TokenHash, schema.UserRefreshToken.UserID,
	schema.UserRefreshToken.CreatedAt, schema.UserRefreshToken.ExpiresAt,
)

/*
Create stores a new refresh token row.

Parameters:
  - context: context.Context
  - token: *RefreshToken

Returns:
  - error: Storage failures
*/
func (repository *PostgresRefreshTokenRepository) Create(context context.Context, token *RefreshToken) error {
	_, err := repository.db.Exec(context, insertRefreshTokenQuery,
		token.TokenHash, token.UserID, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_create_failed: %w", err)
	}
	return nil
}

/*
Rotate deletes the presented token and inserts its replacement in one transaction.

Description: Row-level delete means two concurrent rotations of the same token
cannot both succeed; the loser sees zero affected rows.

Parameters:
  - context: context.Context
  - userID: string
  - oldTokenHash: string
  - replacement: *RefreshToken
  - now: time.Time

Returns:
  - error: apperr.Unauthorized when the old token is unknown or expired
*/
func (repository *PostgresRefreshTokenRepository) Rotate(context context.Context, userID, oldTokenHash string, replacement *RefreshToken, now time.Time) error {
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2 AND %s > $3`,
		schema.UserRefreshToken.Table,
		schema.UserRefreshToken.TokenHash, schema.UserRefreshToken.UserID,
		schema.UserRefreshToken.ExpiresAt,
	)

	return postgres.WithTx(context, repository.db, func(transaction pgx.Tx) error {
		tag, err := transaction.Exec(context, deleteQuery, oldTokenHash, userID, now)
		if err != nil {
			return fmt.Errorf("postgres_refresh_token_repo_rotate_delete_failed: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.Unauthorized(MsgRefreshInvalid)
		}

		_, err = transaction.Exec(context, insertRefreshTokenQuery,
			replacement.TokenHash, replacement.UserID, replacement.CreatedAt, replacement.ExpiresAt)
		if err != nil {
			return fmt.Errorf("postgres_refresh_token_repo_rotate_insert_failed: %w", err)
		}

		return nil
	})
}

// Delete removes one token of a user. Deleting a missing token is a no-op.
func (repository *PostgresRefreshTokenRepository) Delete(context context.Context, userID, tokenHash string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.UserRefreshToken.Table, schema.UserRefreshToken.UserID, schema.UserRefreshToken.TokenHash)

	if _, err := repository.db.Exec(context, query, userID, tokenHash); err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_delete_failed: %w", err)
	}
	return nil
}

// DeleteAllForUser revokes every session of the user.
func (repository *PostgresRefreshTokenRepository) DeleteAllForUser(context context.Context, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.UserRefreshToken.Table, schema.UserRefreshToken.UserID)

	if _, err := repository.db.Exec(context, query, userID); err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_delete_all_failed: %w", err)
	}
	return nil
}

// DeleteAllExcept revokes every session of the user except one.
func (repository *PostgresRefreshTokenRepository) DeleteAllExcept(context context.Context, userID, keepTokenHash string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s <> $2`,
		schema.UserRefreshToken.Table, schema.UserRefreshToken.UserID, schema.UserRefreshToken.TokenHash)

	if _, err := repository.db.Exec(context, query, userID, keepTokenHash); err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_delete_all_except_failed: %w", err)
	}
	return nil
}

// PruneExpired removes the user's expired tokens.
func (repository *PostgresRefreshTokenRepository) PruneExpired(context context.Context, userID string, now time.Time) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s <= $2`,
		schema.UserRefreshToken.Table, schema.UserRefreshToken.UserID, schema.UserRefreshToken.ExpiresAt)

	if _, err := repository.db.Exec(context, query, userID, now); err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_prune_failed: %w", err)
	}
	return nil
}

/*
DeleteExpired permanently removes all tokens that have passed their expiration.

Description: Cleanup task to reclaim storage from stale sessions.

Parameters:
  - context: context.Context
  - now: time.Time

Returns:
  - int64: Rows removed
  - error: Cleanup failures
*/
func (repository *PostgresRefreshTokenRepository) DeleteExpired(context context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s <= $1`,
		schema.UserRefreshToken.Table, schema.UserRefreshToken.ExpiresAt)

	tag, err := repository.db.Exec(context, query, now)
	if err != nil {
		return 0, fmt.Errorf("postgres_refresh_token_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListActive returns the user's unexpired sessions, newest first.
func (repository *PostgresRefreshTokenRepository) ListActive(context context.Context, userID string, now time.Time) ([]RefreshToken, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s FROM %s
		WHERE %s = $1 AND %s > $2
		ORDER BY %s DESC`,
		schema.UserRefreshToken.TokenHash, schema.UserRefreshToken.UserID,
		schema.UserRefreshToken.CreatedAt, schema.UserRefreshToken.ExpiresAt,
		schema.UserRefreshToken.Table,
		schema.UserRefreshToken.UserID, schema.UserRefreshToken.ExpiresAt,
		schema.UserRefreshToken.CreatedAt,
	)

	rows, err := repository.db.Query(context, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("postgres_refresh_token_repo_list_failed: %w", err)
	}
	defer rows.Close()

	tokens := make([]RefreshToken, 0)
	for rows.Next() {
		var token RefreshToken
		if err := rows.Scan(&token.TokenHash, &token.UserID, &token.CreatedAt, &token.ExpiresAt); err != nil {
			return nil, fmt.Errorf("postgres_refresh_token_repo_list_scan_failed: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_refresh_token_repo_list_failed: %w", err)
	}

	return tokens, nil
}
