package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, username, password_hash, full_name, email, roles)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, username, password_hash, full_name, email, email_confirmed, access_failed_count, lockout_until, roles
`

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	roles := params.Roles
	if len(roles) == 0 {
		roles = []string{"user"}
	}

	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), params.Username, params.HashedPassword, params.FullName, params.Email, roles)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, username, password_hash, full_name, email, email_confirmed, access_failed_count, lockout_until, roles
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByUsername = `-- name: GetUserByUsername
SELECT id, created_at, username, password_hash, full_name, email, email_confirmed, access_failed_count, lockout_until, roles
FROM users
WHERE username = $1
`

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByUsername, username)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const recordAccessFailure = `-- name: RecordAccessFailure
UPDATE users
SET access_failed_count = CASE WHEN access_failed_count + 1 >= $2 THEN 0 ELSE access_failed_count + 1 END,
    lockout_until       = CASE WHEN access_failed_count + 1 >= $2 THEN $3 ELSE lockout_until END
WHERE id = $1
RETURNING access_failed_count
`

// Record failed password check
// The counter rolls over and the lockout window starts in the same statement,
// so concurrent failures can't skip the lockout threshold
func (r *UserRepo) RecordAccessFailure(ctx context.Context, userID uuid.UUID, maxFailures int, lockedUntil time.Time) (bool, error) {
	rows, _ := r.DB.Query(ctx, recordAccessFailure, userID, maxFailures, lockedUntil)
	count, err := pgx.CollectOneRow(rows, pgx.RowTo[int])

	switch {
	case err == nil:
		return count == 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, apperrors.ErrUserNotFound
	default:
		return false, fmt.Errorf("db error: %w", err)
	}
}

const resetAccessFailures = `-- name: ResetAccessFailures
UPDATE users
SET access_failed_count = 0,
    lockout_until = NULL
WHERE id = $1
`

func (r *UserRepo) ResetAccessFailures(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, resetAccessFailures, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

const confirmEmail = `-- name: ConfirmEmail
UPDATE users
SET email_confirmed = true
WHERE id = $1
`

func (r *UserRepo) ConfirmEmail(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, confirmEmail, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.CreatedAt, &u.Username, &u.HashedPassword,
		&u.FullName, &u.Email, &u.EmailConfirmed,
		&u.AccessFailedCount, &u.LockoutUntil, &u.Roles,
	)
	return u, err
}
