package postgres

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repository"
)

// Refresh token values carry 64 bytes of entropy, base64 encoded.
// Collisions are negligible, so the unique index is belt only.
const tokenValueBytes = 64

type RefreshTokenRepo struct {
	DB DBTX
}

func newTokenValue() (string, error) {
	b := make([]byte, tokenValueBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generating token value. Err: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

const createToken = `-- name: Create Refresh Token
INSERT INTO refresh_tokens (id, user_id, token, created_at, expires_at, revoked_at, device_info, ip_address)
VALUES ($1, $2, $3, $4, $5, NULL, $6, $7)
RETURNING id, user_id, token, created_at, expires_at, revoked_at, device_info, ip_address
`

// Create inserts a token record with a fresh random value. The value is
// never client supplied. Durability is the caller's transaction concern.
func (r *RefreshTokenRepo) Create(ctx context.Context, params repository.CreateTokenParams) (models.RefreshToken, error) {
	value, err := newTokenValue()
	if err != nil {
		return models.RefreshToken{}, err
	}

	now := time.Now().Truncate(time.Second)
	rows, _ := r.DB.Query(ctx, createToken,
		uuid.New(), params.UserID, value, now, params.ExpiresAt, params.DeviceInfo, params.IPAddress)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return token, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

const getToken = `-- name: Get token by the value itself
SELECT id, user_id, token, created_at, expires_at, revoked_at, device_info, ip_address
FROM refresh_tokens
WHERE token = $1
`

// Get token
// It should return result even if it is expired or revoked already
func (r *RefreshTokenRepo) Get(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	return r.get(ctx, getToken, tokenString)
}

const getTokenForUpdate = getToken + `FOR UPDATE
`

// GetForUpdate locks the token row until the enclosing transaction ends.
// Concurrent refreshes of the same value queue up here, and the loser
// observes revoked_at set by the winner.
func (r *RefreshTokenRepo) GetForUpdate(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	return r.get(ctx, getTokenForUpdate, tokenString)
}

func (r *RefreshTokenRepo) get(ctx context.Context, query string, tokenString string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, query, tokenString)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeToken = `-- name: Revoke token if it is not revoked yet
UPDATE refresh_tokens
SET revoked_at = COALESCE(revoked_at, $2)
WHERE token = $1
RETURNING id, user_id, token, created_at, expires_at, revoked_at, device_info, ip_address
`

// Revoke token
// Idempotent: an already revoked token keeps its original revoked_at and the
// call reports revoked=false
func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenString string) (models.RefreshToken, bool, error) {
	now := time.Now().Truncate(time.Microsecond)
	rows, _ := r.DB.Query(ctx, revokeToken, tokenString, now)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil && token.RevokedAt != nil && token.RevokedAt.Equal(now):
		return token, true, nil
	case err == nil: // revoked_at differs from now == token was revoked before
		return token, false, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, false, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, false, fmt.Errorf("db error: %w", err)
	}
}

const deleteExpiredTokens = `-- name: Delete tokens expired before the cutoff
DELETE FROM refresh_tokens
WHERE expires_at < $1
`

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, expiredBefore time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredTokens, expiredBefore)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.CreatedAt, &t.ExpiresAt, &t.RevokedAt, &t.DeviceInfo, &t.IPAddress)
	return t, err
}
