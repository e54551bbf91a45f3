package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperrors"
	"storefront/internal/repository"
	"storefront/internal/testutil"
)

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Tokens reference a user row, so the owner is created in the same tx
	tokenParams := func(t *testing.T, tx pgx.Tx) repository.CreateTokenParams {
		t.Helper()

		userRepo := UserRepo{DB: tx}
		user, err := userRepo.CreateUser(t.Context(), repository.CreateUserParams{
			Username:       "token-owner",
			HashedPassword: "hashed-password",
			Email:          "owner@example.com",
		})
		require.NoError(t, err)

		return repository.CreateTokenParams{
			UserID:     user.ID,
			ExpiresAt:  time.Now().Add(7 * 24 * time.Hour).Truncate(time.Microsecond),
			DeviceInfo: "firefox on linux",
			IPAddress:  "192.0.2.10",
		}
	}

	t.Run("create token ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			params := tokenParams(t, tx)

			got, err := repo.Create(t.Context(), params)

			require.NoError(t, err)
			require.Equal(t, params.UserID, got.UserID)
			require.Len(t, got.Token, 86, "64 random bytes base64 raw-url encoded")
			require.WithinDuration(t, params.ExpiresAt, got.ExpiresAt, time.Microsecond)
			require.Equal(t, params.DeviceInfo, got.DeviceInfo)
			require.Equal(t, params.IPAddress, got.IPAddress)
			require.Nil(t, got.RevokedAt)
			require.True(t, got.IsActive(time.Now()))
		})
	})

	t.Run("create generates unique values", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			params := tokenParams(t, tx)

			first, err := repo.Create(t.Context(), params)
			require.NoError(t, err)
			second, err := repo.Create(t.Context(), params)
			require.NoError(t, err)

			require.NotEqual(t, first.Token, second.Token)
		})
	})

	t.Run("get token ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			params := tokenParams(t, tx)
			created, err := repo.Create(t.Context(), params)
			require.NoError(t, err)

			got, err := repo.Get(t.Context(), created.Token)

			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)
			require.Equal(t, created.UserID, got.UserID)
			require.Nil(t, got.RevokedAt)
		})
	})

	t.Run("get for update returns same row", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			params := tokenParams(t, tx)
			created, err := repo.Create(t.Context(), params)
			require.NoError(t, err)

			got, err := repo.GetForUpdate(t.Context(), created.Token)

			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)
		})
	})

	t.Run("create for unknown user fails", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, err := repo.Create(t.Context(), repository.CreateTokenParams{
				UserID:    uuid.New(),
				ExpiresAt: time.Now().Add(time.Hour),
			})

			require.Error(t, err, "token must reference an existing user")
		})
	})

	t.Run("get not existed token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, err := repo.Get(t.Context(), "no-such-token")

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("revoke token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			params := tokenParams(t, tx)
			created, err := repo.Create(t.Context(), params)
			require.NoError(t, err)

			got, revoked, err := repo.Revoke(t.Context(), created.Token)

			require.NoError(t, err)
			require.True(t, revoked)
			require.NotNil(t, got.RevokedAt)
			require.WithinDuration(t, time.Now(), *got.RevokedAt, 50*time.Millisecond)
			require.False(t, got.IsActive(time.Now()))
		})
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			params := tokenParams(t, tx)
			created, err := repo.Create(t.Context(), params)
			require.NoError(t, err)

			first, revoked, err := repo.Revoke(t.Context(), created.Token)
			require.NoError(t, err)
			require.True(t, revoked)

			time.Sleep(10 * time.Millisecond)
			second, revoked, err := repo.Revoke(t.Context(), created.Token)

			require.NoError(t, err, "re-revoking is a no-op, not an error")
			require.False(t, revoked, "second call should report nothing revoked")
			assert.WithinDuration(t, *first.RevokedAt, *second.RevokedAt, 0, "original revoked_at should be kept")
		})
	})

	t.Run("revoke not existed token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, _, err := repo.Revoke(t.Context(), "no-such-token")

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("delete expired", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			params := tokenParams(t, tx)

			expired := params
			expired.ExpiresAt = time.Now().Add(-48 * time.Hour)
			_, err := repo.Create(t.Context(), expired)
			require.NoError(t, err)

			alive, err := repo.Create(t.Context(), params)
			require.NoError(t, err)

			deleted, err := repo.DeleteExpired(t.Context(), time.Now().Add(-24*time.Hour))

			require.NoError(t, err)
			require.EqualValues(t, 1, deleted)

			_, err = repo.Get(t.Context(), alive.Token)
			require.NoError(t, err, "token that is still alive must stay")
		})
	})
}
