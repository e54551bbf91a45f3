package cleanup

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperrors"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/repository/postgres"
	"storefront/internal/testutil"
)

func Test_CleanupJob(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("deletes only long expired tokens", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			now := time.Now()

			user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
				Username:       "token-owner",
				HashedPassword: "hashed-password",
				Email:          "owner@example.com",
			})
			require.NoError(t, err)

			longExpired, err := storage.Refresh().Create(t.Context(), repository.CreateTokenParams{
				UserID:    user.ID,
				ExpiresAt: now.Add(-40 * 24 * time.Hour),
			})
			require.NoError(t, err)

			justExpired, err := storage.Refresh().Create(t.Context(), repository.CreateTokenParams{
				UserID:    user.ID,
				ExpiresAt: now.Add(-time.Hour),
			})
			require.NoError(t, err)

			active, err := storage.Refresh().Create(t.Context(), repository.CreateTokenParams{
				UserID:    user.ID,
				ExpiresAt: now.Add(24 * time.Hour),
			})
			require.NoError(t, err)

			job := New(storage.Refresh(), logger.NewNoOpLogger())

			require.NoError(t, job.RunOnce(t.Context()))

			_, err = storage.Refresh().Get(t.Context(), longExpired.Token)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "token past retention should be gone")

			_, err = storage.Refresh().Get(t.Context(), justExpired.Token)
			require.NoError(t, err, "recently expired token should survive")

			_, err = storage.Refresh().Get(t.Context(), active.Token)
			require.NoError(t, err, "active token should survive")
		})
	})

	t.Run("nothing to delete is fine", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			job := New(storage.Refresh(), logger.NewNoOpLogger())

			require.NoError(t, job.RunOnce(t.Context()))
		})
	})
}
