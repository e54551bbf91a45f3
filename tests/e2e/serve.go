package e2e

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/repository/postgres"
	"storefront/internal/service/auth"
	"storefront/internal/service/auth/tokenmanager"
	"storefront/internal/service/category"
	"storefront/internal/service/product"
	"storefront/internal/testutil"
)

type Services struct {
	AuthService     *auth.AuthService
	CategoryService *category.CategoryService
	ProductService  *product.ProductService
	Storage         repository.Storage
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.WithTx with it
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)
		log := logger.NewNoOpLogger()

		tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"})
		require.NoError(t, err, "token manager should be created without errors")

		verifier := auth.NewVerifier(auth.VerifierConfig{}, storage.User())
		as, err := auth.NewService(auth.Config{}, verifier, tokenManager, storage)
		require.NoError(t, err, "auth service starting error")

		cs := category.NewService(category.Config{}, storage.Category(), log)
		ps := product.NewService(storage.Product())

		router := handlers.NewRouter(as, cs, ps, nil, nil, log)

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			AuthService:     as,
			CategoryService: cs,
			ProductService:  ps,
			Storage:         storage,
		})
	})
}
