package handlers

import (
	"context"
	"net/http"

	"storefront/internal/handlers/middleware"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/service/audit"
	"storefront/internal/service/auth"
	"storefront/internal/service/product"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	categoryService categoryService,
	productService productService,
	recorder auditRecorder,
	limiter RateLimiter,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}
	withAdmin := func(h http.Handler) http.Handler {
		return chain(h, authMiddleware, middleware.RequireRole("admin"))
	}

	// Credential endpoints are throttled per client address
	throttled := func(h http.Handler) http.Handler {
		if limiter == nil {
			return h
		}
		return middleware.RateLimitMiddleware(limiter, "auth", logger)(h)
	}

	apiauth := http.NewServeMux()
	apiauth.Handle("POST /register", throttled(handleRegister(authService, logger)))
	apiauth.Handle("POST /login", throttled(handleLogin(authService, logger)))
	apiauth.Handle("POST /refresh", throttled(handleTokenRefresh(authService, logger)))
	apiauth.Handle("POST /logout", handleLogout(authService, logger))
	apiauth.Handle("GET /me", withAuth(handleUserMe()))

	root := http.NewServeMux()
	root.Handle("/api/auth/", http.StripPrefix("/api/auth", apiauth))

	root.Handle("GET /api/categories", handleListCategories(categoryService, logger))
	root.Handle("GET /api/categories/{id}", handleGetCategory(categoryService, logger))
	root.Handle("POST /api/categories", withAdmin(handleCreateCategory(categoryService, recorder, logger)))
	root.Handle("PUT /api/categories/{id}", withAdmin(handleUpdateCategory(categoryService, recorder, logger)))
	root.Handle("PATCH /api/categories/{id}/description", withAdmin(handleUpdateCategoryDescription(categoryService, recorder, logger)))
	root.Handle("DELETE /api/categories/{id}", withAdmin(handleDeleteCategory(categoryService, recorder, logger)))

	root.Handle("GET /api/products", handleListProducts(productService, logger))
	root.Handle("GET /api/products/{id}", handleGetProduct(productService, logger))
	root.Handle("POST /api/products", withAdmin(handleCreateProduct(productService, recorder, logger)))
	root.Handle("PUT /api/products/{id}", withAdmin(handleUpdateProduct(productService, recorder, logger)))
	root.Handle("DELETE /api/products/{id}", withAdmin(handleDeleteProduct(productService, recorder, logger)))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user, apperrors.ErrUserAlreadyExists when the username is taken
	Register(ctx context.Context, username string, password string, fullName string, email string) (models.User, error)

	// Login with credentials. Every credential failure maps to the same
	// 401 at this boundary, whatever check rejected the attempt
	Login(ctx context.Context, username string, password string, client auth.ClientInfo) (models.TokenPair, error)

	// Close the session the refresh token belongs to
	Logout(ctx context.Context, refreshValue string) error

	// Rotate the refresh token and issue a fresh pair
	Refresh(ctx context.Context, refreshValue string, client auth.ClientInfo) (models.TokenPair, error)

	// Resolve an access token into its user
	Authenticate(ctx context.Context, accessValue string) (models.User, error)
}

type categoryService interface {
	Create(ctx context.Context, name string, description *string) (models.Category, error)
	Get(ctx context.Context, id int64) (models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, id int64, name string, description *string) (models.Category, error)
	UpdateDescription(ctx context.Context, id int64, description string) (models.Category, error)
	Delete(ctx context.Context, id int64) error
}

type productService interface {
	Create(ctx context.Context, params product.ProductParams) (models.Product, error)
	Get(ctx context.Context, id int64) (models.Product, error)
	List(ctx context.Context, categoryID *int64) ([]models.Product, error)
	Update(ctx context.Context, id int64, params product.ProductParams) (models.Product, error)
	Delete(ctx context.Context, id int64) error
}

type auditRecorder interface {
	Record(entry audit.Entry)
}

// RateLimiter throttles requests per key. Nil disables throttling
type RateLimiter interface {
	Allow(ctx context.Context, key string) (retryAfter int64, allowed bool, err error)
}
