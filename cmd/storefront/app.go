package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/db"
	"storefront/internal/handlers"
	"storefront/internal/jobs/cleanup"
	"storefront/internal/logger"
	"storefront/internal/repository/postgres"
	redisrepo "storefront/internal/repository/redis"
	"storefront/internal/service/audit"
	"storefront/internal/service/auth"
	"storefront/internal/service/auth/tokenmanager"
	"storefront/internal/service/category"
	"storefront/internal/service/mailer"
	"storefront/internal/service/product"
	"storefront/internal/service/rate"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	// Background workers started alongside the http server
	recorder *audit.Recorder
	cleanup  *cleanup.Job
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Redis is optional. Without it reads hit the database and credential
	// endpoints run unthrottled
	var cache category.Cache
	var limiter *rate.Limiter
	if c.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: c.RedisAddr})
		cache = redisrepo.NewCategoryCache(client, 0)
		limiter = rate.NewLimiter(redisrepo.NewRateStore(client), c.RateLimit, c.RateWindow)
	}

	categoryCfg := category.Config{
		Cache:    cache,
		NotifyTo: c.MailNotifyTo,
	}
	if c.MailGatewayAddr != "" && c.MailNotifyTo != "" {
		categoryCfg.Mail = mailer.NewClient(c.MailGatewayAddr, logger)
	}

	// Initialize services
	recorder := audit.NewRecorder(storage.Audit(), logger)

	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey: c.SecretKey,
		Issuer:    c.JWTIssuer,
		Audience:  c.JWTAudience,
		AccessTTL: c.AccessTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	verifier := auth.NewVerifier(auth.VerifierConfig{
		MaxFailures:     c.LockoutMaxFailures,
		LockoutDuration: c.LockoutDuration,
		Audit:           recorder,
	}, storage.User())

	authService, err := auth.NewService(auth.Config{
		RefreshTTL: c.RefreshTokenTTL,
		Audit:      recorder,
	}, verifier, tokenManager, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	categoryService := category.NewService(categoryCfg, storage.Category(), logger)

	productService := product.NewService(storage.Product())

	var routerLimiter handlers.RateLimiter
	if limiter != nil {
		routerLimiter = limiter
	}

	mux := handlers.NewRouter(
		authService,
		categoryService,
		productService,
		recorder,
		routerLimiter,
		logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		recorder:   recorder,
		cleanup:    cleanup.New(storage.Refresh(), logger),
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	recorderStopped := s.recorder.Run(srvCtx)
	cleanupStopped := s.cleanup.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			// Consider to user logger dependency
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		// Consider to user logger dependency
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server")
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-recorderStopped
	<-cleanupStopped

	return err
}
