package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "storefront/internal/logger"
)

type limiterFunc func(ctx context.Context, key string) (int64, bool, error)

func (f limiterFunc) Allow(ctx context.Context, key string) (int64, bool, error) {
	return f(ctx, key)
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allowed", func(t *testing.T) {
		var gotKey string
		middleware := RateLimitMiddleware(limiterFunc(func(ctx context.Context, key string) (int64, bool, error) {
			gotKey = key
			return 0, true, nil
		}), "auth", applogger.NewNoOpLogger())

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodPost, srv.URL+"/test", nil)
		require.NoError(t, err)
		req.Header.Set("X-Real-IP", "192.0.2.10")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "auth:192.0.2.10", gotKey, "key should combine scope and client address")
	})

	t.Run("blocked with retry after", func(t *testing.T) {
		middleware := RateLimitMiddleware(limiterFunc(func(ctx context.Context, key string) (int64, bool, error) {
			return 42, false, nil
		}), "auth", applogger.NewNoOpLogger())

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/test", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "42", resp.Header.Get("Retry-After"))
	})

	t.Run("limiter failure lets request pass", func(t *testing.T) {
		middleware := RateLimitMiddleware(limiterFunc(func(ctx context.Context, key string) (int64, bool, error) {
			return 0, false, errors.New("redis down")
		}), "auth", applogger.NewNoOpLogger())

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/test", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
