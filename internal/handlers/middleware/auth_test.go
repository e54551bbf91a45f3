package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"storefront/internal/handlers/userctx"
	"storefront/internal/models"
)

// Allow to use a function as auth service
type authFunc func(ctx context.Context, accessValue string) (models.User, error)

func (f authFunc) Authenticate(ctx context.Context, accessValue string) (models.User, error) {
	return f(ctx, accessValue)
}

func TestAuthMiddleware(t *testing.T) {
	// Simple handler that try to get user from context
	// If ok write it username to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set user or reject the request
		user, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(user.Username))
		require.NoError(t, err, "should write username to response")
	})

	get := func(t *testing.T, url string, bearer string) (*http.Response, string) {
		t.Helper()

		req, err := http.NewRequest(http.MethodGet, url+"/test", nil)
		require.NoError(t, err)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		return resp, string(body)
	}

	t.Run("auth ok", func(t *testing.T) {
		var gotToken string
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, access string) (models.User, error) {
			gotToken = access
			return models.User{Username: "test-user"}, nil
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, body := get(t, srv.URL, "some-access-token")

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", body)
		require.Equal(t, "test-user", body, "should return username in response")
		require.Equal(t, "some-access-token", gotToken, "token from header should reach the service")
	})

	t.Run("no bearer header", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, access string) (models.User, error) {
			t.Fatal("service must not be called without a token")
			return models.User{}, nil
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, _ := get(t, srv.URL, "")

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("auth fail", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, access string) (models.User, error) {
			return models.User{}, errors.New("nope")
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, _ := get(t, srv.URL, "bad-token")

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRequireRole(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	do := func(t *testing.T, user *models.User) *http.Response {
		t.Helper()

		var wrapped http.Handler = RequireRole("admin")(handler)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(userctx.New(r.Context(), *user))
			}
			wrapped.ServeHTTP(w, r)
		}))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck
		return resp
	}

	t.Run("role present", func(t *testing.T) {
		resp := do(t, &models.User{Roles: []string{"user", "admin"}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("role missing", func(t *testing.T) {
		resp := do(t, &models.User{Roles: []string{"user"}})
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("no user in context", func(t *testing.T) {
		resp := do(t, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
