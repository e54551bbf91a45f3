package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/handlers/middleware"
	"storefront/internal/handlers/render"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/service/auth"
)

// One message for every credential failure so responses never tell which
// check rejected the attempt. The details stay in logs.
const invalidCredentialsMessage = "Invalid username or password"

type tokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type"`
}

func newTokenPairResponse(pair models.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:      pair.Access.Value,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshToken:     pair.Refresh.Value,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
		TokenType:        "Bearer",
	}
}

func handleRegister(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required,min=2,max=50"`
		Password string `json:"password" validate:"required,min=8"`
		FullName string `json:"full_name" validate:"max=100"`
		Email    string `json:"email" validate:"required,email"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		_, err = authService.Register(r.Context(), data.Username, data.Password, data.FullName, data.Email)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, "User already exists", http.StatusConflict)
			default:
				logger.Error("Failed to register user", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, response{Message: "User registered successfully"}, http.StatusCreated)
	})
}

func handleLogin(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Login(r.Context(), data.Username, data.Password, clientInfo(r, authService))
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrAlreadyAuthenticated):
				render.ServiceError(w, "Already authenticated", http.StatusConflict)
			case isCredentialError(err):
				logger.Info("Login rejected", "username", data.Username, "error", err)
				render.ServiceError(w, invalidCredentialsMessage, http.StatusUnauthorized)
			default:
				logger.Error("Failed to login user", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newTokenPairResponse(pair))
	})
}

func handleTokenRefresh(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Refresh(r.Context(), data.RefreshToken, clientInfo(r, authService))
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrRefreshTokenNotFound),
				errors.Is(err, apperrors.ErrRefreshTokenInvalidOrExpired),
				errors.Is(err, apperrors.ErrUserNotFound):
				logger.Info("Token refresh rejected", "error", err)
				render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
			default:
				logger.Error("Failed to refresh tokens", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newTokenPairResponse(pair))
	})
}

func handleLogout(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = authService.Logout(r.Context(), data.RefreshToken)
		if err != nil {
			var validationErr *apperrors.ValidationError
			switch {
			case errors.As(err, &validationErr):
				render.ServiceError(w, validationErr.Error(), http.StatusBadRequest)
			case errors.Is(err, apperrors.ErrRefreshTokenNotFound),
				errors.Is(err, apperrors.ErrRefreshTokenInvalidOrExpired):
				logger.Info("Logout rejected", "error", err)
				render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
			default:
				logger.Error("Failed to logout", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{Message: "Logged out successfully"})
	})
}

func isCredentialError(err error) bool {
	return errors.Is(err, apperrors.ErrUserNotFound) ||
		errors.Is(err, apperrors.ErrInvalidCredentials) ||
		errors.Is(err, apperrors.ErrUserLockedOut) ||
		errors.Is(err, apperrors.ErrEmailNotConfirmed)
}

// clientInfo describes the calling client for the session records. The
// caller counts as authenticated when it presents a valid access token.
func clientInfo(r *http.Request, authService authService) auth.ClientInfo {
	info := auth.ClientInfo{
		DeviceInfo: r.UserAgent(),
		IPAddress:  middleware.ClientIP(r),
	}

	header := r.Header.Get("Authorization")
	if access, found := strings.CutPrefix(header, "Bearer "); found && access != "" {
		if _, err := authService.Authenticate(r.Context(), access); err == nil {
			info.Authenticated = true
		}
	}

	return info
}
