package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/service/audit"
	"storefront/internal/service/auth/tokenmanager"
)

const defaultRefreshTokenTTL = 7 * 24 * time.Hour

// ClientInfo describes the request that asked for tokens. The handler fills
// it in, the service never reads ambient request state on its own.
type ClientInfo struct {
	DeviceInfo string
	IPAddress  string

	// Whether the caller already holds a valid session
	Authenticated bool
}

type Config struct {
	// Hasher to use during registration
	// If not set than default bcrypt hasher is used
	Hasher PasswordHasher

	// Refresh token lifetime
	// If not set than default is used
	RefreshTTL time.Duration

	// Optional trail for session events
	Audit auditRecorder
}

// Auth service. Issues token pairs, rotates refresh tokens, closes sessions.
type AuthService struct {
	verifier *Verifier
	token    *tokenmanager.TokenManager
	hasher   PasswordHasher

	refreshTTL time.Duration
	audit      auditRecorder

	// Repositories to access long term data
	storage repository.Storage
}

func NewService(cfg Config, verifier *Verifier, token *tokenmanager.TokenManager, storage repository.Storage) (*AuthService, error) {
	if verifier == nil || token == nil || storage == nil {
		return nil, errors.New("verifier, token manager and storage must not be nil")
	}

	if cfg.Hasher == nil {
		cfg.Hasher = DefaultHasher
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = defaultRefreshTokenTTL
	}

	return &AuthService{
		verifier:   verifier,
		token:      token,
		hasher:     cfg.Hasher,
		refreshTTL: cfg.RefreshTTL,
		audit:      cfg.Audit,
		storage:    storage,
	}, nil
}

// Register creates an email unconfirmed user with the default role
func (s *AuthService) Register(ctx context.Context, username string, password string, fullName string, email string) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	user, err = s.storage.User().CreateUser(ctx, repository.CreateUserParams{
		Username:       username,
		HashedPassword: hash,
		FullName:       fullName,
		Email:          email,
	})
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// Login verifies credentials and opens a session: signed access token plus
// a fresh refresh token bound to the calling client.
func (s *AuthService) Login(ctx context.Context, username string, password string, client ClientInfo) (models.TokenPair, error) {
	var pair models.TokenPair

	if client.Authenticated {
		return pair, apperrors.ErrAlreadyAuthenticated
	}

	user, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		return pair, err
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		pair, err = s.issuePair(ctx, storage, user, client)
		return err
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while opening session. Err: %w", err)
	}

	s.recordEvent(audit.ActionLogin, user.ID, client.IPAddress)
	return pair, nil
}

// Logout revokes the refresh token. Revoking is permanent, a revoked value
// can not be used to logout again.
func (s *AuthService) Logout(ctx context.Context, refreshValue string) error {
	if refreshValue == "" {
		return apperrors.NewValidationError("refresh_token", "must not be empty")
	}

	token, err := s.storage.Refresh().Get(ctx, refreshValue)
	if err != nil {
		return fmt.Errorf("error while getting refresh token. Err: %w", err)
	}

	if !token.IsActive(time.Now()) {
		return apperrors.ErrRefreshTokenInvalidOrExpired
	}

	_, revoked, err := s.storage.Refresh().Revoke(ctx, refreshValue)
	if err != nil {
		return fmt.Errorf("error while revoking refresh token. Err: %w", err)
	}
	if !revoked {
		// Lost the race to a concurrent logout or refresh
		return apperrors.ErrRefreshTokenInvalidOrExpired
	}

	s.recordEvent(audit.ActionLogout, token.UserID, token.IPAddress)
	return nil
}

// Refresh rotates the token: the old value is revoked and a new pair is
// issued in one transaction. The row lock on the old token serializes
// concurrent rotations of the same value, the loser finds it revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshValue string, client ClientInfo) (models.TokenPair, error) {
	var pair models.TokenPair

	if refreshValue == "" {
		return pair, apperrors.NewValidationError("refresh_token", "must not be empty")
	}

	var rotatedFor uuid.UUID
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		token, err := storage.Refresh().GetForUpdate(ctx, refreshValue)
		if err != nil {
			return fmt.Errorf("error while getting refresh token. Err: %w", err)
		}

		if !token.IsActive(time.Now()) {
			return apperrors.ErrRefreshTokenInvalidOrExpired
		}

		user, err := storage.User().GetUserByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("error while getting token owner. Err: %w", err)
		}

		if _, _, err := storage.Refresh().Revoke(ctx, refreshValue); err != nil {
			return fmt.Errorf("error while revoking old token. Err: %w", err)
		}

		pair, err = s.issuePair(ctx, storage, user, client)
		if err == nil {
			rotatedFor = user.ID
		}
		return err
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	s.recordEvent(audit.ActionRefresh, rotatedFor, client.IPAddress)
	return pair, nil
}

// Authenticate resolves the access token into its user. For middleware use.
func (s *AuthService) Authenticate(ctx context.Context, accessValue string) (models.User, error) {
	var empty models.User

	claims, err := s.token.ParseAccess(accessValue)
	if err != nil {
		return empty, fmt.Errorf("error while parsing access token. Err: %w", err)
	}

	userID, err := claims.UserID()
	if err != nil {
		return empty, fmt.Errorf("malformed subject claim. Err: %w", err)
	}

	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return empty, fmt.Errorf("error while getting user. Err: %w", err)
	}

	if user.IsLockedOut(time.Now()) {
		return empty, apperrors.ErrUserLockedOut
	}

	return user, nil
}

func (s *AuthService) recordEvent(action string, userID uuid.UUID, ipAddress string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(audit.Entry{
		UserID:    &userID,
		Action:    action,
		Entity:    "user",
		EntityID:  userID.String(),
		IPAddress: ipAddress,
	})
}

func (s *AuthService) issuePair(ctx context.Context, storage repository.Storage, user models.User, client ClientInfo) (models.TokenPair, error) {
	var pair models.TokenPair

	access, err := s.token.IssueAccess(user)
	if err != nil {
		return pair, fmt.Errorf("error while issuing access token. Err: %w", err)
	}

	refresh, err := storage.Refresh().Create(ctx, repository.CreateTokenParams{
		UserID:     user.ID,
		ExpiresAt:  time.Now().Add(s.refreshTTL),
		DeviceInfo: client.DeviceInfo,
		IPAddress:  client.IPAddress,
	})
	if err != nil {
		return pair, fmt.Errorf("error while creating refresh token. Err: %w", err)
	}

	pair.Access = access
	pair.Refresh = models.IssuedToken{Value: refresh.Token, ExpiresAt: refresh.ExpiresAt}
	return pair, nil
}
