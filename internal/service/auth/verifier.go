package auth

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/service/audit"
)

type auditRecorder interface {
	Record(entry audit.Entry)
}

const (
	defaultMaxFailures     = 5
	defaultLockoutDuration = 15 * time.Minute
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type VerifierConfig struct {
	// Hasher to compare user passwords
	// If not set than default bcrypt hasher is used
	Hasher PasswordHasher

	// Failed attempts before the account locks and how long the lock holds
	// If not set than defaults are used
	MaxFailures     int
	LockoutDuration time.Duration

	// Optional trail for lockout events
	Audit auditRecorder
}

// Verifier checks user credentials and keeps the lockout counter.
// Checks run in fixed order: existence, lockout, password, email confirmed.
type Verifier struct {
	hasher          PasswordHasher
	maxFailures     int
	lockoutDuration time.Duration
	audit           auditRecorder
	userRepo        repository.UserRepo
}

func NewVerifier(cfg VerifierConfig, userRepo repository.UserRepo) *Verifier {
	if cfg.Hasher == nil {
		cfg.Hasher = DefaultHasher
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.LockoutDuration == 0 {
		cfg.LockoutDuration = defaultLockoutDuration
	}

	return &Verifier{
		hasher:          cfg.Hasher,
		maxFailures:     cfg.MaxFailures,
		lockoutDuration: cfg.LockoutDuration,
		audit:           cfg.Audit,
		userRepo:        userRepo,
	}
}

// Verify username and password. Returns the user on success.
// A wrong password moves the failure counter even when the enclosing
// operation fails afterwards, so the counter runs on the verifier's repo
// handle and not inside the caller's transaction.
func (v *Verifier) Verify(ctx context.Context, username string, password string) (models.User, error) {
	var empty models.User

	user, err := v.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return empty, fmt.Errorf("error while getting user. Err: %w", err)
	}

	now := time.Now()
	if user.IsLockedOut(now) {
		return empty, apperrors.ErrUserLockedOut
	}

	if err := v.hasher.Compare(user.HashedPassword, password); err != nil {
		lockedOut, recordErr := v.userRepo.RecordAccessFailure(ctx, user.ID, v.maxFailures, now.Add(v.lockoutDuration))
		if recordErr != nil {
			return empty, fmt.Errorf("error while recording failed attempt. Err: %w", recordErr)
		}
		if lockedOut && v.audit != nil {
			v.audit.Record(audit.Entry{
				UserID:   &user.ID,
				Action:   audit.ActionLockout,
				Entity:   "user",
				EntityID: user.ID.String(),
				Detail:   "too many failed password attempts",
			})
		}
		return empty, apperrors.ErrInvalidCredentials
	}

	// A tripped lockout leaves the counter at zero, so check both fields
	if user.AccessFailedCount > 0 || user.LockoutUntil != nil {
		if err := v.userRepo.ResetAccessFailures(ctx, user.ID); err != nil {
			return empty, fmt.Errorf("error while resetting failed attempts. Err: %w", err)
		}
	}

	if !user.EmailConfirmed {
		return empty, apperrors.ErrEmailNotConfirmed
	}

	return user, nil
}
