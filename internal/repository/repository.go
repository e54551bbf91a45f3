package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

// Storage bundles all repositories over a single database handle.
// InTx runs fn with a Storage bound to one open transaction: everything fn
// does commits or rolls back as a unit.
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Category() CategoryRepo
	Product() ProductRepo
	Audit() AuditLogRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateUserParams struct {
	Username       string
	HashedPassword string
	FullName       string
	Email          string
	Roles          []string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	// Increment the failure counter. When the counter reaches maxFailures the
	// lockout window is set and the counter starts over. Returns whether this
	// failure tripped the lockout.
	RecordAccessFailure(ctx context.Context, userID uuid.UUID, maxFailures int, lockedUntil time.Time) (lockedOut bool, err error)

	// Reset the failure counter to zero after a successful password check
	ResetAccessFailures(ctx context.Context, userID uuid.UUID) error

	// Mark the user email as confirmed
	ConfirmEmail(ctx context.Context, userID uuid.UUID) error
}

type CreateTokenParams struct {
	UserID     uuid.UUID
	ExpiresAt  time.Time
	DeviceInfo string
	IPAddress  string
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Create a token record with a fresh server side generated value
	Create(ctx context.Context, params CreateTokenParams) (models.RefreshToken, error)

	// Return the token if it exists, expired or revoked ones included
	// If the token is absent must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Same as Get but locks the row for the duration of the enclosing
	// transaction. Two concurrent rotations of one value serialize here.
	GetForUpdate(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Set revoked_at unless it is set already. Re-revoking is a no-op.
	// Returns the token and whether this call actually revoked it.
	Revoke(ctx context.Context, tokenString string) (models.RefreshToken, bool, error)

	// Delete tokens that expired before the cutoff, returns affected count
	DeleteExpired(ctx context.Context, expiredBefore time.Time) (int64, error)
}

type CreateCategoryParams struct {
	Name        string
	Description *string
}

type UpdateCategoryParams struct {
	Name        string
	Description *string
}

type CategoryRepo interface {
	// If category with the same name exists must return apperrors.ErrCategoryNameTaken
	Create(ctx context.Context, params CreateCategoryParams) (models.Category, error)
	GetByID(ctx context.Context, id int64) (models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, id int64, params UpdateCategoryParams) (models.Category, error)
	UpdateDescription(ctx context.Context, id int64, description string) (models.Category, error)

	// Soft delete: the row stays but disappears from reads
	Delete(ctx context.Context, id int64) error
}

type CreateProductParams struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	CategoryID  *int64
	ImageURLs   []string
}

type ProductRepo interface {
	Create(ctx context.Context, params CreateProductParams) (models.Product, error)
	GetByID(ctx context.Context, id int64) (models.Product, error)
	List(ctx context.Context, opts ListProductsOpts) ([]models.Product, error)
	Update(ctx context.Context, id int64, params CreateProductParams) (models.Product, error)
	Delete(ctx context.Context, id int64) error
}

type ListProductsOpts struct {
	CategoryID *int64
}

type CreateAuditLogParams struct {
	UserID    *uuid.UUID
	Action    string
	Entity    string
	EntityID  string
	Detail    string
	IPAddress string
}

type AuditLogRepo interface {
	Create(ctx context.Context, params CreateAuditLogParams) (models.AuditLog, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLog, error)
}
