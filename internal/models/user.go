package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	HashedPassword string
	FullName       string
	Email          string
	EmailConfirmed bool

	// Lockout bookkeeping, mutated on every failed password check
	AccessFailedCount int
	LockoutUntil      *time.Time

	Roles []string
}

// User is locked out while the lockout window has not passed yet
func (u User) IsLockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && now.Before(*u.LockoutUntil)
}
