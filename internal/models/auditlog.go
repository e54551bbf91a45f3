package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID        int64
	UserID    *uuid.UUID
	Action    string
	Entity    string
	EntityID  string
	Detail    string
	IPAddress string
	CreatedAt time.Time
}
