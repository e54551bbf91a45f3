package models

import (
	"time"
)

type Category struct {
	ID          int64
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time // soft delete mark, deleted rows are filtered out of reads
}
