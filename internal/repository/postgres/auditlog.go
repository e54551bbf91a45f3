package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"storefront/internal/models"
	"storefront/internal/repository"
)

type AuditLogRepo struct {
	DB DBTX
}

const createAuditLog = `-- name: CreateAuditLog
INSERT INTO audit_logs (user_id, action, entity, entity_id, detail, ip_address)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, user_id, action, entity, entity_id, detail, ip_address, created_at
`

func (r *AuditLogRepo) Create(ctx context.Context, params repository.CreateAuditLogParams) (models.AuditLog, error) {
	rows, _ := r.DB.Query(ctx, createAuditLog,
		params.UserID, params.Action, params.Entity, params.EntityID, params.Detail, params.IPAddress)
	entry, err := pgx.CollectOneRow(rows, rowToAuditLog)
	if err != nil {
		return entry, fmt.Errorf("db error: %w", err)
	}
	return entry, nil
}

const listAuditLogsByUser = `-- name: ListAuditLogsByUser
SELECT id, user_id, action, entity, entity_id, detail, ip_address, created_at
FROM audit_logs
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`

func (r *AuditLogRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, _ := r.DB.Query(ctx, listAuditLogsByUser, userID, limit)
	entries, err := pgx.CollectRows(rows, rowToAuditLog)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entries, nil
}

func rowToAuditLog(row pgx.CollectableRow) (models.AuditLog, error) {
	var a models.AuditLog
	err := row.Scan(&a.ID, &a.UserID, &a.Action, &a.Entity, &a.EntityID, &a.Detail, &a.IPAddress, &a.CreatedAt)
	return a, err
}
