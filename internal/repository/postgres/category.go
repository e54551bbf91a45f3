package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repository"
)

type CategoryRepo struct {
	DB DBTX
}

const categoryColumns = `id, name, description, created_at, updated_at, deleted_at`

const createCategory = `-- name: CreateCategory
INSERT INTO categories (name, description)
VALUES ($1, $2)
RETURNING ` + categoryColumns

func (r *CategoryRepo) Create(ctx context.Context, params repository.CreateCategoryParams) (models.Category, error) {
	rows, _ := r.DB.Query(ctx, createCategory, params.Name, params.Description)
	category, err := pgx.CollectOneRow(rows, rowToCategory)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return category, apperrors.ErrCategoryNameTaken
		}
		return category, fmt.Errorf("db error: %w", err)
	}

	return category, nil
}

const getCategoryByID = `-- name: GetCategoryByID
SELECT ` + categoryColumns + `
FROM categories
WHERE id = $1 AND deleted_at IS NULL
`

func (r *CategoryRepo) GetByID(ctx context.Context, id int64) (models.Category, error) {
	rows, _ := r.DB.Query(ctx, getCategoryByID, id)
	category, err := pgx.CollectOneRow(rows, rowToCategory)

	switch {
	case err == nil:
		return category, nil
	case errors.Is(err, pgx.ErrNoRows):
		return category, apperrors.ErrCategoryNotFound
	default:
		return category, fmt.Errorf("db error: %w", err)
	}
}

const listCategories = `-- name: ListCategories
SELECT ` + categoryColumns + `
FROM categories
WHERE deleted_at IS NULL
ORDER BY name
`

func (r *CategoryRepo) List(ctx context.Context) ([]models.Category, error) {
	rows, _ := r.DB.Query(ctx, listCategories)
	categories, err := pgx.CollectRows(rows, rowToCategory)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return categories, nil
}

const updateCategory = `-- name: UpdateCategory
UPDATE categories
SET name = $2, description = $3, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + categoryColumns

func (r *CategoryRepo) Update(ctx context.Context, id int64, params repository.UpdateCategoryParams) (models.Category, error) {
	rows, _ := r.DB.Query(ctx, updateCategory, id, params.Name, params.Description)
	category, err := pgx.CollectOneRow(rows, rowToCategory)

	switch {
	case err == nil:
		return category, nil
	case errors.Is(err, pgx.ErrNoRows):
		return category, apperrors.ErrCategoryNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return category, apperrors.ErrCategoryNameTaken
		}
		return category, fmt.Errorf("db error: %w", err)
	}
}

const updateCategoryDescription = `-- name: UpdateCategoryDescription
UPDATE categories
SET description = $2, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + categoryColumns

func (r *CategoryRepo) UpdateDescription(ctx context.Context, id int64, description string) (models.Category, error) {
	rows, _ := r.DB.Query(ctx, updateCategoryDescription, id, description)
	category, err := pgx.CollectOneRow(rows, rowToCategory)

	switch {
	case err == nil:
		return category, nil
	case errors.Is(err, pgx.ErrNoRows):
		return category, apperrors.ErrCategoryNotFound
	default:
		return category, fmt.Errorf("db error: %w", err)
	}
}

const deleteCategory = `-- name: DeleteCategory (soft)
UPDATE categories
SET deleted_at = now(), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
`

func (r *CategoryRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx, deleteCategory, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCategoryNotFound
	}
	return nil
}

func rowToCategory(row pgx.CollectableRow) (models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	return c, err
}
