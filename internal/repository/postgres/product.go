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

type ProductRepo struct {
	DB DBTX
}

const productColumns = `id, name, description, price, category_id, image_urls, created_at, updated_at, deleted_at`

const createProduct = `-- name: CreateProduct
INSERT INTO products (name, description, price, category_id, image_urls)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + productColumns

func (r *ProductRepo) Create(ctx context.Context, params repository.CreateProductParams) (models.Product, error) {
	imageURLs := params.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}

	rows, _ := r.DB.Query(ctx, createProduct, params.Name, params.Description, params.Price, params.CategoryID, imageURLs)
	product, err := pgx.CollectOneRow(rows, rowToProduct)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return product, apperrors.ErrCategoryNotFound
		}
		return product, fmt.Errorf("db error: %w", err)
	}

	return product, nil
}

const getProductByID = `-- name: GetProductByID
SELECT ` + productColumns + `
FROM products
WHERE id = $1 AND deleted_at IS NULL
`

func (r *ProductRepo) GetByID(ctx context.Context, id int64) (models.Product, error) {
	rows, _ := r.DB.Query(ctx, getProductByID, id)
	product, err := pgx.CollectOneRow(rows, rowToProduct)

	switch {
	case err == nil:
		return product, nil
	case errors.Is(err, pgx.ErrNoRows):
		return product, apperrors.ErrProductNotFound
	default:
		return product, fmt.Errorf("db error: %w", err)
	}
}

const listProducts = `-- name: ListProducts
SELECT ` + productColumns + `
FROM products
WHERE deleted_at IS NULL AND ($1::bigint IS NULL OR category_id = $1)
ORDER BY name
`

func (r *ProductRepo) List(ctx context.Context, opts repository.ListProductsOpts) ([]models.Product, error) {
	rows, _ := r.DB.Query(ctx, listProducts, opts.CategoryID)
	products, err := pgx.CollectRows(rows, rowToProduct)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return products, nil
}

const updateProduct = `-- name: UpdateProduct
UPDATE products
SET name = $2, description = $3, price = $4, category_id = $5, image_urls = $6, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + productColumns

func (r *ProductRepo) Update(ctx context.Context, id int64, params repository.CreateProductParams) (models.Product, error) {
	imageURLs := params.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}

	rows, _ := r.DB.Query(ctx, updateProduct, id, params.Name, params.Description, params.Price, params.CategoryID, imageURLs)
	product, err := pgx.CollectOneRow(rows, rowToProduct)

	switch {
	case err == nil:
		return product, nil
	case errors.Is(err, pgx.ErrNoRows):
		return product, apperrors.ErrProductNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return product, apperrors.ErrCategoryNotFound
		}
		return product, fmt.Errorf("db error: %w", err)
	}
}

const deleteProduct = `-- name: DeleteProduct (soft)
UPDATE products
SET deleted_at = now(), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
`

func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx, deleteProduct, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrProductNotFound
	}
	return nil
}

func rowToProduct(row pgx.CollectableRow) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.ImageURLs, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	return p, err
}
