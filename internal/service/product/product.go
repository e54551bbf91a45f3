package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/repository"
)

type ProductService struct {
	productRepo repository.ProductRepo
}

func NewService(productRepo repository.ProductRepo) *ProductService {
	return &ProductService{productRepo: productRepo}
}

type ProductParams struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	CategoryID  *int64
	ImageURLs   []string
}

func (p ProductParams) validate() error {
	if p.Name == "" {
		return apperrors.NewValidationError("name", "must not be empty")
	}
	if p.Price.IsNegative() {
		return apperrors.NewValidationError("price", "must not be negative")
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, params ProductParams) (models.Product, error) {
	var product models.Product

	if err := params.validate(); err != nil {
		return product, err
	}

	product, err := s.productRepo.Create(ctx, repository.CreateProductParams{
		Name:        params.Name,
		Description: params.Description,
		Price:       params.Price,
		CategoryID:  params.CategoryID,
		ImageURLs:   params.ImageURLs,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryNotFound) {
			return product, apperrors.NewValidationError("category_id", "category does not exist")
		}
		return product, fmt.Errorf("can't create product. Err: %w", err)
	}

	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return product, fmt.Errorf("can't get product. Err: %w", err)
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, categoryID *int64) ([]models.Product, error) {
	products, err := s.productRepo.List(ctx, repository.ListProductsOpts{CategoryID: categoryID})
	if err != nil {
		return nil, fmt.Errorf("can't list products. Err: %w", err)
	}
	return products, nil
}

func (s *ProductService) Update(ctx context.Context, id int64, params ProductParams) (models.Product, error) {
	var product models.Product

	if err := params.validate(); err != nil {
		return product, err
	}

	product, err := s.productRepo.Update(ctx, id, repository.CreateProductParams{
		Name:        params.Name,
		Description: params.Description,
		Price:       params.Price,
		CategoryID:  params.CategoryID,
		ImageURLs:   params.ImageURLs,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryNotFound) {
			return product, apperrors.NewValidationError("category_id", "category does not exist")
		}
		return product, fmt.Errorf("can't update product. Err: %w", err)
	}

	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("can't delete product. Err: %w", err)
	}
	return nil
}
