package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/apperrors"
	"storefront/internal/handlers/render"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/service/audit"
	"storefront/internal/service/product"
)

type productResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	ImageURLs   []string        `json:"image_urls,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func newProductResponse(p models.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		CategoryID:  p.CategoryID,
		ImageURLs:   p.ImageURLs,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type productRequest struct {
	Name        string          `json:"name" validate:"required,min=2,max=200"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	ImageURLs   []string        `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
}

func (req productRequest) params() product.ProductParams {
	return product.ProductParams{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		ImageURLs:   req.ImageURLs,
	}
}

func handleListProducts(productService productService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var categoryID *int64
		if raw := r.URL.Query().Get("category_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				render.ServiceError(w, "Invalid category_id filter", http.StatusBadRequest)
				return
			}
			categoryID = &id
		}

		products, err := productService.List(r.Context(), categoryID)
		if err != nil {
			logger.Error("Failed to list products", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		res := make([]productResponse, 0, len(products))
		for _, p := range products {
			res = append(res, newProductResponse(p))
		}
		render.JSON(w, res)
	})
}

func handleGetProduct(productService productService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			render.ServiceError(w, "Invalid product id", http.StatusBadRequest)
			return
		}

		p, err := productService.Get(r.Context(), id)
		if err != nil {
			renderProductError(w, err, logger)
			return
		}

		render.JSON(w, newProductResponse(p))
	})
}

func handleCreateProduct(productService productService, recorder auditRecorder, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[productRequest](w, r)
		if err != nil {
			return
		}

		p, err := productService.Create(r.Context(), data.params())
		if err != nil {
			renderProductError(w, err, logger)
			return
		}

		recordWrite(r, recorder, audit.ActionCreate, "product", p.ID)
		render.JSONWithStatus(w, newProductResponse(p), http.StatusCreated)
	})
}

func handleUpdateProduct(productService productService, recorder auditRecorder, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			render.ServiceError(w, "Invalid product id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[productRequest](w, r)
		if err != nil {
			return
		}

		p, err := productService.Update(r.Context(), id, data.params())
		if err != nil {
			renderProductError(w, err, logger)
			return
		}

		recordWrite(r, recorder, audit.ActionUpdate, "product", id)
		render.JSON(w, newProductResponse(p))
	})
}

func handleDeleteProduct(productService productService, recorder auditRecorder, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			render.ServiceError(w, "Invalid product id", http.StatusBadRequest)
			return
		}

		if err := productService.Delete(r.Context(), id); err != nil {
			renderProductError(w, err, logger)
			return
		}

		recordWrite(r, recorder, audit.ActionDelete, "product", id)
		w.WriteHeader(http.StatusNoContent)
	})
}

func renderProductError(w http.ResponseWriter, err error, logger logger.Logger) {
	var validationErr *apperrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		render.ServiceError(w, validationErr.Error(), http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrProductNotFound):
		render.ServiceError(w, "Product not found", http.StatusNotFound)
	default:
		logger.Error("Product operation failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
