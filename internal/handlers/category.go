package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/handlers/middleware"
	"storefront/internal/handlers/render"
	"storefront/internal/handlers/userctx"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/service/audit"
)

type categoryResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newCategoryResponse(c models.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func handleListCategories(categoryService categoryService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		categories, err := categoryService.List(r.Context())
		if err != nil {
			logger.Error("Failed to list categories", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		res := make([]categoryResponse, 0, len(categories))
		for _, c := range categories {
			res = append(res, newCategoryResponse(c))
		}
		render.JSON(w, res)
	})
}

func handleGetCategory(categoryService categoryService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			render.ServiceError(w, "Invalid category id", http.StatusBadRequest)
			return
		}

		category, err := categoryService.Get(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrCategoryNotFound):
				render.ServiceError(w, "Category not found", http.StatusNotFound)
			default:
				logger.Error("Failed to get category", "error", err, "category_id", id)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newCategoryResponse(category))
	})
}

func handleCreateCategory(categoryService categoryService, recorder auditRecorder, logger logger.Logger) http.Handler {
	type request struct {
		Name        string  `json:"name" validate:"required,min=2,max=100"`
		Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		category, err := categoryService.Create(r.Context(), data.Name, data.Description)
		if err != nil {
			renderCategoryError(w, err, logger)
			return
		}

		recordWrite(r, recorder, audit.ActionCreate, "category", category.ID)
		render.JSONWithStatus(w, newCategoryResponse(category), http.StatusCreated)
	})
}

func handleUpdateCategory(categoryService categoryService, recorder auditRecorder, logger logger.Logger) http.Handler {
	type request struct {
		Name        string  `json:"name" validate:"required,min=2,max=100"`
		Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			render.ServiceError(w, "Invalid category id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		category, err := categoryService.Update(r.Context(), id, data.Name, data.Description)
		if err != nil {
			renderCategoryError(w, err, logger)
			return
		}

		recordWrite(r, recorder, audit.ActionUpdate, "category", id)
		render.JSON(w, newCategoryResponse(category))
	})
}

func handleUpdateCategoryDescription(categoryService categoryService, recorder auditRecorder, logger logger.Logger) http.Handler {
	type request struct {
		Description string `json:"description" validate:"required,max=500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			render.ServiceError(w, "Invalid category id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		category, err := categoryService.UpdateDescription(r.Context(), id, data.Description)
		if err != nil {
			renderCategoryError(w, err, logger)
			return
		}

		recordWrite(r, recorder, audit.ActionUpdate, "category", id)
		render.JSON(w, newCategoryResponse(category))
	})
}

func handleDeleteCategory(categoryService categoryService, recorder auditRecorder, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			render.ServiceError(w, "Invalid category id", http.StatusBadRequest)
			return
		}

		if err := categoryService.Delete(r.Context(), id); err != nil {
			renderCategoryError(w, err, logger)
			return
		}

		recordWrite(r, recorder, audit.ActionDelete, "category", id)
		w.WriteHeader(http.StatusNoContent)
	})
}

func renderCategoryError(w http.ResponseWriter, err error, logger logger.Logger) {
	var validationErr *apperrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		render.ServiceError(w, validationErr.Error(), http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrCategoryNotFound):
		render.ServiceError(w, "Category not found", http.StatusNotFound)
	default:
		logger.Error("Category operation failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// pathID parses the {id} path segment
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// recordWrite puts a catalog write into the audit trail with the acting
// user from the request context
func recordWrite(r *http.Request, recorder auditRecorder, action string, entity string, entityID int64) {
	if recorder == nil {
		return
	}

	entry := audit.Entry{
		Action:    action,
		Entity:    entity,
		EntityID:  strconv.FormatInt(entityID, 10),
		IPAddress: middleware.ClientIP(r),
	}
	if user, ok := userctx.FromContext(r.Context()); ok {
		entry.UserID = &user.ID
	}

	recorder.Record(entry)
}
