package category

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/service/mailer"
)

const notifyTimeout = 10 * time.Second

// Cache for category reads. Failures degrade to the database, they are
// logged and never surface to the caller.
type Cache interface {
	GetByID(ctx context.Context, id int64) (models.Category, bool, error)
	SetByID(ctx context.Context, category models.Category) error
	GetList(ctx context.Context) ([]models.Category, bool, error)
	SetList(ctx context.Context, categories []models.Category) error
	Invalidate(ctx context.Context, id int64) error
}

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type Config struct {
	// Cache is optional, without it every read goes to the database
	Cache Cache

	// Mail gateway client and the address to notify about new categories
	// Both optional, notifications are skipped when either is missing
	Mail     mailSender
	NotifyTo string
}

type CategoryService struct {
	categoryRepo repository.CategoryRepo

	cache    Cache
	mail     mailSender
	notifyTo string

	logger logger.Logger
}

func NewService(cfg Config, categoryRepo repository.CategoryRepo, logger logger.Logger) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		cache:        cfg.Cache,
		mail:         cfg.Mail,
		notifyTo:     cfg.NotifyTo,
		logger:       logger,
	}
}

func (s *CategoryService) Create(ctx context.Context, name string, description *string) (models.Category, error) {
	category, err := s.categoryRepo.Create(ctx, repository.CreateCategoryParams{
		Name:        name,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryNameTaken) {
			return category, apperrors.NewValidationError("name", "category with this name already exists")
		}
		return category, fmt.Errorf("can't create category. Err: %w", err)
	}

	s.invalidate(ctx, category.ID)
	s.notifyCreated(category)

	return category, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (models.Category, error) {
	if s.cache != nil {
		category, ok, err := s.cache.GetByID(ctx, id)
		if err != nil {
			s.logger.Warn("Category cache read failed", "error", err, "category_id", id)
		}
		if ok {
			return category, nil
		}
	}

	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return category, fmt.Errorf("can't get category. Err: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetByID(ctx, category); err != nil {
			s.logger.Warn("Category cache write failed", "error", err, "category_id", id)
		}
	}

	return category, nil
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	if s.cache != nil {
		categories, ok, err := s.cache.GetList(ctx)
		if err != nil {
			s.logger.Warn("Category cache read failed", "error", err)
		}
		if ok {
			return categories, nil
		}
	}

	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't list categories. Err: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetList(ctx, categories); err != nil {
			s.logger.Warn("Category cache write failed", "error", err)
		}
	}

	return categories, nil
}

func (s *CategoryService) Update(ctx context.Context, id int64, name string, description *string) (models.Category, error) {
	category, err := s.categoryRepo.Update(ctx, id, repository.UpdateCategoryParams{
		Name:        name,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryNameTaken) {
			return category, apperrors.NewValidationError("name", "category with this name already exists")
		}
		return category, fmt.Errorf("can't update category. Err: %w", err)
	}

	s.invalidate(ctx, id)
	return category, nil
}

func (s *CategoryService) UpdateDescription(ctx context.Context, id int64, description string) (models.Category, error) {
	category, err := s.categoryRepo.UpdateDescription(ctx, id, description)
	if err != nil {
		return category, fmt.Errorf("can't update category description. Err: %w", err)
	}

	s.invalidate(ctx, id)
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("can't delete category. Err: %w", err)
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Category cache invalidation failed", "error", err, "category_id", id)
	}
}

// notifyCreated mails the catalog owner in the background. Best effort,
// runs detached from the request context so a finished request does not
// cancel the send.
func (s *CategoryService) notifyCreated(category models.Category) {
	if s.mail == nil || s.notifyTo == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		err := s.mail.Send(ctx, mailer.Message{
			To:      s.notifyTo,
			Subject: "New category created",
			Body:    fmt.Sprintf("Category %q (id %d) was added to the catalog", category.Name, category.ID),
		})
		if err != nil {
			s.logger.Warn("Category notification failed", "error", err, "category_id", category.ID)
		}
	}()
}
