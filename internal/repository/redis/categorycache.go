package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/models"
)

const (
	categoryListKey   = "cache:categories"
	categoryKeyPrefix = "cache:category:"

	defaultCategoryTTL = 5 * time.Minute
)

// CategoryCache keeps category reads in redis. Entries live until the TTL
// passes or a write invalidates them.
type CategoryCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewCategoryCache(client *goredis.Client, ttl time.Duration) *CategoryCache {
	if ttl <= 0 {
		ttl = defaultCategoryTTL
	}

	return &CategoryCache{client: client, ttl: ttl}
}

func categoryKey(id int64) string {
	return categoryKeyPrefix + strconv.FormatInt(id, 10)
}

// GetByID returns the cached category and whether it was found
func (c *CategoryCache) GetByID(ctx context.Context, id int64) (models.Category, bool, error) {
	var category models.Category

	data, err := c.client.Get(ctx, categoryKey(id)).Bytes()
	if err == goredis.Nil {
		return category, false, nil
	}
	if err != nil {
		return category, false, fmt.Errorf("get cached category: %w", err)
	}

	if err := json.Unmarshal(data, &category); err != nil {
		return category, false, fmt.Errorf("decode cached category: %w", err)
	}

	return category, true, nil
}

func (c *CategoryCache) SetByID(ctx context.Context, category models.Category) error {
	data, err := json.Marshal(category)
	if err != nil {
		return fmt.Errorf("encode category: %w", err)
	}

	if err := c.client.Set(ctx, categoryKey(category.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached category: %w", err)
	}
	return nil
}

func (c *CategoryCache) GetList(ctx context.Context) ([]models.Category, bool, error) {
	data, err := c.client.Get(ctx, categoryListKey).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached category list: %w", err)
	}

	var categories []models.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, false, fmt.Errorf("decode cached category list: %w", err)
	}

	return categories, true, nil
}

func (c *CategoryCache) SetList(ctx context.Context, categories []models.Category) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("encode category list: %w", err)
	}

	if err := c.client.Set(ctx, categoryListKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached category list: %w", err)
	}
	return nil
}

// Invalidate drops the category and the list. Called after every write.
func (c *CategoryCache) Invalidate(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, categoryKey(id), categoryListKey).Err(); err != nil {
		return fmt.Errorf("invalidate category cache: %w", err)
	}
	return nil
}
