package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/msshahs/prepseed-backend-sub001/internal/cache"
	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/msshahs/prepseed-backend-sub001/internal/repositories"
	"gorm.io/gorm"
)

// ContentPostgreSQL reads exam content. Content is immutable once published,
// so every read goes through the cache.
type ContentPostgreSQL struct {
	db     *gorm.DB
	cache  cache.CacheService
	ttl    time.Duration
	logger *slog.Logger
}

func NewContentPostgreSQL(db *gorm.DB, cacheService cache.CacheService, ttl time.Duration, logger *slog.Logger) *ContentPostgreSQL {
	return &ContentPostgreSQL{
		db:     db,
		cache:  cacheService,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *ContentPostgreSQL) GetSectionDefinitions(ctx context.Context, examTemplateID string) ([]models.SectionDefinition, error) {
	var sections []models.SectionDefinition
	cacheKey := fmt.Sprintf("template:%s:sections", examTemplateID)

	err := cache.CacheOrExecute(ctx, c.cache, c.logger, cacheKey, &sections, c.ttl, func() (interface{}, error) {
		var template models.ExamTemplate
		if err := c.db.WithContext(ctx).First(&template, "id = ?", examTemplateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, repositories.ErrNotFound
			}
			return nil, fmt.Errorf("failed to get exam template: %w", err)
		}
		return []models.SectionDefinition(template.Sections), nil
	})
	if err != nil {
		return nil, err
	}
	return sections, nil
}

func (c *ContentPostgreSQL) GetExamInstance(ctx context.Context, examInstanceID string) (*models.ExamInstance, error) {
	var instance models.ExamInstance
	cacheKey := fmt.Sprintf("instance:%s", examInstanceID)

	err := cache.CacheOrExecute(ctx, c.cache, c.logger, cacheKey, &instance, c.ttl, func() (interface{}, error) {
		var dbInstance models.ExamInstance
		if err := c.db.WithContext(ctx).First(&dbInstance, "id = ?", examInstanceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, repositories.ErrNotFound
			}
			return nil, fmt.Errorf("failed to get exam instance: %w", err)
		}
		return &dbInstance, nil
	})
	if err != nil {
		return nil, err
	}
	return &instance, nil
}
