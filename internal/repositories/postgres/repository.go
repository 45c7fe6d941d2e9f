package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/msshahs/prepseed-backend-sub001/internal/cache"
	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/msshahs/prepseed-backend-sub001/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db          *gorm.DB
	aggregate   *AggregatePostgreSQL
	submission  *SubmissionPostgreSQL
	liveAttempt *LiveAttemptPostgreSQL
	content     *ContentPostgreSQL
}

// NewRepository wires the gorm stores. Content and aggregate snapshots are
// read through cacheService with the given TTL.
func NewRepository(db *gorm.DB, cacheService cache.CacheService, contentTTL time.Duration, logger *slog.Logger) repositories.Repository {
	return &repository{
		db:          db,
		aggregate:   NewAggregatePostgreSQL(db, cacheService, logger),
		submission:  NewSubmissionPostgreSQL(db),
		liveAttempt: NewLiveAttemptPostgreSQL(db),
		content:     NewContentPostgreSQL(db, cacheService, contentTTL, logger),
	}
}

func (r *repository) Aggregate() repositories.AggregateRepository     { return r.aggregate }
func (r *repository) Submission() repositories.SubmissionRepository   { return r.submission }
func (r *repository) LiveAttempt() repositories.LiveAttemptRepository { return r.liveAttempt }
func (r *repository) Content() repositories.ContentRepository         { return r.content }

func (r *repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// Migrate creates or updates the tables owned by this service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.AllModels()...)
}

func getDB(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
