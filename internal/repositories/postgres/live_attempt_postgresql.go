package postgres

import (
	"context"
	"errors"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/msshahs/prepseed-backend-sub001/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LiveAttemptPostgreSQL struct {
	db *gorm.DB
}

func NewLiveAttemptPostgreSQL(db *gorm.DB) *LiveAttemptPostgreSQL {
	return &LiveAttemptPostgreSQL{db: db}
}

func (l *LiveAttemptPostgreSQL) GetByUser(ctx context.Context, tx *gorm.DB, userID string) (*models.LiveAttempt, error) {
	return l.getByUser(getDB(l.db, tx).WithContext(ctx), userID)
}

// GetByUserForUpdate must run inside a transaction; overlapping flow syncs
// and submits of one user queue on the row lock.
func (l *LiveAttemptPostgreSQL) GetByUserForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*models.LiveAttempt, error) {
	if tx == nil {
		return nil, errors.New("GetByUserForUpdate requires a transaction")
	}
	return l.getByUser(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (l *LiveAttemptPostgreSQL) getByUser(db *gorm.DB, userID string) (*models.LiveAttempt, error) {
	var attempt models.LiveAttempt
	if err := db.First(&attempt, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (l *LiveAttemptPostgreSQL) Save(ctx context.Context, tx *gorm.DB, attempt *models.LiveAttempt) error {
	db := getDB(l.db, tx)
	return db.WithContext(ctx).Save(attempt).Error
}
