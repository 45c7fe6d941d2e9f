package postgres

import (
	"context"
	"errors"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/msshahs/prepseed-backend-sub001/internal/repositories"
	"gorm.io/gorm"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) *SubmissionPostgreSQL {
	return &SubmissionPostgreSQL{db: db}
}

func (s *SubmissionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	db := getDB(s.db, tx)
	return db.WithContext(ctx).Create(submission).Error
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Submission, error) {
	db := getDB(s.db, tx)
	var submission models.Submission
	if err := db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) ExistsForUser(ctx context.Context, tx *gorm.DB, userID, examInstanceID string) (bool, error) {
	db := getDB(s.db, tx)
	var count int64
	err := db.WithContext(ctx).Model(&models.Submission{}).
		Where("user_id = ? AND exam_instance_id = ?", userID, examInstanceID).
		Count(&count).Error
	return count > 0, err
}
