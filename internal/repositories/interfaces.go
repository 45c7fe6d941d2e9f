package repositories

import (
	"context"
	"errors"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err means the record does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// Repository groups the stores used by the core and runs transactions.
type Repository interface {
	Aggregate() AggregateRepository
	Submission() SubmissionRepository
	LiveAttempt() LiveAttemptRepository
	Content() ContentRepository

	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AggregateRepository stores analytics aggregates. Every Put writes the whole
// aggregate in a single statement.
type AggregateRepository interface {
	Get(ctx context.Context, key models.AggregateKey) (*models.Aggregate, error)
	Put(ctx context.Context, aggregate *models.Aggregate) error
	// Snapshot may serve a cached copy; use it for read paths only.
	Snapshot(ctx context.Context, key models.AggregateKey) (*models.Aggregate, error)
}

// SubmissionRepository interface for graded submissions
type SubmissionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Submission, error)
	ExistsForUser(ctx context.Context, tx *gorm.DB, userID, examInstanceID string) (bool, error)
}

// LiveAttemptRepository interface for in-progress exam attempts
type LiveAttemptRepository interface {
	GetByUser(ctx context.Context, tx *gorm.DB, userID string) (*models.LiveAttempt, error)
	// GetByUserForUpdate reads the attempt and locks its row until tx ends.
	GetByUserForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*models.LiveAttempt, error)
	Save(ctx context.Context, tx *gorm.DB, attempt *models.LiveAttempt) error
}

// ContentRepository is the read-only view of the exam content catalog.
type ContentRepository interface {
	GetSectionDefinitions(ctx context.Context, examTemplateID string) ([]models.SectionDefinition, error)
	GetExamInstance(ctx context.Context, examInstanceID string) (*models.ExamInstance, error)
}
