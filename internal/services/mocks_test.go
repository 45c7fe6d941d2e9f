package services

import (
	"context"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/msshahs/prepseed-backend-sub001/internal/repositories"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockAggregateRepository is a mock implementation of AggregateRepository
type MockAggregateRepository struct {
	mock.Mock
}

func (m *MockAggregateRepository) Get(ctx context.Context, key models.AggregateKey) (*models.Aggregate, error) {
	args := m.Called(ctx, key)
	agg, _ := args.Get(0).(*models.Aggregate)
	return agg, args.Error(1)
}

func (m *MockAggregateRepository) Put(ctx context.Context, aggregate *models.Aggregate) error {
	args := m.Called(ctx, aggregate)
	return args.Error(0)
}

func (m *MockAggregateRepository) Snapshot(ctx context.Context, key models.AggregateKey) (*models.Aggregate, error) {
	args := m.Called(ctx, key)
	agg, _ := args.Get(0).(*models.Aggregate)
	return agg, args.Error(1)
}

// MockSubmissionRepository is a mock implementation of SubmissionRepository
type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	args := m.Called(ctx, tx, submission)
	return args.Error(0)
}

func (m *MockSubmissionRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Submission, error) {
	args := m.Called(ctx, tx, id)
	sub, _ := args.Get(0).(*models.Submission)
	return sub, args.Error(1)
}

func (m *MockSubmissionRepository) ExistsForUser(ctx context.Context, tx *gorm.DB, userID, examInstanceID string) (bool, error) {
	args := m.Called(ctx, tx, userID, examInstanceID)
	return args.Bool(0), args.Error(1)
}

// MockLiveAttemptRepository is a mock implementation of LiveAttemptRepository
type MockLiveAttemptRepository struct {
	mock.Mock
}

func (m *MockLiveAttemptRepository) GetByUser(ctx context.Context, tx *gorm.DB, userID string) (*models.LiveAttempt, error) {
	args := m.Called(ctx, tx, userID)
	attempt, _ := args.Get(0).(*models.LiveAttempt)
	return attempt, args.Error(1)
}

func (m *MockLiveAttemptRepository) GetByUserForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*models.LiveAttempt, error) {
	args := m.Called(ctx, tx, userID)
	attempt, _ := args.Get(0).(*models.LiveAttempt)
	return attempt, args.Error(1)
}

func (m *MockLiveAttemptRepository) Save(ctx context.Context, tx *gorm.DB, attempt *models.LiveAttempt) error {
	args := m.Called(ctx, tx, attempt)
	return args.Error(0)
}

// MockContentRepository is a mock implementation of ContentRepository
type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) GetSectionDefinitions(ctx context.Context, examTemplateID string) ([]models.SectionDefinition, error) {
	args := m.Called(ctx, examTemplateID)
	sections, _ := args.Get(0).([]models.SectionDefinition)
	return sections, args.Error(1)
}

func (m *MockContentRepository) GetExamInstance(ctx context.Context, examInstanceID string) (*models.ExamInstance, error) {
	args := m.Called(ctx, examInstanceID)
	instance, _ := args.Get(0).(*models.ExamInstance)
	return instance, args.Error(1)
}

// MockRepository is a mock implementation of the main Repository interface
type MockRepository struct {
	aggregates  *MockAggregateRepository
	submissions *MockSubmissionRepository
	attempts    *MockLiveAttemptRepository
	content     *MockContentRepository
	tx          *gorm.DB
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		aggregates:  &MockAggregateRepository{},
		submissions: &MockSubmissionRepository{},
		attempts:    &MockLiveAttemptRepository{},
		content:     &MockContentRepository{},
		tx:          &gorm.DB{},
	}
}

func (m *MockRepository) Aggregate() repositories.AggregateRepository     { return m.aggregates }
func (m *MockRepository) Submission() repositories.SubmissionRepository   { return m.submissions }
func (m *MockRepository) LiveAttempt() repositories.LiveAttemptRepository { return m.attempts }
func (m *MockRepository) Content() repositories.ContentRepository         { return m.content }

// WithTransaction runs fn with a placeholder handle so tests can check which
// calls ran inside the transaction.
func (m *MockRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(m.tx)
}

func (m *MockRepository) AssertExpectations(t mock.TestingT) {
	m.aggregates.AssertExpectations(t)
	m.submissions.AssertExpectations(t)
	m.attempts.AssertExpectations(t)
	m.content.AssertExpectations(t)
}

// MockEnqueuer is a mock implementation of AnalyticsEnqueuer
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(item QueueItem) error {
	args := m.Called(item)
	return args.Error(0)
}
