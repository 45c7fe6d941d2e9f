package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/msshahs/prepseed-backend-sub001/internal/events"
	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/msshahs/prepseed-backend-sub001/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type submissionService struct {
	repo      repositories.Repository
	grader    *GradingEngine
	ranking   *RankingCalculator
	templates AnalyticsEnqueuer
	instances AnalyticsEnqueuer
	publisher events.EventPublisher
	logger    *ServiceLogger
	now       func() time.Time
}

// NewSubmissionService wires grading to the two analytics schedulers:
// templates receives core-keyed items, instances wrapper-keyed ones.
func NewSubmissionService(repo repositories.Repository, grader *GradingEngine, ranking *RankingCalculator, templates, instances AnalyticsEnqueuer, publisher events.EventPublisher, logger *slog.Logger) SubmissionService {
	return &submissionService{
		repo:      repo,
		grader:    grader,
		ranking:   ranking,
		templates: templates,
		instances: instances,
		publisher: publisher,
		logger:    NewServiceLogger(logger, LogConfig{Service: "assessment-core", Component: "submission"}),
		now:       time.Now,
	}
}

// Submit grades the user's live attempt, stores the submission and clears
// the attempt in one transaction, then hands the result to analytics.
func (s *submissionService) Submit(ctx context.Context, req *SubmitRequest) (submission *models.Submission, err error) {
	op := s.logger.WithOperation(ctx, "submit", req.UserID)
	defer func() { op.LogResult(req.ExamInstanceID, "exam_instance", err) }()

	exists, err := s.repo.Submission().ExistsForUser(ctx, nil, req.UserID, req.ExamInstanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}
	if exists {
		return nil, ErrAttemptAlreadySubmitted
	}

	attempt, err := s.repo.LiveAttempt().GetByUser(ctx, nil, req.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get live attempt: %w", err)
	}
	if !attempt.IsActiveFor(req.ExamInstanceID) {
		return nil, ErrAttemptNotActive
	}

	instance, err := s.repo.Content().GetExamInstance(ctx, req.ExamInstanceID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamInstanceNotFound
		}
		return nil, fmt.Errorf("failed to get exam instance: %w", err)
	}

	sections, err := s.repo.Content().GetSectionDefinitions(ctx, instance.ExamTemplateID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get section definitions: %w", err)
	}

	response := BuildResponse(attempt.Flow, sections)
	meta, err := s.grader.Grade(response, sections, instance.MarkingScheme.Data(), models.GradeContext{PhaseID: req.PhaseID})
	if err != nil {
		return nil, fmt.Errorf("failed to grade submission: %w", err)
	}

	autoGraded := instance.GradingMode != models.GradingManual
	if autoGraded {
		result := s.ranking.RankWith(meta.Marks, s.snapshot(ctx, wrapperKey(instance.ID)))
		meta.Rank = result.Rank
		meta.Percentile = result.Percentile
	}

	submission = &models.Submission{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		ExamInstanceID: instance.ID,
		ExamTemplateID: instance.ExamTemplateID,
		Response:       datatypes.NewJSONType(response),
		Meta:           datatypes.NewJSONType(*meta),
		Flow:           attempt.Flow,
		AutoGraded:     autoGraded,
		Live:           instance.Live,
		SubmittedAt:    s.now(),
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		// Lock the attempt so a flow sync still in flight cannot write the
		// cleared attempt back.
		locked, err := s.repo.LiveAttempt().GetByUserForUpdate(ctx, tx, req.UserID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock live attempt: %w", err)
		}
		if !locked.IsActiveFor(req.ExamInstanceID) {
			return ErrAttemptNotActive
		}

		if err := s.repo.Submission().Create(ctx, tx, submission); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAttemptAlreadySubmitted
			}
			return fmt.Errorf("failed to create submission: %w", err)
		}

		locked.Clear()
		locked.UpdatedAt = submission.SubmittedAt
		if err := s.repo.LiveAttempt().Save(ctx, tx, locked); err != nil {
			return fmt.Errorf("failed to clear live attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The submission is stored; analytics failures are logged, not returned.
	if enqueueErr := s.EnqueueForAnalytics(submission); enqueueErr != nil {
		s.logger.Logger().Error("Failed to enqueue submission for analytics", "submission_id", submission.ID, "error", enqueueErr)
	}

	if pubErr := s.publisher.PublishEvent(ctx, events.NewSubmissionGradedEvent(events.SubmissionGradedEvent{
		SubmissionID:   submission.ID,
		UserID:         submission.UserID,
		ExamInstanceID: submission.ExamInstanceID,
		ExamTemplateID: submission.ExamTemplateID,
		Marks:          meta.Marks,
		MaxMarks:       meta.MaxMarks,
		Rank:           meta.Rank,
		Percentile:     meta.Percentile,
	})); pubErr != nil {
		s.logger.Logger().Warn("Failed to publish submission graded event", "submission_id", submission.ID, "error", pubErr)
	}

	return submission, nil
}

// GetWithRank returns a submission whose rank reflects the current instance
// aggregate. Only auto-graded live submissions are re-ranked.
func (s *submissionService) GetWithRank(ctx context.Context, submissionID string) (*models.Submission, error) {
	submission, err := s.repo.Submission().GetByID(ctx, nil, submissionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if !submission.AutoGraded || !submission.Live {
		return submission, nil
	}

	meta := submission.Meta.Data()
	if s.ranking.Refresh(&meta, s.snapshot(ctx, wrapperKey(submission.ExamInstanceID)), submission) {
		submission.Meta = datatypes.NewJSONType(meta)
	}
	return submission, nil
}

func (s *submissionService) RankScore(ctx context.Context, examInstanceID string, score float64) (*RankResult, error) {
	if examInstanceID == "" {
		return nil, NewClientDataError("rank", ValidationErrors{*NewValidationError("exam_instance_id", "is required", examInstanceID)})
	}
	result := s.ranking.RankAgainst(score, s.snapshot(ctx, wrapperKey(examInstanceID)))
	return &result, nil
}

// EnqueueForAnalytics queues the submission on the template and the instance
// scheduler. It never blocks on a drain.
func (s *submissionService) EnqueueForAnalytics(submission *models.Submission) error {
	meta := submission.Meta.Data()
	item := QueueItem{
		Meta:         &meta,
		SubmissionID: submission.ID,
		UserID:       submission.UserID,
	}

	coreItem := item
	coreItem.Key = coreKey(submission.ExamTemplateID)
	wrapperItem := item
	wrapperItem.Key = wrapperKey(submission.ExamInstanceID)

	return errors.Join(
		s.templates.Enqueue(coreItem),
		s.instances.Enqueue(wrapperItem),
	)
}

// snapshot reads the aggregate for ranking. A missing or unreadable
// aggregate ranks against an empty list.
func (s *submissionService) snapshot(ctx context.Context, key models.AggregateKey) *models.Aggregate {
	aggregate, err := s.repo.Aggregate().Snapshot(ctx, key)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			s.logger.Logger().Warn("Failed to read aggregate snapshot", "key", key.String(), "error", err)
		}
		return nil
	}
	return aggregate
}

func coreKey(examTemplateID string) models.AggregateKey {
	return models.AggregateKey{Kind: models.AggregateCore, ID: examTemplateID}
}

func wrapperKey(examInstanceID string) models.AggregateKey {
	return models.AggregateKey{Kind: models.AggregateWrapper, ID: examInstanceID}
}
