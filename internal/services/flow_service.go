package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/msshahs/prepseed-backend-sub001/internal/events"
	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/msshahs/prepseed-backend-sub001/internal/repositories"
	"github.com/msshahs/prepseed-backend-sub001/internal/validator"
	"gorm.io/gorm"
)

type flowService struct {
	repo       repositories.Repository
	reconciler *FlowReconciler
	validator  *validator.Validator
	publisher  events.EventPublisher
	logger     *ServiceLogger
	now        func() time.Time
}

func NewFlowService(repo repositories.Repository, reconciler *FlowReconciler, validator *validator.Validator, publisher events.EventPublisher, logger *slog.Logger) FlowService {
	return &flowService{
		repo:       repo,
		reconciler: reconciler,
		validator:  validator,
		publisher:  publisher,
		logger:     NewServiceLogger(logger, LogConfig{Service: "assessment-core", Component: "flow"}),
		now:        time.Now,
	}
}

func (s *flowService) Reconcile(ctx context.Context, userID, examInstanceID string, batch []models.FlowEvent, deviceID string) (resp *FlowSyncResponse, err error) {
	op := s.logger.WithOperation(ctx, "reconcile_flow", userID)
	defer func() { op.LogResult(examInstanceID, "exam_instance", err) }()

	if err := s.validator.ValidateFlow(batch); err != nil {
		return nil, NewClientDataError("reconcile_flow", err)
	}

	// The attempt row stays locked from read to save so overlapping syncs of
	// one user reconcile one after the other.
	var (
		attempt *models.LiveAttempt
		result  *ReconcileResult
		now     time.Time
	)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		attempt, err = s.repo.LiveAttempt().GetByUserForUpdate(ctx, tx, userID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get live attempt: %w", err)
		}
		if !attempt.IsActiveFor(examInstanceID) {
			return ErrAttemptNotActive
		}

		now = s.now()
		result, err = s.reconciler.Reconcile(ReconcileInput{
			Incoming:        batch,
			Persisted:       attempt.Flow,
			LastKnownTime:   attempt.LastKnownTime(),
			StartTime:       attempt.StartTime,
			DurationSeconds: attempt.DurationSeconds,
			ServerNow:       float64(now.UnixMilli()),
		})
		if errors.Is(err, ErrAssessmentTimeExceeded) {
			return err
		}
		if err != nil {
			return fmt.Errorf("failed to reconcile flow: %w", err)
		}

		if len(result.Appended) == 0 {
			return nil
		}
		attempt.Flow = result.Flow
		if deviceID != "" {
			attempt.DeviceID = deviceID
		}
		attempt.UpdatedAt = now
		if err := s.repo.LiveAttempt().Save(ctx, tx, attempt); err != nil {
			return fmt.Errorf("failed to save flow: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrAssessmentTimeExceeded) {
		deadline := time.UnixMilli(int64(s.reconciler.Deadline(attempt.StartTime, attempt.DurationSeconds)))
		if pubErr := s.publisher.PublishEvent(ctx, events.NewTimeExceededEvent(userID, examInstanceID, now, deadline)); pubErr != nil {
			s.logger.Logger().Warn("Failed to publish time exceeded event", "user_id", userID, "error", pubErr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return &FlowSyncResponse{
		Events:    result.Appended,
		Merged:    result.Merged,
		ServerNow: time.UnixMilli(int64(result.ServerNow)),
		Unspent:   result.Unspent,
	}, nil
}
