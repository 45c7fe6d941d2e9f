package services

import (
	"errors"
	"fmt"

	apperrors "github.com/msshahs/prepseed-backend-sub001/internal/errors"
	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/msshahs/prepseed-backend-sub001/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Exam errors
	ErrExamInstanceNotFound   = errors.New("exam instance not found")
	ErrExamTemplateNotFound   = errors.New("exam template not found")
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrAssessmentTimeExceeded = errors.New("assessment time exceeded")

	// Attempt errors
	ErrAttemptNotFound         = errors.New("live attempt not found")
	ErrAttemptNotActive        = errors.New("attempt is not active for this exam instance")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")

	// Scheduler errors
	ErrSchedulerClosed = errors.New("analytics scheduler closed")
)

// ===== CUSTOM ERROR TYPES =====

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// ClientDataError wraps malformed client input. Such input is rejected before
// reconciliation or grading and never reaches the analytics queues.
type ClientDataError struct {
	Operation string
	Err       error
}

func (e *ClientDataError) Error() string {
	return fmt.Sprintf("invalid client data for %s: %v", e.Operation, e.Err)
}

func (e *ClientDataError) Unwrap() error {
	return e.Err
}

// AggregateApplyError reports a failed drain. Items taken from the queue are
// restored, so the drain can be retried from the same queue state.
type AggregateApplyError struct {
	Key models.AggregateKey
	Op  string
	Err error
}

func (e *AggregateApplyError) Error() string {
	return fmt.Sprintf("aggregate %s: %s failed: %v", e.Key, e.Op, e.Err)
}

func (e *AggregateApplyError) Unwrap() error {
	return e.Err
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewClientDataError(operation string, err error) *ClientDataError {
	return &ClientDataError{Operation: operation, Err: err}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExamInstanceNotFound) ||
		errors.Is(err, ErrExamTemplateNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		repositories.IsNotFoundError(err)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsClientData checks if error was caused by malformed client input
func IsClientData(err error) bool {
	var cde *ClientDataError
	return errors.As(err, &cde)
}

// IsTimeExceeded checks if the exam window has closed
func IsTimeExceeded(err error) bool {
	return errors.Is(err, ErrAssessmentTimeExceeded)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAttemptAlreadySubmitted) ||
		errors.Is(err, ErrAttemptNotActive)
}

// IsAggregateApply checks if error came from a failed analytics drain
func IsAggregateApply(err error) bool {
	var aae *AggregateApplyError
	return errors.As(err, &aae)
}
