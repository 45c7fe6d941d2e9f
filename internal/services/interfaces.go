package services

import (
	"context"
	"time"

	"github.com/msshahs/prepseed-backend-sub001/internal/models"
)

// FlowService reconciles client flow batches into the live attempt.
type FlowService interface {
	Reconcile(ctx context.Context, userID, examInstanceID string, events []models.FlowEvent, deviceID string) (*FlowSyncResponse, error)
}

// SubmissionService grades live attempts and feeds the analytics schedulers.
type SubmissionService interface {
	Submit(ctx context.Context, req *SubmitRequest) (*models.Submission, error)
	GetWithRank(ctx context.Context, submissionID string) (*models.Submission, error)
	RankScore(ctx context.Context, examInstanceID string, score float64) (*RankResult, error)
	EnqueueForAnalytics(submission *models.Submission) error
}

// AnalyticsEnqueuer accepts graded submissions for aggregation.
type AnalyticsEnqueuer interface {
	Enqueue(item QueueItem) error
}

// ===== REQUEST/RESPONSE TYPES =====

type FlowSyncResponse struct {
	Events    []models.FlowEvent `json:"events"`
	Merged    bool               `json:"merged"`
	ServerNow time.Time          `json:"server_now"`
	Unspent   float64            `json:"unspent"`
}

type SubmitRequest struct {
	UserID         string `json:"-"`
	ExamInstanceID string `json:"-"`
	PhaseID        string `json:"phase_id,omitempty"`
}
