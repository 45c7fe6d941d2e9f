package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/msshahs/prepseed-backend-sub001/internal/services"
	"github.com/msshahs/prepseed-backend-sub001/internal/utils"
	"github.com/msshahs/prepseed-backend-sub001/internal/validator"
)

type SubmissionHandler struct {
	BaseHandler
	submissionService services.SubmissionService
	validator         *validator.Validator
}

type RankRequest struct {
	ExamInstanceID string   `json:"exam_instance_id" validate:"required"`
	Score          *float64 `json:"score" validate:"required"`
}

func NewSubmissionHandler(submissionService services.SubmissionService, validator *validator.Validator, logger utils.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler:       NewBaseHandler(logger),
		submissionService: submissionService,
		validator:         validator,
	}
}

// Submit grades the caller's live attempt
// @Summary Submit attempt
// @Tags submissions
// @Accept json
// @Produce json
// @Param exam_instance_id path string true "Exam instance ID"
// @Success 201 {object} SuccessResponse{data=models.Submission}
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /submissions/{exam_instance_id} [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	examInstanceID := ParseStringIDParam(c, "exam_instance_id")
	if examInstanceID == "" {
		return
	}

	// The body is optional and only carries the grading phase.
	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", nil, err.Error())
		return
	}
	req.UserID = getUserID(c)
	req.ExamInstanceID = examInstanceID

	h.LogRequest(c, "Submitting attempt", "exam_instance_id", examInstanceID)

	submission, err := h.submissionService.Submit(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Submission graded", submission, "submission_id", submission.ID)
}

// GetSubmission returns a submission with its current rank
// @Summary Get submission
// @Tags submissions
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Success 200 {object} SuccessResponse{data=models.Submission}
// @Failure 404 {object} ErrorResponse
// @Router /submissions/{submission_id} [get]
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	submissionID := ParseStringIDParam(c, "submission_id")
	if submissionID == "" {
		return
	}

	submission, err := h.submissionService.GetWithRank(c.Request.Context(), submissionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if submission.UserID != getUserID(c) {
		h.RespondWithError(c, http.StatusNotFound, "Submission not found", nil)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Submission retrieved", submission)
}

// Rank places a score within an exam instance's results
// @Summary Rank score
// @Tags submissions
// @Accept json
// @Produce json
// @Param rank body RankRequest true "Score to rank"
// @Success 200 {object} SuccessResponse{data=services.RankResult}
// @Failure 400 {object} ErrorResponse
// @Router /rank [post]
func (h *SubmissionHandler) Rank(c *gin.Context) {
	var req RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", nil, err.Error())
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	result, err := h.submissionService.RankScore(c.Request.Context(), req.ExamInstanceID, *req.Score)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Score ranked", result)
}
