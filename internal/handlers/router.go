package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/msshahs/prepseed-backend-sub001/internal/services"
	"github.com/msshahs/prepseed-backend-sub001/internal/utils"
	"github.com/msshahs/prepseed-backend-sub001/internal/validator"
)

type HandlerManager struct {
	flowHandler       *FlowHandler
	submissionHandler *SubmissionHandler
}

func NewHandlerManager(
	flowService services.FlowService,
	submissionService services.SubmissionService,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		flowHandler:       NewFlowHandler(flowService, logger),
		submissionHandler: NewSubmissionHandler(submissionService, validator, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(UserIDMiddleware())
	{
		v1.POST("/flow/:exam_instance_id", hm.flowHandler.SyncFlow)

		submissions := v1.Group("/submissions")
		{
			submissions.POST("/:exam_instance_id", hm.submissionHandler.Submit)
			submissions.GET("/:submission_id", hm.submissionHandler.GetSubmission)
		}

		v1.POST("/rank", hm.submissionHandler.Rank)
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "assessment-core",
	})
}
