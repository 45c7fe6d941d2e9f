package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/msshahs/prepseed-backend-sub001/internal/models"
	"github.com/msshahs/prepseed-backend-sub001/internal/services"
	"github.com/msshahs/prepseed-backend-sub001/internal/utils"
)

type FlowHandler struct {
	BaseHandler
	flowService services.FlowService
}

type FlowSyncRequest struct {
	Events   []models.FlowEvent `json:"events"`
	DeviceID string             `json:"device_id"`
}

func NewFlowHandler(flowService services.FlowService, logger utils.Logger) *FlowHandler {
	return &FlowHandler{
		BaseHandler: NewBaseHandler(logger),
		flowService: flowService,
	}
}

// SyncFlow reconciles a batch of client flow events into the live attempt
// @Summary Sync flow
// @Tags flow
// @Accept json
// @Produce json
// @Param exam_instance_id path string true "Exam instance ID"
// @Param flow body FlowSyncRequest true "Flow events"
// @Success 200 {object} SuccessResponse{data=services.FlowSyncResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /flow/{exam_instance_id} [post]
func (h *FlowHandler) SyncFlow(c *gin.Context) {
	examInstanceID := ParseStringIDParam(c, "exam_instance_id")
	if examInstanceID == "" {
		return
	}

	var req FlowSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", nil, err.Error())
		return
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = c.GetHeader(deviceIDHeader)
	}

	h.LogRequest(c, "Syncing flow", "exam_instance_id", examInstanceID, "events", len(req.Events))

	result, err := h.flowService.Reconcile(c.Request.Context(), getUserID(c), examInstanceID, req.Events, deviceID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Flow synced", result, "appended", len(result.Events))
}
