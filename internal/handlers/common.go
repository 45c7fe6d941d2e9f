package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/msshahs/prepseed-backend-sub001/internal/services"
	"github.com/msshahs/prepseed-backend-sub001/internal/utils"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse wraps the payload of every 2xx response.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the request-scoped logging shared by the core handlers.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// requestFields returns the fields attached to every handler log line,
// followed by any caller supplied key/value pairs.
func (h *BaseHandler) requestFields(c *gin.Context, extra ...interface{}) []interface{} {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", getUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	return append(fields, extra...)
}

// LogRequest records an accepted request before it reaches the service layer.
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := h.requestFields(c, "remote_addr", c.ClientIP(), "device_id", c.GetHeader(deviceIDHeader))
	h.logger.Info(message, append(fields, additionalFields...)...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	h.logger.LogError(err, message, h.requestFields(c, additionalFields...)...)
}

// RespondWithError writes an ErrorResponse. Server side failures are logged
// as errors, client mistakes as warnings.
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	resp := ErrorResponse{Message: message, Code: http.StatusText(statusCode)}
	if len(details) > 0 {
		resp.Details = details[0]
	}

	if err != nil {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.logger.Warn(message, h.requestFields(c, "status_code", statusCode)...)
	}

	c.JSON(statusCode, resp)
}

func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}, additionalFields ...interface{}) {
	fields := h.requestFields(c, "status_code", statusCode)
	h.logger.Info(message, append(fields, additionalFields...)...)

	c.JSON(statusCode, SuccessResponse{Message: message, Data: data})
}

// handleServiceError maps the service error taxonomy onto status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", nil, validationErrors)
		return
	}

	switch {
	case services.IsClientData(err):
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", nil, err.Error())
	case services.IsTimeExceeded(err):
		h.RespondWithError(c, http.StatusGone, "Assessment time exceeded", nil)
	case errors.Is(err, services.ErrAttemptAlreadySubmitted):
		h.RespondWithError(c, http.StatusConflict, "Attempt already submitted", nil)
	case errors.Is(err, services.ErrAttemptNotActive):
		h.RespondWithError(c, http.StatusConflict, "Attempt is not active for this exam instance", nil)
	case errors.Is(err, services.ErrAttemptNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Live attempt not found", nil)
	case errors.Is(err, services.ErrExamInstanceNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Exam instance not found", nil)
	case errors.Is(err, services.ErrSubmissionNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Submission not found", nil)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Resource not found", nil)
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", nil, err.Error())
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
