package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDHeader     = "X-User-ID"
	deviceIDHeader   = "X-Device-ID"
	userIDContextKey = "user_id"
)

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := c.Param(param)
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// UserIDMiddleware copies the caller id set by the upstream auth layer into
// the request context. Requests without it are rejected.
func UserIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(userIDHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
			})
			return
		}
		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

func getUserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}
