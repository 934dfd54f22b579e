package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/logger"
)

// respondList is the read envelope: {success, data, count}.
func respondList(c *gin.Context, data interface{}, count int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"count":   count,
	})
}

// respondData is the single-read envelope: {success, data}.
func respondData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondMutation is the write envelope: {success, data, message}.
func respondMutation(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
		"message": message,
	})
}

// respondError collapses any error into {success: false, error} using the
// taxonomy mapping; internal details are logged, never leaked.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	apiError := apierr.From(err)
	if apiError.Status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(apiError.Status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    apiError.Code,
			"message": apiError.Message(),
		},
	})
}

func respondBadRequest(c *gin.Context, log *logger.Logger) {
	respondError(c, log, apierr.InvalidData("invalid request body"))
}

// pathUUID parses a :param path segment, responding invalid_data on junk.
func pathUUID(c *gin.Context, log *logger.Logger, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, log, apierr.InvalidData("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}
