package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/planrelay/internal/requestid"
	"github.com/navid-fn/planrelay/internal/service"
)

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Recovery turns a panic into a 500 with the usual error body.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"request_id": requestid.From(c.Request.Context()),
			"path":       c.Request.URL.Path,
			"panic":      recovered,
		}).Error("unhandled panic")

		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
			OK:    false,
			Error: fmt.Sprint(recovered),
			Code:  service.CodeUnhandled,
		})
	})
}
