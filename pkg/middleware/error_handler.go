package middleware

import (
	"net/http"

	"reservation-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error attached with c.Error, unless the
// handler already wrote a response.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		stdErr := errors.FromDomain(c.Errors.Last().Err)
		fields := []zap.Field{
			zap.String("error_code", stdErr.Code),
			zap.String("message", stdErr.Message),
			zap.String("details", stdErr.Details),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		}
		if stdErr.HTTPStatus() >= http.StatusInternalServerError {
			logger.Error("Request failed", fields...)
		} else {
			logger.Warn("Request error", fields...)
		}
		c.JSON(stdErr.HTTPStatus(), stdErr)
	}
}

// RecoveryHandler is a panic recovery middleware
func RecoveryHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errors.NewInternalError("internal server error", nil))
	})
}
