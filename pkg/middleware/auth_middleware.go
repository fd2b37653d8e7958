package middleware

import (
	"strings"

	"reservation-service/internal/auth"
	"reservation-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware guards operator routes with a bearer JWT.
func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reject := func(err *errors.StandardError) {
			logger.Warn("Rejected operator request",
				zap.String("reason", err.Message),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			c.AbortWithStatusJSON(err.HTTPStatus(), err)
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			reject(errors.NewUnauthorized("missing authorization header", "Header: Authorization"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			reject(errors.NewUnauthorized("invalid authorization header format", "Expected: Bearer <token>"))
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			if err == auth.ErrExpiredToken {
				reject(errors.NewUnauthorized("token expired", "Token has expired, please login again"))
				return
			}
			reject(errors.NewUnauthorized("invalid token", err.Error()))
			return
		}

		c.Set("username", claims.Username)
		c.Set("user_id", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}
