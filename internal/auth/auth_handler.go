package auth

import (
	"crypto/subtle"
	"net/http"
	"time"

	"reservation-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler logs operators in.
type AuthHandler struct {
	jwtManager *JWTManager
	username   string
	password   string
	logger     *zap.Logger
}

// NewAuthHandler accepts exactly one operator account, taken from configuration.
func NewAuthHandler(jwtManager *JWTManager, username, password string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		jwtManager: jwtManager,
		username:   username,
		password:   password,
		logger:     logger,
	}
}

// LoginRequest represents the login request
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"operator"`
	Password string `json:"password" binding:"required" example:"operator123"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Type      string    `json:"type" example:"Bearer"`
	ExpiresIn int       `json:"expires_in" example:"600"`
	ExpiresAt time.Time `json:"expires_at" example:"2024-01-15T12:00:00Z"`
}

// Login handles POST /api/v1/auth/login
// @Summary      Operator login
// @Description  Returns a bearer token for the catalog routes.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest  true  "Operator credentials"
// @Success      200      {object}  LoginResponse
// @Failure      400      {object}  errors.StandardError
// @Failure      401      {object}  errors.StandardError
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid login request", zap.Error(err))
		c.Error(errors.NewValidationError("invalid request", "username or password"))
		return
	}

	if !h.validCredentials(req.Username, req.Password) {
		h.logger.Warn("Invalid credentials", zap.String("username", req.Username))
		c.Error(errors.NewUnauthorized("invalid credentials", "username or password incorrect"))
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(req.Username)
	if err != nil {
		c.Error(errors.NewInternalError("failed to generate token", err))
		return
	}

	h.logger.Info("Operator logged in", zap.String("username", req.Username))

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		Type:      "Bearer",
		ExpiresIn: int(h.jwtManager.TTL().Seconds()),
		ExpiresAt: expiresAt,
	})
}

func (h *AuthHandler) validCredentials(username, password string) bool {
	if h.username == "" || h.password == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(h.password)) == 1
	return userOK && passOK
}
