package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// RoleOperator is the only role allowed to edit the catalog.
const RoleOperator = "operator"

// JWTClaims are the claims of an operator token.
type JWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager issues and checks operator tokens.
type JWTManager struct {
	secretKey []byte
	ttl       time.Duration
	logger    *zap.Logger
}

// NewJWTManager creates a manager whose tokens live for ttl.
func NewJWTManager(secretKey string, ttl time.Duration, logger *zap.Logger) *JWTManager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &JWTManager{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		logger:    logger,
	}
}

// TTL is how long issued tokens stay valid.
func (j *JWTManager) TTL() time.Duration {
	return j.ttl
}

// GenerateToken signs a token for username and returns it with its expiry.
func (j *JWTManager) GenerateToken(username string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.ttl)

	claims := JWTClaims{
		Username: username,
		Role:     RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "reservation-service",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		j.logger.Error("Failed to generate token", zap.Error(err))
		return "", time.Time{}, err
	}

	j.logger.Info("Token generated",
		zap.String("username", username),
		zap.Time("expires_at", expiresAt),
	)

	return tokenString, expiresAt, nil
}

// ValidateToken checks signature, expiry and role, and returns the claims.
func (j *JWTManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return j.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			j.logger.Warn("Token expired", zap.Error(err))
			return nil, ErrExpiredToken
		}
		j.logger.Warn("Invalid token", zap.Error(err))
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		j.logger.Warn("Invalid token claims")
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleOperator {
		j.logger.Warn("Token without operator role", zap.String("username", claims.Username))
		return nil, ErrInvalidToken
	}

	return claims, nil
}
