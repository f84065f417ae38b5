// Package api предоставляет HTTP интерфейс банковского сервиса.
package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig конфигурация выдачи JWT токенов
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// Validate проверяет конфигурацию
func (c AuthConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	return nil
}

// DefaultAuthConfig возвращает конфигурацию auth по умолчанию
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Issuer:   "bankcore",
		TokenTTL: 15 * time.Minute,
	}
}

// TokenIssuer выдает и проверяет JWT access токены.
// Subject токена равен id счета.
type TokenIssuer struct {
	config AuthConfig
	secret []byte
}

// NewTokenIssuer создает TokenIssuer
func NewTokenIssuer(config AuthConfig) (*TokenIssuer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TokenIssuer{
		config: config,
		secret: []byte(config.Secret),
	}, nil
}

// Issue выдает access токен для счета
func (t *TokenIssuer) Issue(accountID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		Issuer:    t.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.config.TokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify проверяет токен и возвращает id счета из subject
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("invalid token claims")
	}
	return claims.Subject, nil
}

const accountIDContextKey = "account_id"

// AuthMiddleware Gin middleware проверки Bearer токена.
// Кладет id счета из subject токена в контекст запроса.
func AuthMiddleware(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header must be a bearer token"})
			return
		}

		accountID, err := issuer.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(accountIDContextKey, accountID)
		c.Next()
	}
}

// AccountIDFromContext возвращает id счета аутентифицированного запроса
func AccountIDFromContext(c *gin.Context) string {
	return c.GetString(accountIDContextKey)
}
