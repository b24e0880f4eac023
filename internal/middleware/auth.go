// Package middleware provides authentication, logging, tracing and rate
// limiting middleware for the HTTP surface.
package middleware

import (
	"errors"
	"strconv"
	"strings"

	"promptmart/internal/config"
	"promptmart/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

var (
	errMissingToken  = errors.New("authorization header required")
	errInvalidFormat = errors.New("invalid authorization header format")
	errInvalidToken  = errors.New("invalid or expired token")
)

// ParseToken verifies an HMAC-signed bearer token and returns its subject as a user ID.
func ParseToken(tokenString string) (uint, error) {
	if cfg == nil {
		return 0, errors.New("auth middleware not initialized")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return 0, errInvalidToken
	}
	return uint(userID), nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errInvalidFormat
	}
	return parts[1], nil
}

// AuthRequired enforces a valid bearer token and stores the subject in c.Locals("userID").
func AuthRequired(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if err != nil {
		return models.RespondWithError(c, models.NewUnauthorizedError(err.Error()))
	}

	userID, err := ParseToken(tokenString)
	if err != nil {
		return models.RespondWithError(c, models.NewUnauthorizedError(err.Error()))
	}

	c.Locals("userID", userID)
	return c.Next()
}

// OptionalAuth sets c.Locals("userID") when a valid bearer token is present and
// otherwise lets the request through as anonymous.
func OptionalAuth(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if err != nil {
		return c.Next()
	}
	if userID, err := ParseToken(tokenString); err == nil {
		c.Locals("userID", userID)
	}
	return c.Next()
}
