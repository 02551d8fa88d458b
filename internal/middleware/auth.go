// Package middleware provides authentication, logging, metrics, tracing and rate limiting for the HTTP layer.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"blogapi/internal/config"
	"blogapi/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenIssuer is the iss claim of every access token.
	TokenIssuer = "blogapi"
	// TokenAudience is the aud claim of every access token.
	TokenAudience = "blogapi-client"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// IssueToken signs an HS256 access token whose subject is userID.
func IssueToken(secret string, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseUserID validates tokenString and returns the user id in its subject.
func ParseUserID(secret, tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
	)
	if err != nil || !token.Valid {
		return 0, errors.New("invalid or expired token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errors.New("invalid token structure - missing subject")
	}

	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, errors.New("invalid user ID in token")
	}
	return uint(userID), nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return unauthorized(c, "Authorization header required")
	}

	tokenString, ok := BearerToken(authHeader)
	if !ok {
		return unauthorized(c, "Invalid authorization header format")
	}

	userID, err := ParseUserID(cfg.JWTSecret, tokenString)
	if err != nil {
		return unauthorized(c, "Invalid or expired token")
	}

	setUser(c, userID)
	return c.Next()
}

// WebSocketAuthRequired accepts the token from the query string, since browsers
// cannot set headers on a websocket upgrade, and falls back to the Authorization header.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	tokenString := c.Query("token")
	if tokenString == "" {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Token required")
		}
		var ok bool
		if tokenString, ok = BearerToken(authHeader); !ok {
			return unauthorized(c, "Invalid authorization header format")
		}
	}

	userID, err := ParseUserID(cfg.JWTSecret, tokenString)
	if err != nil {
		return unauthorized(c, "Invalid or expired token")
	}

	setUser(c, userID)
	return c.Next()
}

// OptionalAuth records the caller when a valid bearer token is present and never rejects.
func OptionalAuth(c *fiber.Ctx) error {
	if tokenString, ok := BearerToken(c.Get("Authorization")); ok {
		if userID, err := ParseUserID(cfg.JWTSecret, tokenString); err == nil {
			setUser(c, userID)
		}
	}
	return c.Next()
}
