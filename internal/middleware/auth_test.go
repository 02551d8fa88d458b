package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"blogapi/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signClaims(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestParseUserID(t *testing.T) {
	valid, err := IssueToken(testSecret, 42, time.Hour)
	require.NoError(t, err)

	userID, err := ParseUserID(testSecret, valid)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", func() string {
			s, _ := IssueToken("another-secret-another-secret-another", 42, time.Hour)
			return s
		}()},
		{"expired", func() string {
			s, _ := IssueToken(testSecret, 42, -time.Hour)
			return s
		}()},
		{"wrong issuer", signClaims(t, jwt.MapClaims{
			"sub": "42", "iss": "someone-else", "aud": TokenAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"missing audience", signClaims(t, jwt.MapClaims{
			"sub": "42", "iss": TokenIssuer,
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"non numeric subject", signClaims(t, jwt.MapClaims{
			"sub": "abc", "iss": TokenIssuer, "aud": TokenAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"garbage", "malformed.token.here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserID(testSecret, tt.token)
			assert.Error(t, err)
		})
	}
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"userID": c.Locals("userID")})
	})

	generateToken := func(userID uint, exp time.Duration) string {
		s, err := IssueToken(testSecret, userID, exp)
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID uint
	}{
		{
			name:           "Happy Path",
			authHeader:     "Bearer " + generateToken(123, time.Hour),
			expectedStatus: http.StatusOK,
			expectedUserID: 123,
		},
		{
			name:           "Missing Header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Format",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed Token",
			authHeader:     "Bearer malformed.token.here",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + generateToken(123, -time.Hour),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, float64(tt.expectedUserID), body["userID"])
			} else {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, "UNAUTHORIZED", body["code"])
			}
		})
	}
}

func TestWebSocketAuthRequired(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	app.Get("/ws-test", WebSocketAuthRequired, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	token, err := IssueToken(testSecret, 1, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		tokenParam     string
		authHeader     string
		expectedStatus int
	}{
		{"Token via Query Param", token, "", http.StatusOK},
		{"Token via Header", "", "Bearer " + token, http.StatusOK},
		{"Missing Token", "", "", http.StatusUnauthorized},
		{"Invalid Token", "invalid-token", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/ws-test"
			if tt.tokenParam != "" {
				path += "?token=" + tt.tokenParam
			}
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	app.Get("/maybe", OptionalAuth, func(c *fiber.Ctx) error {
		uid, _ := c.Locals("userID").(uint)
		return c.SendString(strconv.FormatUint(uint64(uid), 10))
	})

	token, err := IssueToken(testSecret, 7, time.Hour)
	require.NoError(t, err)

	for header, want := range map[string]string{
		"":                      "0",
		"Bearer " + token:       "7",
		"Bearer not-a-jwt":      "0",
		"Token " + token + " x": "0",
	} {
		req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, want, string(body))
	}
}
