package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"promptmart/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testConfig() *config.Config {
	return &config.Config{JWTSecret: testSecret, JWTIssuer: "promptmart", JWTAudience: "promptmart-api"}
}

func signToken(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func validClaims(userID uint, exp time.Duration) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": "promptmart",
		"aud": "promptmart-api",
		"exp": time.Now().Add(exp).Unix(),
	}
}

func TestAuthRequired(t *testing.T) {
	InitMiddleware(testConfig())
	app := fiber.New()
	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})

	wrongIssuer := validClaims(5, time.Hour)
	wrongIssuer["iss"] = "someone-else"
	wrongAudience := validClaims(5, time.Hour)
	wrongAudience["aud"] = "other-api"
	badSubject := validClaims(5, time.Hour)
	badSubject["sub"] = "abc"

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID uint
	}{
		{"Happy Path", "Bearer " + signToken(t, validClaims(123, time.Hour), jwt.SigningMethodHS256), http.StatusOK, 123},
		{"Missing Header", "", http.StatusUnauthorized, 0},
		{"Invalid Format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, 0},
		{"Malformed Token", "Bearer malformed.token.here", http.StatusUnauthorized, 0},
		{"Expired Token", "Bearer " + signToken(t, validClaims(123, -time.Hour), jwt.SigningMethodHS256), http.StatusUnauthorized, 0},
		{"Wrong Issuer", "Bearer " + signToken(t, wrongIssuer, jwt.SigningMethodHS256), http.StatusUnauthorized, 0},
		{"Wrong Audience", "Bearer " + signToken(t, wrongAudience, jwt.SigningMethodHS256), http.StatusUnauthorized, 0},
		{"Non Numeric Subject", "Bearer " + signToken(t, badSubject, jwt.SigningMethodHS256), http.StatusUnauthorized, 0},
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

			var body map[string]interface{}
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

func TestOptionalAuth(t *testing.T) {
	InitMiddleware(testConfig())
	app := fiber.New()
	app.Get("/test", OptionalAuth, func(c *fiber.Ctx) error {
		uid, _ := c.Locals("userID").(uint)
		return c.JSON(fiber.Map{"userID": uid})
	})

	cases := map[string]struct {
		header string
		want   float64
	}{
		"anonymous":     {"", 0},
		"invalid token": {"Bearer nope", 0},
		"valid token":   {"Bearer " + signToken(t, validClaims(9, time.Hour), jwt.SigningMethodHS256), 9},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.want, body["userID"])
		})
	}
}
