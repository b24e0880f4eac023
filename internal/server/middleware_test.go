package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"promptmart/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.call(t, http.MethodGet, "/health/live", 0, nil)
	assert.Equal(t, fiber.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"redis":"healthy"`)

	env.mr.Close()
	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "redis is optional")
	assert.Contains(t, string(body), `"status":"degraded"`)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/listings"},
		{http.MethodPost, "/api/listings/1/like"},
		{http.MethodPost, "/api/listings/1/purchase"},
		{http.MethodPost, "/api/users/1/follow"},
		{http.MethodDelete, "/api/comments/1"},
		{http.MethodGet, "/api/me/purchases"},
		{http.MethodPost, "/api/admin/reconcile"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			status, body := env.call(t, r.method, r.path, 0, nil)
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.False(t, body.Success)
			assert.Equal(t, models.CodeUnauthorized, body.Code)
		})
	}
}

func TestInvalidTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestTokenForDeletedAccountIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "ghost")
	require.NoError(t, env.db.Delete(u).Error)

	status, body := env.call(t, http.MethodGet, "/api/me", u.ID, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, models.CodeUnauthorized, body.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "mallory")

	status, body := env.call(t, http.MethodGet, "/api/admin/listings/pending", u.ID, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, models.CodeForbidden, body.Code)

	// Promotion takes effect on the next request without a new token.
	require.NoError(t, env.db.Model(u).Update("role", models.RoleAdmin).Error)
	status, _ = env.call(t, http.MethodGet, "/api/admin/listings/pending", u.ID, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestMetricsAndDocsAreServed(t *testing.T) {
	env := newTestEnv(t)
	env.call(t, http.MethodGet, "/health/live", 0, nil)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/api/swagger/doc.json", nil), -1)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/listings/{id}/purchase")
}
