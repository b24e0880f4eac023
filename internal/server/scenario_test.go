package server

import (
	"net/http"
	"testing"

	"promptmart/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarketplaceOverHTTP walks a listing from creation through moderation,
// sale, engagement and deletion using only the public API.
func TestMarketplaceOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	admin := env.admin(t, "admin")

	status, body := env.call(t, http.MethodPost, "/api/listings", alice.ID, fiber.Map{
		"title":   "Release notes writer",
		"content": "Summarize the diff as release notes.",
		"price":   "5",
	})
	require.Equal(t, fiber.StatusCreated, status, body.Error)
	listing := decodeInto[models.Listing](t, body.Data)

	status, _ = env.call(t, http.MethodGet, path("/api/listings/%d", listing.ID), bob.ID, nil)
	assert.Equal(t, fiber.StatusForbidden, status, "pending listings are hidden")

	status, body = env.call(t, http.MethodPost, path("/api/admin/listings/%d/approve", listing.ID), admin.ID, nil)
	require.Equal(t, fiber.StatusOK, status, body.Error)

	_, body = env.call(t, http.MethodGet, "/api/listings", 0, nil)
	search := decodeInto[[]models.Listing](t, body.Items)
	require.Len(t, search, 1)
	assert.Equal(t, listing.ID, search[0].ID)

	status, body = env.call(t, http.MethodPost, path("/api/users/%d/follow", alice.ID), bob.ID, nil)
	require.Equal(t, fiber.StatusOK, status, body.Error)

	status, body = env.call(t, http.MethodPost, path("/api/listings/%d/purchase", listing.ID), bob.ID, nil)
	require.Equal(t, fiber.StatusCreated, status, body.Error)
	purchase := decodeInto[models.Purchase](t, body.Data)

	status, body = env.call(t, http.MethodGet, path("/api/listings/%d", listing.ID), bob.ID, nil)
	require.Equal(t, fiber.StatusOK, status)
	detail := decodeInto[models.Listing](t, body.Data)
	assert.False(t, detail.ContentRedacted, "buyers see the full prompt")
	assert.Equal(t, int64(1), detail.Sales)

	status, body = env.call(t, http.MethodPost, path("/api/purchases/%d/download", purchase.ID), bob.ID, nil)
	require.Equal(t, fiber.StatusOK, status, body.Error)
	assert.Equal(t, "Summarize the diff as release notes.", decodeInto[models.Listing](t, body.Data).Content)

	status, _ = env.call(t, http.MethodPost, path("/api/listings/%d/like", listing.ID), bob.ID, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = env.call(t, http.MethodPost, path("/api/listings/%d/comments", listing.ID), bob.ID, fiber.Map{"content": "Saved me an hour"})
	require.Equal(t, fiber.StatusCreated, status)

	_, body = env.call(t, http.MethodGet, path("/api/users/%d", alice.ID), 0, nil)
	assert.Equal(t, int64(1), decodeInto[models.User](t, body.Data).FollowersCount)

	status, _ = env.call(t, http.MethodDelete, path("/api/listings/%d", listing.ID), alice.ID, nil)
	require.Equal(t, fiber.StatusOK, status)

	for _, p := range []string{
		path("/api/listings/%d/likes", listing.ID),
		path("/api/listings/%d/comments", listing.ID),
		path("/api/listings/%d/access", listing.ID),
	} {
		status, body = env.call(t, http.MethodGet, p, bob.ID, nil)
		assert.Equal(t, fiber.StatusNotFound, status, p)
		assert.Equal(t, models.CodeNotFound, body.Code, p)
	}
	status, _ = env.call(t, http.MethodPost, path("/api/purchases/%d/download", purchase.ID), bob.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	_, body = env.call(t, http.MethodGet, "/api/me/purchases", bob.ID, nil)
	assert.Empty(t, decodeInto[[]models.Purchase](t, body.Items))
	assert.Zero(t, body.Pagination.TotalItems)

	status, body = env.call(t, http.MethodPost, "/api/admin/reconcile?dry_run=true", admin.ID, nil)
	require.Equal(t, fiber.StatusOK, status, body.Error)
	assert.Empty(t, decodeInto[struct {
		Drift []any `json:"drift"`
	}](t, body.Data).Drift)
}
