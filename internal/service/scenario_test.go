package service

import (
	"testing"

	"promptmart/internal/models"
	"promptmart/internal/repository"
	"promptmart/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketplaceScenario(t *testing.T) {
	h := newHarness(t)
	a := h.user(t, "alice")
	b := h.user(t, "bob")
	admin := h.admin(t, "admin")

	l, err := h.listings.CreateListing(bg, CreateListingInput{
		Principal: as(a),
		Title:     "Release notes writer",
		Content:   "Summarize the diff as release notes.",
		Price:     decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, l.Status)
	assert.False(t, l.IsPublic)

	_, err = h.moderation.Approve(bg, as(admin), l.ID)
	require.NoError(t, err)

	search, err := h.listings.ListPublic(bg, models.Anonymous, repository.ListingFilter{}, pageOf(1, 20))
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	assert.Equal(t, l.ID, search.Items[0].ID)

	purchase, err := h.entitlements.Purchase(bg, as(b), l.ID)
	require.NoError(t, err)
	assert.True(t, purchase.Amount.Equal(decimal.NewFromInt(5)))
	got := testutil.ReloadListing(t, h.db, l.ID)
	assert.Equal(t, int64(1), got.Sales)
	assert.True(t, got.Earnings.Equal(decimal.NewFromInt(5)))

	full, err := h.entitlements.Download(bg, as(b), purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summarize the diff as release notes.", full.Content)
	dl, err := h.repos.purchases.GetByID(bg, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dl.DownloadCount)

	_, err = h.relationships.ToggleEdge(bg, as(b), models.EdgeLike, l.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), testutil.ReloadListing(t, h.db, l.ID).LikesCount)
	_, err = h.relationships.ToggleEdge(bg, as(b), models.EdgeLike, l.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), testutil.ReloadListing(t, h.db, l.ID).LikesCount)

	require.NoError(t, h.listings.DeleteListing(bg, as(a), l.ID))

	_, err = h.relationships.ListListingLikes(bg, as(b), l.ID, pageOf(1, 10))
	requireCode(t, err, models.CodeNotFound)
	_, err = h.comments.ListComments(bg, as(b), l.ID, pageOf(1, 10))
	requireCode(t, err, models.CodeNotFound)
	_, err = h.entitlements.CheckAccess(bg, as(b), l.ID)
	requireCode(t, err, models.CodeNotFound)
	_, err = h.entitlements.Download(bg, as(b), purchase.ID)
	requireCode(t, err, models.CodeNotFound)

	bought, err := h.entitlements.ListPurchases(bg, as(b), pageOf(1, 10))
	require.NoError(t, err)
	assert.Empty(t, bought.Items)
	assert.Zero(t, bought.Pagination.TotalItems)
}
