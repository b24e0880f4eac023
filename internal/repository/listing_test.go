package repository

import (
	"context"
	"testing"

	"promptmart/internal/models"
	"promptmart/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingRepository_Transition(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	admin := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	listing := testutil.CreateListing(t, db, author, testutil.ListingOpts{Status: models.StatusPending})
	assert.False(t, listing.IsPublic)

	moved, err := repo.Transition(ctx, listing.ID, models.StatusPending, models.StatusApproved, ModerationStamp(admin.ID, "", fixedNow))
	require.NoError(t, err)
	assert.True(t, moved)

	got := testutil.ReloadListing(t, db, listing.ID)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.True(t, got.IsPublic)
	require.NotNil(t, got.ModeratedBy)
	assert.Equal(t, admin.ID, *got.ModeratedBy)

	// a stale from-status matches no row
	moved, err = repo.Transition(ctx, listing.ID, models.StatusPending, models.StatusRejected, nil)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, models.StatusApproved, testutil.ReloadListing(t, db, listing.ID).Status)
}

func TestListingRepository_ListPublic(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	testutil.CreateListing(t, db, author, testutil.ListingOpts{Category: "coding", Title: "a"})
	popular := testutil.CreateListing(t, db, author, testutil.ListingOpts{Category: "coding", Title: "b"})
	testutil.CreateListing(t, db, author, testutil.ListingOpts{Category: "art", Title: "c"})
	testutil.CreateListing(t, db, author, testutil.ListingOpts{Status: models.StatusPending, Title: "hidden"})
	require.NoError(t, db.Model(&models.Listing{}).Where("id = ?", popular.ID).Update("sales", 5).Error)

	all, total, err := repo.ListPublic(ctx, ListingFilter{Sort: SortNew}, models.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)
	for _, l := range all {
		assert.Empty(t, l.Content, "list pages never carry prompt text")
	}

	coding, total, err := repo.ListPublic(ctx, ListingFilter{Category: "coding", Sort: SortPopular}, models.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, coding, 2)
	assert.Equal(t, popular.ID, coding[0].ID)

	mine, total, err := repo.ListByAuthor(ctx, author.ID, false, models.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, mine, 4)

	pending, total, err := repo.ListByStatus(ctx, models.StatusPending, models.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "full prompt text", pending[0].Content)
}

func TestListingRepository_SoftDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	listing := testutil.CreateListing(t, db, author, testutil.ListingOpts{})

	removed, err := repo.SoftDelete(ctx, listing.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = repo.GetByID(ctx, listing.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	removed, err = repo.SoftDelete(ctx, listing.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}
