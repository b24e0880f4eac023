package repository

import (
	"context"
	"testing"

	"promptmart/internal/models"
	"promptmart/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseRepository_Lifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPurchaseRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	buyer := testutil.CreateUser(t, db, "buyer", models.RoleUser)
	listing := testutil.CreateListing(t, db, author, testutil.ListingOpts{Price: "9.99"})

	none, err := repo.Find(ctx, buyer.ID, listing.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	p := &models.Purchase{BuyerID: buyer.ID, ListingID: listing.ID, Amount: listing.Price, Status: models.PurchasePending}
	require.NoError(t, repo.Create(ctx, p))

	dup := &models.Purchase{BuyerID: buyer.ID, ListingID: listing.ID, Amount: listing.Price, Status: models.PurchasePending}
	err = repo.Create(ctx, dup)
	assert.True(t, models.HasCode(err, models.CodeConflict))

	downloaded, err := repo.RecordDownload(ctx, p.ID, fixedNow)
	require.NoError(t, err)
	assert.False(t, downloaded, "pending purchases cannot be downloaded")

	ok, err := repo.Complete(ctx, p.ID, listing.Price, "SIM-1", fixedNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Complete(ctx, p.ID, listing.Price, "SIM-2", fixedNow)
	require.NoError(t, err)
	assert.False(t, ok, "completion happens at most once")

	restarted, err := repo.Restart(ctx, p.ID, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.False(t, restarted)

	downloaded, err = repo.RecordDownload(ctx, p.ID, fixedNow)
	require.NoError(t, err)
	assert.True(t, downloaded)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseCompleted, got.Status)
	assert.Equal(t, "SIM-1", got.PaymentReference)
	assert.Equal(t, int64(1), got.DownloadCount)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("9.99")))
}

func TestPurchaseRepository_FailedCanRestart(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPurchaseRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	buyer := testutil.CreateUser(t, db, "buyer", models.RoleUser)
	listing := testutil.CreateListing(t, db, author, testutil.ListingOpts{Price: "5"})

	p := &models.Purchase{BuyerID: buyer.ID, ListingID: listing.ID, Amount: listing.Price, Status: models.PurchasePending}
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.MarkFailed(ctx, p.ID))

	ok, err := repo.Restart(ctx, p.ID, decimal.NewFromInt(7))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Find(ctx, buyer.ID, listing.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.PurchasePending, got.Status)
}

func TestPurchaseRepository_ListCompleted(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPurchaseRepository(db)
	listings := NewListingRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author", models.RoleUser)
	buyer := testutil.CreateUser(t, db, "buyer", models.RoleUser)
	kept := testutil.CreateListing(t, db, author, testutil.ListingOpts{Price: "2"})
	gone := testutil.CreateListing(t, db, author, testutil.ListingOpts{Price: "3"})

	for _, l := range []*models.Listing{kept, gone} {
		p := &models.Purchase{BuyerID: buyer.ID, ListingID: l.ID, Amount: l.Price, Status: models.PurchasePending}
		require.NoError(t, repo.Create(ctx, p))
		_, err := repo.Complete(ctx, p.ID, l.Price, "SIM", fixedNow)
		require.NoError(t, err)
	}

	_, err := listings.SoftDelete(ctx, gone.ID)
	require.NoError(t, err)

	bought, total, err := repo.ListCompletedByBuyer(ctx, buyer.ID, models.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, bought, 1)
	assert.Equal(t, kept.ID, bought[0].ListingID)

	sold, total, err := repo.ListCompletedByAuthor(ctx, author.ID, models.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, sold, 1)

	n, err := repo.TombstoneByListing(ctx, gone.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var tombstoned models.Purchase
	require.NoError(t, db.Unscoped().Where("listing_id = ?", gone.ID).First(&tombstoned).Error)
	assert.True(t, tombstoned.DeletedAt.Valid)
}
