package seed

import (
	"context"
	"testing"
	"time"

	"promptmart/internal/models"
	"promptmart/internal/service"
	"promptmart/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newServices(t *testing.T, db *gorm.DB) *service.Services {
	t.Helper()
	svc, err := service.NewServices(db, nil, service.Options{
		ListingCacheTTL:   time.Minute,
		CascadeMaxElapsed: time.Second,
		SnowflakeNode:     1,
	})
	require.NoError(t, err)
	return svc
}

func smallOptions() Options {
	return Options{
		Users:               6,
		Listings:            10,
		FollowsPerUser:      2,
		LikesPerListing:     3,
		CommentsPerListing:  1,
		PurchasesPerListing: 2,
		PendingRatio:        0.2,
		RejectRatio:         0.1,
		SkipBcrypt:          true,
		RandSeed:            42,
	}
}

func TestSeed_CountersMatchRelationTables(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := newServices(t, db)

	sum, err := Seed(ctx, db, svc, smallOptions())
	require.NoError(t, err)
	assert.Equal(t, 6, sum.Users)
	assert.Equal(t, 10, sum.Listings)
	assert.Equal(t, 12, sum.Follows)
	assert.Equal(t, sum.Approved*3, sum.Likes)
	assert.Equal(t, sum.Approved, sum.Comments)

	var admins int64
	require.NoError(t, db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error)
	assert.Equal(t, int64(1), admins)

	var public int64
	require.NoError(t, db.Model(&models.Listing{}).Where("is_public = ?", true).Count(&public).Error)
	assert.Equal(t, int64(sum.Approved), public)

	var purchases int64
	require.NoError(t, db.Model(&models.Purchase{}).Where("status = ?", models.PurchaseCompleted).Count(&purchases).Error)
	assert.Equal(t, int64(sum.Purchases), purchases)

	report, err := svc.Reconcile.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, report.Drift, "seeded data must not need repair")
}

func TestSeed_CleanResetsData(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := newServices(t, db)

	opts := smallOptions()
	_, err := Seed(ctx, db, svc, opts)
	require.NoError(t, err)

	opts.Clean = true
	opts.RandSeed = 7
	_, err = Seed(ctx, db, svc, opts)
	require.NoError(t, err)

	var users int64
	require.NoError(t, db.Unscoped().Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(opts.Users+1), users)
}

func TestFactory_BuildListing(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := NewFactory(db, 1, true)
	author := testutil.CreateUser(t, db, "author", models.RoleUser)

	in := f.BuildListing(author)
	assert.Equal(t, author.ID, in.Principal.UserID)
	assert.NotEmpty(t, in.Title)
	assert.Contains(t, in.Content, "{{input}}")
	assert.Contains(t, categories, in.Category)
	assert.False(t, in.Price.IsNegative())
}

func TestFactory_PickExcludesSkip(t *testing.T) {
	f := NewFactory(nil, 3, true)
	got := f.pick(5, 10, 2)
	assert.Len(t, got, 4)
	assert.NotContains(t, got, 2)

	assert.Len(t, f.pick(5, 2, -1), 2)
}
