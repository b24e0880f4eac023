package service

import (
	"sync"
	"testing"

	"promptmart/internal/models"
	"promptmart/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleEdge_TwiceRestoresState(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	fan := h.user(t, "fan")
	listing := h.listing(t, author, testutil.ListingOpts{})

	tests := []struct {
		kind   models.EdgeKind
		target uint
		count  func() int64
	}{
		{models.EdgeLike, listing.ID, func() int64 { return testutil.ReloadListing(t, h.db, listing.ID).LikesCount }},
		{models.EdgeFavorite, listing.ID, func() int64 { return 0 }},
		{models.EdgeFollow, author.ID, func() int64 { return testutil.ReloadUser(t, h.db, author.ID).FollowersCount }},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			before := tt.count()

			first, err := h.relationships.ToggleEdge(bg, as(fan), tt.kind, tt.target)
			require.NoError(t, err)
			assert.True(t, first.Created)

			exists, err := h.relationships.EdgeExists(bg, tt.kind, fan.ID, tt.target)
			require.NoError(t, err)
			assert.True(t, exists)

			second, err := h.relationships.ToggleEdge(bg, as(fan), tt.kind, tt.target)
			require.NoError(t, err)
			assert.False(t, second.Created)

			exists, err = h.relationships.EdgeExists(bg, tt.kind, fan.ID, tt.target)
			require.NoError(t, err)
			assert.False(t, exists)
			assert.Equal(t, before, tt.count())
		})
	}
}

func TestToggleEdge_FollowCountersBothEnds(t *testing.T) {
	h := newHarness(t)
	a := h.user(t, "a")
	b := h.user(t, "b")

	res, err := h.relationships.ToggleEdge(bg, as(a), models.EdgeFollow, b.ID)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, int64(1), res.Count)

	assert.Equal(t, int64(1), testutil.ReloadUser(t, h.db, a.ID).FollowingCount)
	assert.Equal(t, int64(1), testutil.ReloadUser(t, h.db, b.ID).FollowersCount)
	assert.Equal(t, int64(0), testutil.ReloadUser(t, h.db, a.ID).FollowersCount)
}

func TestToggleEdge_Rejections(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	other := h.user(t, "other")
	pending := h.listing(t, author, testutil.ListingOpts{Status: models.StatusPending})

	t.Run("self follow", func(t *testing.T) {
		_, err := h.relationships.ToggleEdge(bg, as(other), models.EdgeFollow, other.ID)
		requireCode(t, err, models.CodeInvalidOperation)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := h.relationships.ToggleEdge(bg, as(other), models.EdgeFollow, 9999)
		requireCode(t, err, models.CodeNotFound)
	})

	t.Run("missing listing", func(t *testing.T) {
		_, err := h.relationships.ToggleEdge(bg, as(other), models.EdgeLike, 9999)
		requireCode(t, err, models.CodeNotFound)
	})

	t.Run("listing not visible", func(t *testing.T) {
		_, err := h.relationships.ToggleEdge(bg, as(other), models.EdgeLike, pending.ID)
		requireCode(t, err, models.CodeForbidden)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := h.relationships.ToggleEdge(bg, models.Anonymous, models.EdgeFollow, author.ID)
		requireCode(t, err, models.CodeUnauthorized)
	})

	t.Run("author may like own pending listing", func(t *testing.T) {
		res, err := h.relationships.ToggleEdge(bg, as(author), models.EdgeLike, pending.ID)
		require.NoError(t, err)
		assert.True(t, res.Created)
	})
}

func TestToggleEdge_ConcurrentTogglesKeepCounterExact(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	listing := h.listing(t, author, testutil.ListingOpts{})

	fans := make([]*models.User, 8)
	for i := range fans {
		fans[i] = h.user(t, "fan"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for i, fan := range fans {
		wg.Add(1)
		go func(fan *models.User, times int) {
			defer wg.Done()
			for j := 0; j < times; j++ {
				_, _ = h.relationships.ToggleEdge(bg, as(fan), models.EdgeLike, listing.ID)
			}
		}(fan, i%3+1)
	}
	wg.Wait()

	var likes int64
	require.NoError(t, h.db.Model(&models.Like{}).Where("listing_id = ?", listing.ID).Count(&likes).Error)
	assert.Equal(t, likes, testutil.ReloadListing(t, h.db, listing.ID).LikesCount)
}

func TestToggleEdge_SamePairDoubleClicks(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	fan := h.user(t, "fan")
	listing := h.listing(t, author, testutil.ListingOpts{})

	for round := 0; round < 15; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.relationships.ToggleEdge(bg, as(fan), models.EdgeLike, listing.ID)
				if err != nil {
					appErr, ok := models.AsAppError(err)
					assert.True(t, ok && appErr.Code == models.CodeConflict, "unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		var likes int64
		require.NoError(t, h.db.Model(&models.Like{}).Where("listing_id = ?", listing.ID).Count(&likes).Error)
		require.LessOrEqual(t, likes, int64(1))
		require.Equal(t, likes, testutil.ReloadListing(t, h.db, listing.ID).LikesCount, "round %d", round)
	}
}

func TestDuplicateInsertIsConflictWithoutDelta(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	fan := h.user(t, "fan")
	listing := h.listing(t, author, testutil.ListingOpts{})

	_, err := h.relationships.ToggleEdge(bg, as(fan), models.EdgeLike, listing.ID)
	require.NoError(t, err)

	// A racing request that already passed its delete step lands here.
	err = h.repos.edges.Insert(bg, models.EdgeLike, fan.ID, listing.ID)
	requireCode(t, err, models.CodeConflict)
	assert.Equal(t, int64(1), testutil.ReloadListing(t, h.db, listing.ID).LikesCount)
}

func TestRelationshipReads(t *testing.T) {
	h := newHarness(t)
	star := h.user(t, "star")
	a := h.user(t, "a")
	b := h.user(t, "b")

	for _, u := range []*models.User{a, b} {
		_, err := h.relationships.ToggleEdge(bg, as(u), models.EdgeFollow, star.ID)
		require.NoError(t, err)
	}
	_, err := h.relationships.ToggleEdge(bg, as(star), models.EdgeFollow, a.ID)
	require.NoError(t, err)

	followers, err := h.relationships.ListFollowers(bg, star.ID, pageOf(1, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), followers.Pagination.TotalItems)
	assert.True(t, followers.Pagination.HasNext)
	require.Len(t, followers.Items, 1)
	require.NotNil(t, followers.Items[0].User)
	assert.Equal(t, "b", followers.Items[0].User.Username)

	following, err := h.relationships.ListFollowing(bg, star.ID, pageOf(1, 10))
	require.NoError(t, err)
	require.Len(t, following.Items, 1)
	assert.Equal(t, "a", following.Items[0].User.Username)

	_, err = h.relationships.ListFollowers(bg, 9999, pageOf(1, 10))
	requireCode(t, err, models.CodeNotFound)

	status, err := h.relationships.GetFollowStatus(bg, as(a), star.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowStatus{Following: true, FollowedBy: true}, *status)

	status, err = h.relationships.GetFollowStatus(bg, as(b), star.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowStatus{Following: true}, *status)
}

func TestEdgeStatusesAndMyListings(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	fan := h.user(t, "fan")
	l1 := h.listing(t, author, testutil.ListingOpts{Title: "one"})
	l2 := h.listing(t, author, testutil.ListingOpts{Title: "two"})

	_, err := h.relationships.ToggleEdge(bg, as(fan), models.EdgeLike, l1.ID)
	require.NoError(t, err)
	_, err = h.relationships.ToggleEdge(bg, as(fan), models.EdgeFavorite, l2.ID)
	require.NoError(t, err)

	statuses, err := h.relationships.EdgeStatuses(bg, as(fan), []uint{l1.ID, l2.ID})
	require.NoError(t, err)
	assert.Equal(t, models.EdgeStatus{Liked: true}, statuses[l1.ID])
	assert.Equal(t, models.EdgeStatus{Favorited: true}, statuses[l2.ID])

	anon, err := h.relationships.EdgeStatuses(bg, models.Anonymous, []uint{l1.ID})
	require.NoError(t, err)
	assert.Equal(t, models.EdgeStatus{}, anon[l1.ID])

	liked, err := h.relationships.ListMyListings(bg, as(fan), models.EdgeLike, pageOf(1, 10))
	require.NoError(t, err)
	require.Len(t, liked.Items, 1)
	assert.Equal(t, l1.ID, liked.Items[0].ID)
	assert.Empty(t, liked.Items[0].Content)
	require.NotNil(t, liked.Items[0].Author)
	assert.Equal(t, "author", liked.Items[0].Author.Username)

	likers, err := h.relationships.ListListingLikes(bg, models.Anonymous, l1.ID, pageOf(1, 10))
	require.NoError(t, err)
	require.Len(t, likers.Items, 1)
	assert.Equal(t, fan.ID, likers.Items[0].User.ID)
}

func TestListMyListings_TotalsSkipGoneAndHiddenListings(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	fan := h.user(t, "fan")
	kept := h.listing(t, author, testutil.ListingOpts{Title: "kept"})
	gone := h.listing(t, author, testutil.ListingOpts{Title: "gone"})
	hidden := h.listing(t, author, testutil.ListingOpts{Title: "hidden"})
	own := h.listing(t, fan, testutil.ListingOpts{Title: "own draft", Status: models.StatusDraft})

	for _, l := range []*models.Listing{kept, gone, hidden, own} {
		_, err := h.relationships.ToggleEdge(bg, as(fan), models.EdgeFavorite, l.ID)
		require.NoError(t, err)
	}

	// Deleted behind the cascade's back, and pulled from the catalogue.
	require.NoError(t, h.db.Delete(&models.Listing{}, gone.ID).Error)
	require.NoError(t, h.db.Model(&models.Listing{}).Where("id = ?", hidden.ID).
		Updates(map[string]any{"status": models.StatusRejected, "is_public": false}).Error)

	page, err := h.relationships.ListMyListings(bg, as(fan), models.EdgeFavorite, pageOf(1, 1))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, own.ID, page.Items[0].ID, "newest favorite first")
	assert.Equal(t, int64(2), page.Pagination.TotalItems)
	assert.True(t, page.Pagination.HasNext)

	next, err := h.relationships.ListMyListings(bg, as(fan), models.EdgeFavorite, pageOf(2, 1))
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, kept.ID, next.Items[0].ID)
	assert.False(t, next.Pagination.HasNext)

	_, err = h.relationships.ListMyListings(bg, as(fan), models.EdgeFollow, pageOf(1, 10))
	requireCode(t, err, models.CodeInvalidInput)
}
