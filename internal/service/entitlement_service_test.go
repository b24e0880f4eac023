package service

import (
	"context"
	"sync"
	"testing"

	"promptmart/internal/models"
	"promptmart/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decliningSettler struct{ calls int }

func (s *decliningSettler) Settle(context.Context, SettlementRequest) (string, error) {
	s.calls++
	return "", ErrSettlementDeclined
}

func TestPurchase_Rules(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	buyer := h.user(t, "buyer")
	free := h.listing(t, author, testutil.ListingOpts{})
	paid := h.listing(t, author, testutil.ListingOpts{Price: "5"})
	hidden := h.listing(t, author, testutil.ListingOpts{Price: "5", Status: models.StatusPending})

	t.Run("free listing", func(t *testing.T) {
		_, err := h.entitlements.Purchase(bg, as(buyer), free.ID)
		requireCode(t, err, models.CodeInvalidOperation)
	})

	t.Run("own listing", func(t *testing.T) {
		_, err := h.entitlements.Purchase(bg, as(author), paid.ID)
		requireCode(t, err, models.CodeForbidden)
	})

	t.Run("listing not visible", func(t *testing.T) {
		_, err := h.entitlements.Purchase(bg, as(buyer), hidden.ID)
		requireCode(t, err, models.CodeForbidden)
	})

	t.Run("missing listing", func(t *testing.T) {
		_, err := h.entitlements.Purchase(bg, as(buyer), 9999)
		requireCode(t, err, models.CodeNotFound)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := h.entitlements.Purchase(bg, models.Anonymous, paid.ID)
		requireCode(t, err, models.CodeUnauthorized)
	})

	t.Run("second purchase conflicts", func(t *testing.T) {
		p, err := h.entitlements.Purchase(bg, as(buyer), paid.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PurchaseCompleted, p.Status)
		assert.Regexp(t, `^SIM-\d+$`, p.PaymentReference)
		require.NotNil(t, p.CompletedAt)

		_, err = h.entitlements.Purchase(bg, as(buyer), paid.ID)
		requireCode(t, err, models.CodeConflict)

		got := testutil.ReloadListing(t, h.db, paid.ID)
		assert.Equal(t, int64(1), got.Sales)
		assert.True(t, got.Earnings.Equal(decimal.NewFromInt(5)), got.Earnings.String())
	})

	var n int64
	require.NoError(t, h.db.Model(&models.Purchase{}).Count(&n).Error)
	assert.Equal(t, int64(1), n, "rejected attempts write nothing")
}

func TestPurchase_AmountIsPriceSnapshot(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	buyer := h.user(t, "buyer")
	late := h.user(t, "late")
	listing := h.listing(t, author, testutil.ListingOpts{Price: "5.00"})

	_, err := h.entitlements.Purchase(bg, as(buyer), listing.ID)
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("9.50")
	_, err = h.listings.UpdateListing(bg, UpdateListingInput{Principal: as(author), ListingID: listing.ID, Price: &newPrice})
	require.NoError(t, err)

	second, err := h.entitlements.Purchase(bg, as(late), listing.ID)
	require.NoError(t, err)
	assert.True(t, second.Amount.Equal(newPrice))

	first, err := h.repos.purchases.Find(bg, buyer.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(5)), "historical amount is unchanged")

	got := testutil.ReloadListing(t, h.db, listing.ID)
	assert.Equal(t, int64(2), got.Sales)
	assert.True(t, got.Earnings.Equal(decimal.RequireFromString("14.50")), got.Earnings.String())
}

func TestPurchase_SettlementFailureIsRetryable(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	buyer := h.user(t, "buyer")
	listing := h.listing(t, author, testutil.ListingOpts{Price: "3"})

	working := h.entitlements.settler
	declining := &decliningSettler{}
	h.entitlements.settler = declining

	_, err := h.entitlements.Purchase(bg, as(buyer), listing.ID)
	requireCode(t, err, models.CodeInvalidOperation)
	assert.Equal(t, 1, declining.calls)

	record, err := h.repos.purchases.Find(bg, buyer.ID, listing.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.PurchaseFailed, record.Status)
	assert.Equal(t, int64(0), testutil.ReloadListing(t, h.db, listing.ID).Sales)

	h.entitlements.settler = working
	p, err := h.entitlements.Purchase(bg, as(buyer), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, p.ID, "the failed attempt is reused")
	assert.Equal(t, models.PurchaseCompleted, p.Status)
	assert.Equal(t, int64(1), testutil.ReloadListing(t, h.db, listing.ID).Sales)
}

func TestPurchase_ConcurrentRequestsCompleteOnce(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	buyer := h.user(t, "buyer")
	listing := h.listing(t, author, testutil.ListingOpts{Price: "5"})

	const attempts = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		conflict int
		other    []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.entitlements.Purchase(bg, as(buyer), listing.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			if appErr, isApp := models.AsAppError(err); isApp && appErr.Code == models.CodeConflict {
				conflict++
				return
			}
			other = append(other, err)
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflict)

	var completed int64
	require.NoError(t, h.db.Model(&models.Purchase{}).
		Where("buyer_id = ? AND listing_id = ? AND status = ?", buyer.ID, listing.ID, models.PurchaseCompleted).
		Count(&completed).Error)
	assert.Equal(t, int64(1), completed)

	got := testutil.ReloadListing(t, h.db, listing.ID)
	assert.Equal(t, int64(1), got.Sales)
	assert.True(t, decimal.NewFromInt(5).Equal(got.Earnings), "earnings = %s", got.Earnings)
}

func TestDownload(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	buyer := h.user(t, "buyer")
	other := h.user(t, "other")
	listing := h.listing(t, author, testutil.ListingOpts{Price: "5"})

	p, err := h.entitlements.Purchase(bg, as(buyer), listing.ID)
	require.NoError(t, err)

	_, err = h.entitlements.Download(bg, as(other), p.ID)
	requireCode(t, err, models.CodeForbidden)

	_, err = h.entitlements.Download(bg, as(buyer), 9999)
	requireCode(t, err, models.CodeNotFound)

	full, err := h.entitlements.Download(bg, as(buyer), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "full prompt text", full.Content)

	got, err := h.repos.purchases.GetByID(bg, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.DownloadCount)
	assert.NotNil(t, got.LastDownloadedAt)

	t.Run("pending record", func(t *testing.T) {
		pending := &models.Purchase{BuyerID: other.ID, ListingID: listing.ID, Amount: listing.Price, Status: models.PurchasePending}
		require.NoError(t, h.repos.purchases.Create(bg, pending))
		_, err := h.entitlements.Download(bg, as(other), pending.ID)
		requireCode(t, err, models.CodeForbidden)
	})
}

func TestCheckAccess(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	buyer := h.user(t, "buyer")
	stranger := h.user(t, "stranger")
	free := h.listing(t, author, testutil.ListingOpts{})
	paid := h.listing(t, author, testutil.ListingOpts{Price: "5"})

	p, err := h.entitlements.Purchase(bg, as(buyer), paid.ID)
	require.NoError(t, err)

	tests := []struct {
		name      string
		principal models.Principal
		listing   uint
		want      bool
	}{
		{"free for anonymous", models.Anonymous, free.ID, true},
		{"free for stranger", as(stranger), free.ID, true},
		{"paid for author", as(author), paid.ID, true},
		{"paid for buyer", as(buyer), paid.ID, true},
		{"paid for stranger", as(stranger), paid.ID, false},
		{"paid for anonymous", models.Anonymous, paid.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := h.entitlements.CheckAccess(bg, tt.principal, tt.listing)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.HasAccess)
		})
	}

	info, err := h.entitlements.CheckAccess(bg, as(buyer), paid.ID)
	require.NoError(t, err)
	assert.True(t, info.Purchased)
	require.NotNil(t, info.Purchase)
	assert.Equal(t, p.ID, *info.Purchase)

	_, err = h.entitlements.CheckAccess(bg, as(buyer), 9999)
	requireCode(t, err, models.CodeNotFound)
}

func TestListPurchasesAndSales(t *testing.T) {
	h := newHarness(t)
	author := h.user(t, "author")
	buyer := h.user(t, "buyer")
	a := h.listing(t, author, testutil.ListingOpts{Price: "1", Title: "a"})
	b := h.listing(t, author, testutil.ListingOpts{Price: "2", Title: "b"})

	for _, l := range []*models.Listing{a, b} {
		_, err := h.entitlements.Purchase(bg, as(buyer), l.ID)
		require.NoError(t, err)
	}

	bought, err := h.entitlements.ListPurchases(bg, as(buyer), pageOf(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), bought.Pagination.TotalItems)
	for _, p := range bought.Items {
		require.NotNil(t, p.Listing)
		assert.Empty(t, p.Listing.Content)
	}

	sold, err := h.entitlements.ListSales(bg, as(author), pageOf(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), sold.Pagination.TotalItems)

	none, err := h.entitlements.ListSales(bg, as(buyer), pageOf(1, 10))
	require.NoError(t, err)
	assert.Empty(t, none.Items)
}
