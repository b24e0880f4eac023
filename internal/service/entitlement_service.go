package service

import (
	"context"
	"log/slog"
	"time"

	"promptmart/internal/access"
	"promptmart/internal/models"
	"promptmart/internal/observability"
	"promptmart/internal/repository"
)

// EntitlementService records purchases and serves paid content to buyers.
type EntitlementService struct {
	purchases repository.PurchaseRepository
	listings  repository.ListingRepository
	counters  *CounterService
	settler   Settler
	now       func() time.Time
}

// NewEntitlementService returns a new EntitlementService.
func NewEntitlementService(
	purchases repository.PurchaseRepository,
	listings repository.ListingRepository,
	counters *CounterService,
	settler Settler,
) *EntitlementService {
	return &EntitlementService{
		purchases: purchases,
		listings:  listings,
		counters:  counters,
		settler:   settler,
		now:       time.Now,
	}
}

// Purchase buys a paid listing for the caller. The record is flipped to
// completed with a guarded UPDATE, so two racing purchases produce exactly
// one completed entitlement and one sale.
func (s *EntitlementService) Purchase(ctx context.Context, p models.Principal, listingID uint) (purchase *models.Purchase, err error) {
	ctx, done := observability.StartServiceSpan(ctx, "entitlements", "Purchase")
	defer func() { done(err) }()

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	existing, err := s.purchases.Find(ctx, p.UserID, listingID)
	if err != nil {
		return nil, err
	}
	if err := access.Decide(p, listing, access.Purchase, existing).Err(); err != nil {
		observability.PurchasesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	amount := listing.Price

	record, err := s.pendingRecord(detached, p.UserID, listing, existing)
	if err != nil {
		return nil, err
	}

	ref, err := s.settler.Settle(detached, SettlementRequest{
		PurchaseID: record.ID,
		BuyerID:    p.UserID,
		ListingID:  listing.ID,
		Amount:     amount,
	})
	if err != nil {
		if markErr := s.purchases.MarkFailed(detached, record.ID); markErr != nil {
			observability.LogAsyncOperationError(ctx, "purchases.mark_failed", markErr, map[string]any{"purchase_id": record.ID})
		}
		observability.PurchasesTotal.WithLabelValues("failed").Inc()
		observability.GlobalLogger.WarnContext(ctx, "settlement failed",
			slog.Uint64("purchase_id", uint64(record.ID)),
			slog.String("error", err.Error()),
		)
		return nil, models.NewInvalidOperationError("payment failed")
	}

	completed, err := s.purchases.Complete(detached, record.ID, amount, ref, s.now())
	if err != nil {
		return nil, err
	}
	if !completed {
		observability.PurchasesTotal.WithLabelValues("conflict").Inc()
		return nil, models.NewConflictError("listing already purchased")
	}
	s.counters.Sold(detached, listing.ID, amount)
	observability.PurchasesTotal.WithLabelValues("completed").Inc()

	return s.purchases.GetByID(detached, record.ID)
}

// pendingRecord creates the buyer's pending record or moves an earlier
// pending/failed one back to pending at the current price.
func (s *EntitlementService) pendingRecord(ctx context.Context, buyerID uint, listing *models.Listing, existing *models.Purchase) (*models.Purchase, error) {
	if existing == nil {
		record := &models.Purchase{
			BuyerID:   buyerID,
			ListingID: listing.ID,
			Amount:    listing.Price,
			Status:    models.PurchasePending,
		}
		err := s.purchases.Create(ctx, record)
		if err == nil {
			return record, nil
		}
		if !models.HasCode(err, models.CodeConflict) {
			return nil, err
		}
		// Lost the insert race; continue with the winner's record.
		existing, err = s.purchases.Find(ctx, buyerID, listing.ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, models.NewConflictError("purchase already in progress")
		}
	}

	if existing.Completed() {
		return nil, models.NewConflictError("listing already purchased")
	}
	restarted, err := s.purchases.Restart(ctx, existing.ID, listing.Price)
	if err != nil {
		return nil, err
	}
	if !restarted {
		return nil, models.NewConflictError("listing already purchased")
	}
	return existing, nil
}

// Download returns the full listing behind a completed entitlement and
// records the download.
func (s *EntitlementService) Download(ctx context.Context, p models.Principal, purchaseID uint) (*models.Listing, error) {
	if !p.Authenticated() {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	purchase, err := s.purchases.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase.BuyerID != p.UserID {
		return nil, models.NewForbiddenError("purchase belongs to another user")
	}
	if !purchase.Completed() {
		return nil, models.NewForbiddenError("purchase is not completed")
	}
	listing, err := s.listings.GetByID(ctx, purchase.ListingID)
	if err != nil {
		return nil, err
	}

	recorded, err := s.purchases.RecordDownload(context.WithoutCancel(ctx), purchase.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !recorded {
		return nil, models.NewForbiddenError("purchase is not completed")
	}
	return listing, nil
}

// CheckAccess reports whether the caller may read the listing's full content.
func (s *EntitlementService) CheckAccess(ctx context.Context, p models.Principal, listingID uint) (*models.AccessInfo, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	entitlement, err := s.purchases.Find(ctx, p.UserID, listingID)
	if err != nil {
		return nil, err
	}

	info := &models.AccessInfo{
		ListingID: listing.ID,
		IsAuthor:  p.Authenticated() && p.UserID == listing.AuthorID,
		IsFree:    !listing.IsPaid(),
		Purchased: entitlement.Completed(),
		HasAccess: access.HasAccess(p, listing, entitlement),
	}
	if entitlement.Completed() {
		id := entitlement.ID
		info.Purchase = &id
	}
	return info, nil
}

// ListPurchases returns the caller's completed purchases of live listings.
func (s *EntitlementService) ListPurchases(ctx context.Context, p models.Principal, page models.PageRequest) (*models.Page[models.Purchase], error) {
	if !p.Authenticated() {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	items, total, err := s.purchases.ListCompletedByBuyer(ctx, p.UserID, page)
	if err != nil {
		return nil, err
	}
	return s.withListings(ctx, items, page, total)
}

// ListSales returns completed purchases of the caller's listings.
func (s *EntitlementService) ListSales(ctx context.Context, p models.Principal, page models.PageRequest) (*models.Page[models.Purchase], error) {
	if !p.Authenticated() {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	items, total, err := s.purchases.ListCompletedByAuthor(ctx, p.UserID, page)
	if err != nil {
		return nil, err
	}
	return s.withListings(ctx, items, page, total)
}

func (s *EntitlementService) withListings(ctx context.Context, items []models.Purchase, page models.PageRequest, total int64) (*models.Page[models.Purchase], error) {
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ListingID
	}
	byID, err := s.listings.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Listing = byID[items[i].ListingID]
	}
	return &models.Page[models.Purchase]{Items: items, Pagination: models.NewPagination(page, total)}, nil
}
