package service

import (
	"context"
	"fmt"
	"time"

	"promptmart/internal/access"
	"promptmart/internal/cache"
	"promptmart/internal/models"
	"promptmart/internal/observability"
	"promptmart/internal/repository"
	"promptmart/internal/validation"
)

// ModerationService drives the listing status machine. status and is_public
// always change together in one guarded UPDATE.
type ModerationService struct {
	listings repository.ListingRepository
	pages    *cache.ListingPages
	read     *ReadModel
	now      func() time.Time
}

// NewModerationService returns a new ModerationService. pages may be nil.
func NewModerationService(listings repository.ListingRepository, pages *cache.ListingPages, read *ReadModel) *ModerationService {
	return &ModerationService{listings: listings, pages: pages, read: read, now: time.Now}
}

// Approve publishes a pending listing.
func (s *ModerationService) Approve(ctx context.Context, p models.Principal, listingID uint) (*models.Listing, error) {
	return s.decide(ctx, p, listingID, models.StatusApproved, "")
}

// Reject refuses a pending listing with a reason shown to its author.
func (s *ModerationService) Reject(ctx context.Context, p models.Principal, listingID uint, reason string) (*models.Listing, error) {
	return s.decide(ctx, p, listingID, models.StatusRejected, reason)
}

// MoveToDraft withdraws the author's pending listing from the review queue.
func (s *ModerationService) MoveToDraft(ctx context.Context, p models.Principal, listingID uint) (*models.Listing, error) {
	return s.authorMove(ctx, p, listingID, models.StatusDraft)
}

// Submit puts the author's draft back into the review queue.
func (s *ModerationService) Submit(ctx context.Context, p models.Principal, listingID uint) (*models.Listing, error) {
	return s.authorMove(ctx, p, listingID, models.StatusPending)
}

func (s *ModerationService) decide(ctx context.Context, p models.Principal, listingID uint, to models.ListingStatus, reason string) (*models.Listing, error) {
	if !p.Authenticated() {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	if !p.IsAdmin() {
		return nil, models.NewForbiddenError("Admin access required")
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	rule, ok := models.FindTransition(listing.Status, to)
	if !ok {
		return nil, invalidTransition(listing.Status, to)
	}
	if rule.RequiresReason {
		if reason, err = validation.RejectionReason(reason); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	return s.move(ctx, listing, to, repository.ModerationStamp(p.UserID, reason, s.now()))
}

func (s *ModerationService) authorMove(ctx context.Context, p models.Principal, listingID uint, to models.ListingStatus) (*models.Listing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := access.Decide(p, listing, access.Mutate, nil).Err(); err != nil {
		return nil, err
	}
	rule, ok := models.FindTransition(listing.Status, to)
	if !ok {
		return nil, invalidTransition(listing.Status, to)
	}
	if rule.AdminOnly {
		return nil, models.NewForbiddenError("Admin access required")
	}

	return s.move(ctx, listing, to, nil)
}

func (s *ModerationService) move(ctx context.Context, listing *models.Listing, to models.ListingStatus, extra map[string]any) (*models.Listing, error) {
	detached := context.WithoutCancel(ctx)
	from := listing.Status

	moved, err := s.listings.Transition(detached, listing.ID, from, to, extra)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, models.NewConflictError("listing status changed concurrently")
	}
	observability.ModerationTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.pages.Invalidate(detached)

	updated, err := s.listings.GetByID(detached, listing.ID)
	if err != nil {
		return nil, err
	}
	if err := s.read.AttachListingAuthor(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// ListPendingReview returns the admin review queue, oldest first.
func (s *ModerationService) ListPendingReview(ctx context.Context, p models.Principal, page models.PageRequest) (*models.Page[models.Listing], error) {
	if !p.IsAdmin() {
		return nil, models.NewForbiddenError("Admin access required")
	}
	items, total, err := s.listings.ListByStatus(ctx, models.StatusPending, page)
	if err != nil {
		return nil, err
	}
	if err := s.read.AttachListingAuthors(ctx, items); err != nil {
		return nil, err
	}
	return &models.Page[models.Listing]{Items: items, Pagination: models.NewPagination(page, total)}, nil
}

func invalidTransition(from, to models.ListingStatus) error {
	return models.NewInvalidOperationError(fmt.Sprintf("cannot move listing from %s to %s", from, to))
}
