package service

import (
	"context"
	"strings"

	"promptmart/internal/access"
	"promptmart/internal/cache"
	"promptmart/internal/models"
	"promptmart/internal/repository"
	"promptmart/internal/validation"

	"github.com/shopspring/decimal"
)

// ListingService owns listing CRUD and the public catalogue.
type ListingService struct {
	listings  repository.ListingRepository
	users     repository.UserRepository
	purchases repository.PurchaseRepository
	counters  *CounterService
	cascade   *CascadeService
	pages     *cache.ListingPages
	read      *ReadModel
}

type ListingServiceDeps struct {
	Listings  repository.ListingRepository
	Users     repository.UserRepository
	Purchases repository.PurchaseRepository
	Counters  *CounterService
	Cascade   *CascadeService
	Pages     *cache.ListingPages
	Read      *ReadModel
}

// NewListingService returns a new ListingService.
func NewListingService(deps ListingServiceDeps) *ListingService {
	return &ListingService{
		listings:  deps.Listings,
		users:     deps.Users,
		purchases: deps.Purchases,
		counters:  deps.Counters,
		cascade:   deps.Cascade,
		pages:     deps.Pages,
		read:      deps.Read,
	}
}

type CreateListingInput struct {
	Principal   models.Principal
	Title       string
	Description string
	Content     string
	Category    string
	AIModel     string
	Price       decimal.Decimal
	// Draft keeps the listing out of the review queue.
	Draft bool
}

// UpdateListingInput carries optional field changes; nil fields are kept.
type UpdateListingInput struct {
	Principal   models.Principal
	ListingID   uint
	Title       *string
	Description *string
	Content     *string
	Category    *string
	AIModel     *string
	Price       *decimal.Decimal
}

// CreateListing stores a new listing in pending (or draft) state.
func (s *ListingService) CreateListing(ctx context.Context, in CreateListingInput) (*models.Listing, error) {
	if !in.Principal.Authenticated() {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	title, err := validation.ListingTitle(in.Title)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("content is required")
	}
	category, err := validation.Category(in.Category)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.Price(in.Price); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	status := models.StatusPending
	if in.Draft {
		status = models.StatusDraft
	}
	listing := &models.Listing{
		AuthorID:    in.Principal.UserID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Content:     content,
		Category:    category,
		AIModel:     strings.TrimSpace(in.AIModel),
		Price:       in.Price,
		Status:      status,
		IsPublic:    models.VisibilityFor(status),
	}
	if err := s.listings.Create(context.WithoutCancel(ctx), listing); err != nil {
		return nil, err
	}
	s.pages.Invalidate(ctx)

	if err := s.read.AttachListingAuthor(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// GetListing returns a listing the caller can see. Paid prompt text is
// redacted unless the caller is the author, an admin or a buyer. Views by
// anyone but the author are counted.
func (s *ListingService) GetListing(ctx context.Context, p models.Principal, listingID uint) (*models.Listing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := access.Decide(p, listing, access.View, nil).Err(); err != nil {
		return nil, err
	}

	entitlement, err := s.purchases.Find(ctx, p.UserID, listing.ID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !access.HasAccess(p, listing, entitlement) {
		listing.Redact()
	}

	if !p.Authenticated() || p.UserID != listing.AuthorID {
		s.counters.Viewed(context.WithoutCancel(ctx), listing.ID)
	}

	if err := s.read.AttachListingAuthor(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// UpdateListing edits the author's listing. Moderation status is untouched.
func (s *ListingService) UpdateListing(ctx context.Context, in UpdateListingInput) (*models.Listing, error) {
	listing, err := s.listings.GetByID(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	if err := access.Decide(in.Principal, listing, access.Mutate, nil).Err(); err != nil {
		return nil, err
	}

	if in.Title != nil {
		if listing.Title, err = validation.ListingTitle(*in.Title); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if in.Description != nil {
		listing.Description = strings.TrimSpace(*in.Description)
	}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return nil, models.NewValidationError("content is required")
		}
		listing.Content = content
	}
	if in.Category != nil {
		if listing.Category, err = validation.Category(*in.Category); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if in.AIModel != nil {
		listing.AIModel = strings.TrimSpace(*in.AIModel)
	}
	if in.Price != nil {
		if err := validation.Price(*in.Price); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		listing.Price = *in.Price
	}

	detached := context.WithoutCancel(ctx)
	if err := s.listings.UpdateContent(detached, listing); err != nil {
		return nil, err
	}
	if listing.IsPublic {
		s.pages.Invalidate(detached)
	}

	updated, err := s.listings.GetByID(detached, listing.ID)
	if err != nil {
		return nil, err
	}
	if err := s.read.AttachListingAuthor(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteListing soft-deletes the author's listing, which makes it unreachable
// at once, then runs the dependent cascade.
func (s *ListingService) DeleteListing(ctx context.Context, p models.Principal, listingID uint) error {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if err := access.Decide(p, listing, access.Mutate, nil).Err(); err != nil {
		return err
	}

	detached := context.WithoutCancel(ctx)
	removed, err := s.listings.SoftDelete(detached, listing.ID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Listing", listingID)
	}
	s.pages.Invalidate(detached)

	// A sweep that gives up is queued and finished by reconcile; the listing
	// is already gone for every reader.
	_ = s.cascade.Run(detached, listing.ID)
	return nil
}

// ListPublic returns a page of approved listings. Anonymous pages are served
// from the Redis page cache.
func (s *ListingService) ListPublic(ctx context.Context, p models.Principal, filter repository.ListingFilter, page models.PageRequest) (*models.Page[models.Listing], error) {
	switch filter.Sort {
	case "":
		filter.Sort = repository.SortNew
	case repository.SortNew, repository.SortTop, repository.SortPopular:
	default:
		return nil, models.NewValidationError("sort must be one of new, top, popular")
	}
	category, err := validation.Category(filter.Category)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	filter.Category = category

	load := func(dest *models.Page[models.Listing]) error {
		items, total, err := s.listings.ListPublic(ctx, filter, page)
		if err != nil {
			return err
		}
		if err := s.read.AttachListingAuthors(ctx, items); err != nil {
			return err
		}
		*dest = models.Page[models.Listing]{Items: items, Pagination: models.NewPagination(page, total)}
		return nil
	}

	var out models.Page[models.Listing]
	if p.Authenticated() {
		if err := load(&out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	err = s.pages.Fetch(ctx, filter.Category, filter.Sort, page.Page, page.Limit, &out, func() error {
		return load(&out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByAuthor returns an author's listings. Non-public ones are included
// only for the author and admins.
func (s *ListingService) ListByAuthor(ctx context.Context, p models.Principal, authorID uint, page models.PageRequest) (*models.Page[models.Listing], error) {
	if _, err := s.users.GetByID(ctx, authorID); err != nil {
		return nil, err
	}
	publicOnly := !p.IsAdmin() && !(p.Authenticated() && p.UserID == authorID)

	items, total, err := s.listings.ListByAuthor(ctx, authorID, publicOnly, page)
	if err != nil {
		return nil, err
	}
	if err := s.read.AttachListingAuthors(ctx, items); err != nil {
		return nil, err
	}
	return &models.Page[models.Listing]{Items: items, Pagination: models.NewPagination(page, total)}, nil
}
