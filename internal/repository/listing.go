package repository

import (
	"context"
	"time"

	"promptmart/internal/models"
	"promptmart/internal/observability"

	"gorm.io/gorm"
)

// Sort orders accepted by ListPublic.
const (
	SortNew     = "new"
	SortTop     = "top"
	SortPopular = "popular"
)

// ListingFilter narrows public listing queries.
type ListingFilter struct {
	Category string
	Sort     string
}

// ListingRepository defines persistence operations for listings.
type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	// GetByID returns a live listing, always from the primary database.
	GetByID(ctx context.Context, id uint) (*models.Listing, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.Listing, error)
	UpdateContent(ctx context.Context, listing *models.Listing) error
	// Transition moves the listing from -> to, writing status and is_public in
	// one UPDATE guarded by the current status. It reports whether the row moved.
	Transition(ctx context.Context, id uint, from, to models.ListingStatus, extra map[string]any) (bool, error)
	SoftDelete(ctx context.Context, id uint) (bool, error)
	ListPublic(ctx context.Context, filter ListingFilter, page models.PageRequest) ([]models.Listing, int64, error)
	ListByAuthor(ctx context.Context, authorID uint, publicOnly bool, page models.PageRequest) ([]models.Listing, int64, error)
	ListByStatus(ctx context.Context, status models.ListingStatus, page models.PageRequest) ([]models.Listing, int64, error)
	// ListUnswept returns deleted listings that still have likes, favorites,
	// comments or untombstoned purchases. limit < 0 means no limit.
	ListUnswept(ctx context.Context, limit int) ([]uint, error)
}

type listingRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewListingRepository returns a gorm-backed ListingRepository.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db, log: observability.NewRepoLogger("listings")}
}

func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"listing_id": listing.ID, "author_id": listing.AuthorID})
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, id).Error; err != nil {
		return nil, wrapLookup(err, "Listing", id)
	}
	return &listing, nil
}

func (r *listingRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.Listing, error) {
	out := make(map[uint]*models.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var listings []models.Listing
	if err := r.db.WithContext(ctx).Omit("content").Where("id IN ?", ids).Find(&listings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range listings {
		out[listings[i].ID] = &listings[i]
	}
	return out, nil
}

func (r *listingRepository) UpdateContent(ctx context.Context, listing *models.Listing) error {
	err := r.db.WithContext(ctx).Model(&models.Listing{ID: listing.ID}).
		Select("title", "description", "content", "category", "ai_model", "price").
		Updates(listing).Error
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}
	r.log.LogUpdate(ctx, map[string]any{"listing_id": listing.ID})
	return nil
}

func (r *listingRepository) Transition(ctx context.Context, id uint, from, to models.ListingStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{
		"status":    to,
		"is_public": models.VisibilityFor(to),
	}
	for k, v := range extra {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "transition")
		return false, models.NewInternalError(res.Error)
	}
	r.log.LogUpdate(ctx, map[string]any{"listing_id": id, "from": from, "to": to, "rows": res.RowsAffected})
	return res.RowsAffected == 1, nil
}

func (r *listingRepository) SoftDelete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Listing{}, id)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return false, models.NewInternalError(res.Error)
	}
	r.log.LogDelete(ctx, map[string]any{"listing_id": id})
	return res.RowsAffected > 0, nil
}

func applyListingSort(q *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case SortTop:
		return q.Order("likes_count DESC").Order("created_at DESC").Order("id DESC")
	case SortPopular:
		return q.Order("sales DESC").Order("views_count DESC").Order("id DESC")
	default:
		return q.Order("created_at DESC").Order("id DESC")
	}
}

func (r *listingRepository) page(base *gorm.DB, sort string, page models.PageRequest) ([]models.Listing, int64, error) {
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	listings := make([]models.Listing, 0, page.Limit)
	q := applyListingSort(base.Session(&gorm.Session{}).Omit("content"), sort)
	if err := q.Limit(page.Limit).Offset(page.Offset()).Find(&listings).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return listings, total, nil
}

func (r *listingRepository) ListPublic(ctx context.Context, filter ListingFilter, page models.PageRequest) ([]models.Listing, int64, error) {
	defer observability.TrackQuery("list_public", "listings")()

	base := r.db.WithContext(ctx).Model(&models.Listing{}).Where("is_public = ?", true)
	if filter.Category != "" {
		base = base.Where("category = ?", filter.Category)
	}
	return r.page(base, filter.Sort, page)
}

func (r *listingRepository) ListByAuthor(ctx context.Context, authorID uint, publicOnly bool, page models.PageRequest) ([]models.Listing, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Listing{}).Where("author_id = ?", authorID)
	if publicOnly {
		base = base.Where("is_public = ?", true)
	}
	return r.page(base, SortNew, page)
}

func (r *listingRepository) ListByStatus(ctx context.Context, status models.ListingStatus, page models.PageRequest) ([]models.Listing, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Listing{}).Where("status = ?", status)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	listings := make([]models.Listing, 0, page.Limit)
	if err := base.Session(&gorm.Session{}).
		Order("created_at ASC").Order("id ASC").
		Limit(page.Limit).Offset(page.Offset()).
		Find(&listings).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return listings, total, nil
}

const unsweptDependents = `(
	EXISTS (SELECT 1 FROM likes WHERE likes.listing_id = listings.id)
	OR EXISTS (SELECT 1 FROM favorites WHERE favorites.listing_id = listings.id)
	OR EXISTS (SELECT 1 FROM comments WHERE comments.listing_id = listings.id AND comments.deleted_at IS NULL)
	OR EXISTS (SELECT 1 FROM purchases WHERE purchases.listing_id = listings.id AND purchases.deleted_at IS NULL)
)`

func (r *listingRepository) ListUnswept(ctx context.Context, limit int) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Listing{}).
		Where("listings.deleted_at IS NOT NULL").
		Where(unsweptDependents).
		Order("listings.id ASC").
		Limit(limit).
		Pluck("listings.id", &ids).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_unswept")
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// ModerationStamp is the extra column set written with an admin decision.
func ModerationStamp(adminID uint, reason string, at time.Time) map[string]any {
	return map[string]any{
		"moderated_by":     adminID,
		"moderated_at":     at,
		"rejection_reason": reason,
	}
}
