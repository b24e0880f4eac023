package repository

import (
	"context"
	"errors"
	"time"

	"promptmart/internal/models"
	"promptmart/internal/observability"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseRepository persists entitlement records. Status changes are
// conditional UPDATEs so concurrent settlements cannot complete a record twice.
type PurchaseRepository interface {
	Create(ctx context.Context, p *models.Purchase) error
	GetByID(ctx context.Context, id uint) (*models.Purchase, error)
	// Find returns the buyer's live record for the listing, or nil when none exists.
	Find(ctx context.Context, buyerID, listingID uint) (*models.Purchase, error)
	// Restart moves a pending or failed record back to pending with a fresh amount.
	Restart(ctx context.Context, id uint, amount decimal.Decimal) (bool, error)
	// Complete flips a non-completed record to completed. It reports false when
	// the record was already completed.
	Complete(ctx context.Context, id uint, amount decimal.Decimal, reference string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uint) error
	RecordDownload(ctx context.Context, id uint, at time.Time) (bool, error)
	ListCompletedByBuyer(ctx context.Context, buyerID uint, page models.PageRequest) ([]models.Purchase, int64, error)
	ListCompletedByAuthor(ctx context.Context, authorID uint, page models.PageRequest) ([]models.Purchase, int64, error)
	TombstoneByListing(ctx context.Context, listingID uint) (int64, error)
}

type purchaseRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPurchaseRepository returns a gorm-backed PurchaseRepository.
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db, log: observability.NewRepoLogger("purchases")}
}

func (r *purchaseRepository) Create(ctx context.Context, p *models.Purchase) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if !IsUniqueViolation(err) {
			r.log.LogError(ctx, err, "create")
		}
		return wrapWrite(err, "purchase")
	}
	r.log.LogCreate(ctx, map[string]any{"purchase_id": p.ID, "buyer_id": p.BuyerID, "listing_id": p.ListingID})
	return nil
}

func (r *purchaseRepository) GetByID(ctx context.Context, id uint) (*models.Purchase, error) {
	var p models.Purchase
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, wrapLookup(err, "Purchase", id)
	}
	return &p, nil
}

func (r *purchaseRepository) Find(ctx context.Context, buyerID, listingID uint) (*models.Purchase, error) {
	if buyerID == 0 {
		return nil, nil
	}
	var p models.Purchase
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND listing_id = ?", buyerID, listingID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &p, nil
}

func (r *purchaseRepository) Restart(ctx context.Context, id uint, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status IN ?", id, []models.PurchaseStatus{models.PurchasePending, models.PurchaseFailed}).
		Updates(map[string]any{"status": models.PurchasePending, "amount": amount})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *purchaseRepository) Complete(ctx context.Context, id uint, amount decimal.Decimal, reference string, at time.Time) (bool, error) {
	defer observability.TrackQuery("complete", "purchases")()

	res := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status <> ?", id, models.PurchaseCompleted).
		Updates(map[string]any{
			"status":            models.PurchaseCompleted,
			"amount":            amount,
			"payment_reference": reference,
			"completed_at":      at,
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "complete")
		return false, models.NewInternalError(res.Error)
	}
	r.log.LogUpdate(ctx, map[string]any{"purchase_id": id, "status": models.PurchaseCompleted, "rows": res.RowsAffected})
	return res.RowsAffected == 1, nil
}

func (r *purchaseRepository) MarkFailed(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status <> ?", id, models.PurchaseCompleted).
		Update("status", models.PurchaseFailed).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *purchaseRepository) RecordDownload(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status = ?", id, models.PurchaseCompleted).
		UpdateColumns(map[string]any{
			"download_count":     gorm.Expr("download_count + ?", 1),
			"last_downloaded_at": at,
		})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// liveCompleted selects completed purchases whose listing is still alive.
func (r *purchaseRepository) liveCompleted(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Purchase{}).
		Joins("JOIN listings ON listings.id = purchases.listing_id AND listings.deleted_at IS NULL").
		Where("purchases.status = ?", models.PurchaseCompleted)
}

func (r *purchaseRepository) listCompleted(base *gorm.DB, page models.PageRequest) ([]models.Purchase, int64, error) {
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	purchases := make([]models.Purchase, 0, page.Limit)
	if err := base.Session(&gorm.Session{}).
		Select("purchases.*").
		Order("purchases.completed_at DESC, purchases.id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&purchases).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return purchases, total, nil
}

func (r *purchaseRepository) ListCompletedByBuyer(ctx context.Context, buyerID uint, page models.PageRequest) ([]models.Purchase, int64, error) {
	return r.listCompleted(r.liveCompleted(ctx).Where("purchases.buyer_id = ?", buyerID), page)
}

func (r *purchaseRepository) ListCompletedByAuthor(ctx context.Context, authorID uint, page models.PageRequest) ([]models.Purchase, int64, error) {
	return r.listCompleted(r.liveCompleted(ctx).Where("listings.author_id = ?", authorID), page)
}

func (r *purchaseRepository) TombstoneByListing(ctx context.Context, listingID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("listing_id = ?", listingID).Delete(&models.Purchase{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
