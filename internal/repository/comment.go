package repository

import (
	"context"

	"promptmart/internal/models"
	"promptmart/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByListing(ctx context.Context, listingID uint, page models.PageRequest) ([]models.Comment, int64, error)
	// SoftDelete reports whether this call performed the delete.
	SoftDelete(ctx context.Context, id uint) (bool, error)
	SoftDeleteByListing(ctx context.Context, listingID uint) (int64, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"comment_id": comment.ID, "listing_id": comment.ListingID})
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, wrapLookup(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) ListByListing(ctx context.Context, listingID uint, page models.PageRequest) ([]models.Comment, int64, error) {
	defer observability.TrackQuery("list", "comments")()

	base := r.db.WithContext(ctx).Model(&models.Comment{}).Where("listing_id = ?", listingID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	comments := make([]models.Comment, 0, page.Limit)
	if err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&comments).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

func (r *commentRepository) SoftDelete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return false, models.NewInternalError(res.Error)
	}
	r.log.LogDelete(ctx, map[string]any{"comment_id": id})
	return res.RowsAffected > 0, nil
}

func (r *commentRepository) SoftDeleteByListing(ctx context.Context, listingID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("listing_id = ?", listingID).Delete(&models.Comment{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
