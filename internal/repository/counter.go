package repository

import (
	"context"
	"fmt"

	"promptmart/internal/models"
	"promptmart/internal/observability"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Entity names a table that carries denormalized counters.
type Entity string

const (
	EntityListing Entity = "listing"
	EntityUser    Entity = "user"
)

var counterTables = map[Entity]struct {
	table   string
	columns map[string]bool
}{
	EntityListing: {table: "listings", columns: map[string]bool{
		"likes_count": true, "comments_count": true, "sales": true, "earnings": true, "views_count": true,
	}},
	EntityUser: {table: "users", columns: map[string]bool{
		"followers_count": true, "following_count": true,
	}},
}

// Ground-truth subqueries, shared by drift reports and repairs.
const (
	likesTruth     = "(SELECT COUNT(*) FROM likes WHERE likes.listing_id = listings.id)"
	commentsTruth  = "(SELECT COUNT(*) FROM comments WHERE comments.listing_id = listings.id AND comments.deleted_at IS NULL)"
	salesTruth     = "(SELECT COUNT(*) FROM purchases WHERE purchases.listing_id = listings.id AND purchases.status = 'completed' AND purchases.deleted_at IS NULL)"
	earningsTruth  = "(SELECT COALESCE(SUM(purchases.amount), 0) FROM purchases WHERE purchases.listing_id = listings.id AND purchases.status = 'completed' AND purchases.deleted_at IS NULL)"
	followersTruth = "(SELECT COUNT(*) FROM follows WHERE follows.following_id = users.id)"
	followingTruth = "(SELECT COUNT(*) FROM follows WHERE follows.follower_id = users.id)"
)

// ListingCounts pairs stored listing counters with their recomputed values.
type ListingCounts struct {
	ID             uint
	LikesCount     int64
	ActualLikes    int64
	CommentsCount  int64
	ActualComments int64
	Sales          int64
	ActualSales    int64
	Earnings       decimal.Decimal
	ActualEarnings decimal.Decimal
}

// Drifted lists the counter columns whose stored value differs from ground truth.
func (c ListingCounts) Drifted() []string {
	var cols []string
	if c.LikesCount != c.ActualLikes {
		cols = append(cols, "likes_count")
	}
	if c.CommentsCount != c.ActualComments {
		cols = append(cols, "comments_count")
	}
	if c.Sales != c.ActualSales {
		cols = append(cols, "sales")
	}
	if !c.Earnings.Round(2).Equal(c.ActualEarnings.Round(2)) {
		cols = append(cols, "earnings")
	}
	return cols
}

// UserCounts pairs stored follow counters with their recomputed values.
type UserCounts struct {
	ID              uint
	FollowersCount  int64
	ActualFollowers int64
	FollowingCount  int64
	ActualFollowing int64
}

func (c UserCounts) Drifted() []string {
	var cols []string
	if c.FollowersCount != c.ActualFollowers {
		cols = append(cols, "followers_count")
	}
	if c.FollowingCount != c.ActualFollowing {
		cols = append(cols, "following_count")
	}
	return cols
}

// CounterRepository applies atomic counter deltas and recomputes counters
// from the relation tables.
type CounterRepository interface {
	// Apply adds each delta to its column with a single col = col + ? UPDATE.
	Apply(ctx context.Context, entity Entity, id uint, deltas map[string]any) error
	ListingCounts(ctx context.Context, ids []uint) ([]ListingCounts, error)
	UserCounts(ctx context.Context, ids []uint) ([]UserCounts, error)
	RepairListings(ctx context.Context, ids []uint) (int64, error)
	RepairUsers(ctx context.Context, ids []uint) (int64, error)
}

type counterRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCounterRepository returns a gorm-backed CounterRepository.
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db, log: observability.NewRepoLogger("counters")}
}

func (r *counterRepository) Apply(ctx context.Context, entity Entity, id uint, deltas map[string]any) error {
	spec, ok := counterTables[entity]
	if !ok {
		return models.NewValidationError(fmt.Sprintf("unknown counter entity %q", entity))
	}
	if len(deltas) == 0 {
		return nil
	}

	updates := make(map[string]any, len(deltas))
	for col, delta := range deltas {
		if !spec.columns[col] {
			return models.NewValidationError(fmt.Sprintf("%s is not a counter of %s", col, entity))
		}
		updates[col] = gorm.Expr(col+" + ?", delta)
	}

	defer observability.TrackQuery("counter_delta", spec.table)()
	res := r.db.WithContext(ctx).Table(spec.table).Where("id = ?", id).UpdateColumns(updates)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "counter_delta")
		return models.NewInternalError(res.Error)
	}
	r.log.LogUpdate(ctx, map[string]any{"entity": string(entity), "id": id, "deltas": deltas})
	return nil
}

func (r *counterRepository) ListingCounts(ctx context.Context, ids []uint) ([]ListingCounts, error) {
	q := r.db.WithContext(ctx).Table("listings").
		Select("listings.id, listings.likes_count, listings.comments_count, listings.sales, listings.earnings, " +
			likesTruth + " AS actual_likes, " +
			commentsTruth + " AS actual_comments, " +
			salesTruth + " AS actual_sales, " +
			earningsTruth + " AS actual_earnings").
		Where("listings.deleted_at IS NULL")
	if ids != nil {
		q = q.Where("listings.id IN ?", ids)
	}

	var rows []ListingCounts
	if err := q.Order("listings.id").Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *counterRepository) UserCounts(ctx context.Context, ids []uint) ([]UserCounts, error) {
	q := r.db.WithContext(ctx).Table("users").
		Select("users.id, users.followers_count, users.following_count, " +
			followersTruth + " AS actual_followers, " +
			followingTruth + " AS actual_following").
		Where("users.deleted_at IS NULL")
	if ids != nil {
		q = q.Where("users.id IN ?", ids)
	}

	var rows []UserCounts
	if err := q.Order("users.id").Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

// RepairListings rewrites every counter of ids from its subquery, so values
// reflect relation rows as of the UPDATE itself rather than the earlier report.
func (r *counterRepository) RepairListings(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Exec(
		"UPDATE listings SET likes_count = "+likesTruth+
			", comments_count = "+commentsTruth+
			", sales = "+salesTruth+
			", earnings = "+earningsTruth+
			" WHERE id IN ?", ids)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "repair_listings")
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *counterRepository) RepairUsers(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Exec(
		"UPDATE users SET followers_count = "+followersTruth+
			", following_count = "+followingTruth+
			" WHERE id IN ?", ids)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "repair_users")
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
