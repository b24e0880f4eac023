package repository

import (
	"context"
	"fmt"

	"promptmart/internal/models"
	"promptmart/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// edgeTable describes where one edge kind lives.
type edgeTable struct {
	table     string
	sourceCol string
	targetCol string
	newRow    func(src, tgt uint) any
	model     any
}

var edgeTables = map[models.EdgeKind]edgeTable{
	models.EdgeFollow: {
		table: "follows", sourceCol: "follower_id", targetCol: "following_id",
		newRow: func(src, tgt uint) any { return &models.Follow{FollowerID: src, FollowingID: tgt} },
		model:  &models.Follow{},
	},
	models.EdgeLike: {
		table: "likes", sourceCol: "user_id", targetCol: "listing_id",
		newRow: func(src, tgt uint) any { return &models.Like{UserID: src, ListingID: tgt} },
		model:  &models.Like{},
	},
	models.EdgeFavorite: {
		table: "favorites", sourceCol: "user_id", targetCol: "listing_id",
		newRow: func(src, tgt uint) any { return &models.Favorite{UserID: src, ListingID: tgt} },
		model:  &models.Favorite{},
	},
}

func tableFor(kind models.EdgeKind) (edgeTable, error) {
	t, ok := edgeTables[kind]
	if !ok {
		return edgeTable{}, models.NewValidationError(fmt.Sprintf("unknown relationship kind %q", kind))
	}
	return t, nil
}

// EdgeRepository stores directed follow/like/favorite edges. The unique
// (source, target) index per table is the final arbiter of existence.
type EdgeRepository interface {
	// Insert adds the edge. An existing edge yields a Conflict error.
	Insert(ctx context.Context, kind models.EdgeKind, sourceID, targetID uint) error
	// Delete removes the edge and reports whether a row was removed.
	Delete(ctx context.Context, kind models.EdgeKind, sourceID, targetID uint) (bool, error)
	Exists(ctx context.Context, kind models.EdgeKind, sourceID, targetID uint) (bool, error)
	// Statuses returns the subset of targetIDs that sourceID has an edge to.
	Statuses(ctx context.Context, kind models.EdgeKind, sourceID uint, targetIDs []uint) (map[uint]bool, error)
	List(ctx context.Context, kind models.EdgeKind, anchorID uint, dir models.EdgeDirection, page models.PageRequest) ([]models.Edge, int64, error)
	// ListTargetListings pages the live listings sourceID liked or favorited,
	// newest edge first. Unless includeHidden is set only public listings and
	// sourceID's own are returned. Content is not loaded.
	ListTargetListings(ctx context.Context, kind models.EdgeKind, sourceID uint, includeHidden bool, page models.PageRequest) ([]models.Listing, int64, error)
	// DeleteByTarget removes every edge pointing at targetID.
	DeleteByTarget(ctx context.Context, kind models.EdgeKind, targetID uint) (int64, error)
}

type edgeRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewEdgeRepository returns a gorm-backed EdgeRepository.
func NewEdgeRepository(db *gorm.DB) EdgeRepository {
	return &edgeRepository{db: db, log: observability.NewRepoLogger("edges")}
}

func (r *edgeRepository) Insert(ctx context.Context, kind models.EdgeKind, sourceID, targetID uint) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	defer observability.TrackQuery("insert", t.table)()

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(t.newRow(sourceID, targetID))
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return models.NewConflictError("already exists")
		}
		r.log.LogError(ctx, res.Error, "insert")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewConflictError("already exists")
	}
	r.log.LogCreate(ctx, map[string]any{"kind": string(kind), "source_id": sourceID, "target_id": targetID})
	return nil
}

func (r *edgeRepository) Delete(ctx context.Context, kind models.EdgeKind, sourceID, targetID uint) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	defer observability.TrackQuery("delete", t.table)()

	res := r.db.WithContext(ctx).
		Where(t.sourceCol+" = ? AND "+t.targetCol+" = ?", sourceID, targetID).
		Delete(t.model)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, map[string]any{"kind": string(kind), "source_id": sourceID, "target_id": targetID})
	}
	return res.RowsAffected > 0, nil
}

func (r *edgeRepository) Exists(ctx context.Context, kind models.EdgeKind, sourceID, targetID uint) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	var count int64
	if err := r.db.WithContext(ctx).Table(t.table).
		Where(t.sourceCol+" = ? AND "+t.targetCol+" = ?", sourceID, targetID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *edgeRepository) Statuses(ctx context.Context, kind models.EdgeKind, sourceID uint, targetIDs []uint) (map[uint]bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(targetIDs))
	if len(targetIDs) == 0 || sourceID == 0 {
		return out, nil
	}

	var hits []uint
	if err := r.db.WithContext(ctx).Table(t.table).
		Where(t.sourceCol+" = ? AND "+t.targetCol+" IN ?", sourceID, targetIDs).
		Pluck(t.targetCol, &hits).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range hits {
		out[id] = true
	}
	return out, nil
}

func (r *edgeRepository) List(ctx context.Context, kind models.EdgeKind, anchorID uint, dir models.EdgeDirection, page models.PageRequest) ([]models.Edge, int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, 0, err
	}
	anchorCol := t.sourceCol
	if dir == models.Incoming {
		anchorCol = t.targetCol
	}
	defer observability.TrackQuery("list", t.table)()

	base := r.db.WithContext(ctx).Table(t.table).Where(anchorCol+" = ?", anchorID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	edges := make([]models.Edge, 0, page.Limit)
	err = base.Session(&gorm.Session{}).
		Select(fmt.Sprintf("id, %s AS source_id, %s AS target_id, created_at", t.sourceCol, t.targetCol)).
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Scan(&edges).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return edges, total, nil
}

func (r *edgeRepository) ListTargetListings(ctx context.Context, kind models.EdgeKind, sourceID uint, includeHidden bool, page models.PageRequest) ([]models.Listing, int64, error) {
	if kind != models.EdgeLike && kind != models.EdgeFavorite {
		return nil, 0, models.NewValidationError(fmt.Sprintf("%s edges do not target listings", kind))
	}
	t, err := tableFor(kind)
	if err != nil {
		return nil, 0, err
	}
	defer observability.TrackQuery("list_targets", t.table)()

	base := r.db.WithContext(ctx).Model(&models.Listing{}).
		Joins(fmt.Sprintf("JOIN %s e ON e.%s = listings.id AND e.%s = ?", t.table, t.targetCol, t.sourceCol), sourceID)
	if !includeHidden {
		base = base.Where("(listings.is_public = ? OR listings.author_id = ?)", true, sourceID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	listings := make([]models.Listing, 0, page.Limit)
	err = base.Session(&gorm.Session{}).
		Select("listings.*").
		Order("e.created_at DESC, e.id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&listings).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	for i := range listings {
		listings[i].Content = ""
	}
	return listings, total, nil
}

func (r *edgeRepository) DeleteByTarget(ctx context.Context, kind models.EdgeKind, targetID uint) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Where(t.targetCol+" = ?", targetID).Delete(t.model)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
