package service

import (
	"context"

	"promptmart/internal/access"
	"promptmart/internal/models"
	"promptmart/internal/observability"
	"promptmart/internal/repository"
)

// FollowStatus describes the follow edges between the caller and another user.
type FollowStatus struct {
	Following  bool `json:"following"`
	FollowedBy bool `json:"followed_by"`
}

// RelationshipService owns follow, like and favorite edges.
type RelationshipService struct {
	edges    repository.EdgeRepository
	users    repository.UserRepository
	listings repository.ListingRepository
	counters *CounterService
	read     *ReadModel
}

// NewRelationshipService returns a new RelationshipService.
func NewRelationshipService(
	edges repository.EdgeRepository,
	users repository.UserRepository,
	listings repository.ListingRepository,
	counters *CounterService,
	read *ReadModel,
) *RelationshipService {
	return &RelationshipService{
		edges:    edges,
		users:    users,
		listings: listings,
		counters: counters,
		read:     read,
	}
}

// checkTarget resolves the edge target and applies the view gate to listings.
func (s *RelationshipService) checkTarget(ctx context.Context, p models.Principal, kind models.EdgeKind, targetID uint) error {
	if kind.TargetsUser() {
		if _, err := s.users.GetByID(ctx, targetID); err != nil {
			return err
		}
		if targetID == p.UserID {
			return models.NewInvalidOperationError("You cannot follow yourself")
		}
		return nil
	}

	listing, err := s.listings.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	return access.Decide(p, listing, access.View, nil).Err()
}

// ToggleEdge removes the caller's edge to targetID if one exists, otherwise
// creates it. Once the write starts it runs to completion even if the client
// goes away, so the matching counter delta is never skipped.
func (s *RelationshipService) ToggleEdge(ctx context.Context, p models.Principal, kind models.EdgeKind, targetID uint) (result *models.ToggleResult, err error) {
	ctx, done := observability.StartServiceSpan(ctx, "relationships", "ToggleEdge")
	defer func() { done(err) }()

	if !p.Authenticated() {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	if !kind.Valid() {
		return nil, models.NewValidationError("unknown relationship kind")
	}
	if err := s.checkTarget(ctx, p, kind, targetID); err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)

	removed, err := s.edges.Delete(detached, kind, p.UserID, targetID)
	if err != nil {
		return nil, err
	}
	if removed {
		s.applyDelta(detached, kind, p.UserID, targetID, -1)
		observability.EdgeToggles.WithLabelValues(string(kind), "removed").Inc()
		return &models.ToggleResult{Created: false, Count: s.storedCount(detached, kind, targetID)}, nil
	}

	if err := s.edges.Insert(detached, kind, p.UserID, targetID); err != nil {
		if models.HasCode(err, models.CodeConflict) {
			observability.EdgeToggles.WithLabelValues(string(kind), "conflict").Inc()
		}
		return nil, err
	}
	s.applyDelta(detached, kind, p.UserID, targetID, 1)
	observability.EdgeToggles.WithLabelValues(string(kind), "created").Inc()
	return &models.ToggleResult{Created: true, Count: s.storedCount(detached, kind, targetID)}, nil
}

func (s *RelationshipService) applyDelta(ctx context.Context, kind models.EdgeKind, sourceID, targetID uint, sign int64) {
	switch kind {
	case models.EdgeFollow:
		s.counters.Followed(ctx, sourceID, targetID, sign)
	case models.EdgeLike:
		s.counters.Liked(ctx, targetID, sign)
	}
}

// storedCount reads the denormalized counter of the target after a toggle.
// Favorites carry no counter.
func (s *RelationshipService) storedCount(ctx context.Context, kind models.EdgeKind, targetID uint) int64 {
	switch kind {
	case models.EdgeFollow:
		if u, err := s.users.GetByID(ctx, targetID); err == nil {
			return u.FollowersCount
		}
	case models.EdgeLike:
		if l, err := s.listings.GetByID(ctx, targetID); err == nil {
			return l.LikesCount
		}
	}
	return 0
}

// EdgeExists reports whether sourceID has a kind edge to targetID.
func (s *RelationshipService) EdgeExists(ctx context.Context, kind models.EdgeKind, sourceID, targetID uint) (bool, error) {
	return s.edges.Exists(ctx, kind, sourceID, targetID)
}

// EdgeStatuses returns the caller's like and favorite state for each listing.
// Anonymous callers get all-false entries.
func (s *RelationshipService) EdgeStatuses(ctx context.Context, p models.Principal, listingIDs []uint) (map[uint]models.EdgeStatus, error) {
	if len(listingIDs) > models.MaxPageLimit {
		return nil, models.NewValidationError("too many listing ids")
	}
	out := make(map[uint]models.EdgeStatus, len(listingIDs))
	for _, id := range listingIDs {
		out[id] = models.EdgeStatus{}
	}
	if !p.Authenticated() || len(listingIDs) == 0 {
		return out, nil
	}

	liked, err := s.edges.Statuses(ctx, models.EdgeLike, p.UserID, listingIDs)
	if err != nil {
		return nil, err
	}
	favorited, err := s.edges.Statuses(ctx, models.EdgeFavorite, p.UserID, listingIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range listingIDs {
		out[id] = models.EdgeStatus{Liked: liked[id], Favorited: favorited[id]}
	}
	return out, nil
}

// GetFollowStatus reports follow edges in both directions between the caller and userID.
func (s *RelationshipService) GetFollowStatus(ctx context.Context, p models.Principal, userID uint) (*FollowStatus, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if !p.Authenticated() || p.UserID == userID {
		return &FollowStatus{}, nil
	}

	following, err := s.edges.Exists(ctx, models.EdgeFollow, p.UserID, userID)
	if err != nil {
		return nil, err
	}
	followedBy, err := s.edges.Exists(ctx, models.EdgeFollow, userID, p.UserID)
	if err != nil {
		return nil, err
	}
	return &FollowStatus{Following: following, FollowedBy: followedBy}, nil
}

func (s *RelationshipService) listUsers(ctx context.Context, userID uint, dir models.EdgeDirection, page models.PageRequest) (*models.Page[models.EdgeView], error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	edges, total, err := s.edges.List(ctx, models.EdgeFollow, userID, dir, page)
	if err != nil {
		return nil, err
	}

	end := edgeTarget
	if dir == models.Incoming {
		end = edgeSource
	}
	views, err := s.read.EdgeViews(ctx, edges, end)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.EdgeView]{Items: views, Pagination: models.NewPagination(page, total)}, nil
}

// ListFollowers returns users following userID, newest first.
func (s *RelationshipService) ListFollowers(ctx context.Context, userID uint, page models.PageRequest) (*models.Page[models.EdgeView], error) {
	return s.listUsers(ctx, userID, models.Incoming, page)
}

// ListFollowing returns users userID follows, newest first.
func (s *RelationshipService) ListFollowing(ctx context.Context, userID uint, page models.PageRequest) (*models.Page[models.EdgeView], error) {
	return s.listUsers(ctx, userID, models.Outgoing, page)
}

// ListListingLikes returns the users who liked a listing the caller can see.
func (s *RelationshipService) ListListingLikes(ctx context.Context, p models.Principal, listingID uint, page models.PageRequest) (*models.Page[models.EdgeView], error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := access.Decide(p, listing, access.View, nil).Err(); err != nil {
		return nil, err
	}

	edges, total, err := s.edges.List(ctx, models.EdgeLike, listingID, models.Incoming, page)
	if err != nil {
		return nil, err
	}
	views, err := s.read.EdgeViews(ctx, edges, edgeSource)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.EdgeView]{Items: views, Pagination: models.NewPagination(page, total)}, nil
}

// ListMyListings returns the listings the caller liked or favorited, newest
// edge first. Listings deleted since, or no longer visible, are not counted.
func (s *RelationshipService) ListMyListings(ctx context.Context, p models.Principal, kind models.EdgeKind, page models.PageRequest) (*models.Page[models.Listing], error) {
	if !p.Authenticated() {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	if kind != models.EdgeLike && kind != models.EdgeFavorite {
		return nil, models.NewValidationError("unknown relationship kind")
	}

	items, total, err := s.edges.ListTargetListings(ctx, kind, p.UserID, p.IsAdmin(), page)
	if err != nil {
		return nil, err
	}
	if err := s.read.AttachListingAuthors(ctx, items); err != nil {
		return nil, err
	}
	return &models.Page[models.Listing]{Items: items, Pagination: models.NewPagination(page, total)}, nil
}
