package service

import (
	"context"

	"promptmart/internal/cache"
	"promptmart/internal/observability"
	"promptmart/internal/repository"

	"github.com/shopspring/decimal"
)

// CounterService applies the denormalized counter delta that follows every
// relation write. A failed delta never fails the request: the relation row is
// the ground truth, so the entity is logged as INCONSISTENT and queued for
// reconciliation instead.
type CounterService struct {
	counters repository.CounterRepository
	dirty    *cache.DirtySet
}

// NewCounterService returns a CounterService. dirty may be nil.
func NewCounterService(counters repository.CounterRepository, dirty *cache.DirtySet) *CounterService {
	return &CounterService{counters: counters, dirty: dirty}
}

func (s *CounterService) apply(ctx context.Context, entity repository.Entity, id uint, deltas map[string]any) {
	err := s.counters.Apply(ctx, entity, id, deltas)
	if err == nil {
		return
	}

	for col, delta := range deltas {
		observability.LogInconsistent(ctx, string(entity), id, col, delta, err)
		observability.CounterDeltaFailures.WithLabelValues(string(entity), col).Inc()
	}
	if markErr := s.dirty.Mark(ctx, string(entity), id); markErr != nil {
		observability.LogAsyncOperationError(ctx, "counters.mark_dirty", markErr, map[string]any{
			"entity": string(entity),
			"id":     id,
		})
	}
}

// Followed adjusts both ends of a follow edge by sign (+1 or -1).
func (s *CounterService) Followed(ctx context.Context, followerID, followeeID uint, sign int64) {
	s.apply(ctx, repository.EntityUser, followerID, map[string]any{"following_count": sign})
	s.apply(ctx, repository.EntityUser, followeeID, map[string]any{"followers_count": sign})
}

func (s *CounterService) Liked(ctx context.Context, listingID uint, sign int64) {
	s.apply(ctx, repository.EntityListing, listingID, map[string]any{"likes_count": sign})
}

func (s *CounterService) Commented(ctx context.Context, listingID uint, sign int64) {
	s.apply(ctx, repository.EntityListing, listingID, map[string]any{"comments_count": sign})
}

// Sold records one completed sale of amount. Both columns move in one UPDATE.
func (s *CounterService) Sold(ctx context.Context, listingID uint, amount decimal.Decimal) {
	s.apply(ctx, repository.EntityListing, listingID, map[string]any{
		"sales":    int64(1),
		"earnings": amount,
	})
}

func (s *CounterService) Viewed(ctx context.Context, listingID uint) {
	s.apply(ctx, repository.EntityListing, listingID, map[string]any{"views_count": int64(1)})
}
