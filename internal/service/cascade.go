package service

import (
	"context"
	"log/slog"
	"time"

	"promptmart/internal/cache"
	"promptmart/internal/models"
	"promptmart/internal/observability"
	"promptmart/internal/repository"

	"github.com/cenkalti/backoff/v4"
)

// EntityListingCascade is the dirty-set entity for deleted listings whose
// dependent sweep gave up before finishing.
const EntityListingCascade = "listing_cascade"

// CascadeService removes what hangs off a deleted listing: likes and
// favorites are deleted, comments soft-deleted and purchases tombstoned.
type CascadeService struct {
	listings  repository.ListingRepository
	edges     repository.EdgeRepository
	comments  repository.CommentRepository
	purchases repository.PurchaseRepository
	pending   *cache.DirtySet

	// maxElapsed bounds Run's retries. Zero retries forever.
	maxElapsed time.Duration
}

// NewCascadeService returns a CascadeService. pending may be nil; unfinished
// sweeps are then only found by the full reconcile scan.
func NewCascadeService(
	listings repository.ListingRepository,
	edges repository.EdgeRepository,
	comments repository.CommentRepository,
	purchases repository.PurchaseRepository,
	pending *cache.DirtySet,
	maxElapsed time.Duration,
) *CascadeService {
	return &CascadeService{
		listings:   listings,
		edges:      edges,
		comments:   comments,
		purchases:  purchases,
		pending:    pending,
		maxElapsed: maxElapsed,
	}
}

// Sweep makes one pass over the listing's dependents. Every step is
// idempotent, so a pass can be repeated after a partial failure.
func (s *CascadeService) Sweep(ctx context.Context, listingID uint) error {
	if _, err := s.edges.DeleteByTarget(ctx, models.EdgeLike, listingID); err != nil {
		return err
	}
	if _, err := s.edges.DeleteByTarget(ctx, models.EdgeFavorite, listingID); err != nil {
		return err
	}
	if _, err := s.comments.SoftDeleteByListing(ctx, listingID); err != nil {
		return err
	}
	if _, err := s.purchases.TombstoneByListing(ctx, listingID); err != nil {
		return err
	}
	return nil
}

// Run sweeps with exponential backoff. When the retries give up the listing
// is queued for the next reconcile run and the last error is returned.
func (s *CascadeService) Run(ctx context.Context, listingID uint) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = s.maxElapsed

	attempt := 0
	sweep := func() error {
		attempt++
		return s.Sweep(ctx, listingID)
	}
	notify := func(err error, wait time.Duration) {
		observability.GlobalLogger.WarnContext(ctx, "listing cascade retry",
			slog.Uint64("listing_id", uint64(listingID)),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	err := backoff.RetryNotify(sweep, backoff.WithContext(b, ctx), notify)
	if err == nil {
		return nil
	}
	observability.LogAsyncOperationError(ctx, "listings.cascade_delete", err, map[string]any{
		"listing_id": listingID,
		"attempts":   attempt,
	})
	if markErr := s.pending.Mark(ctx, EntityListingCascade, listingID); markErr != nil {
		observability.LogAsyncOperationError(ctx, "listings.cascade_queue", markErr, map[string]any{"listing_id": listingID})
	}
	return err
}

// Unswept lists deleted listings that still have live dependents.
func (s *CascadeService) Unswept(ctx context.Context) ([]uint, error) {
	return s.listings.ListUnswept(ctx, -1)
}

// PopPending takes up to n queued listing ids.
func (s *CascadeService) PopPending(ctx context.Context, n int64) ([]uint, error) {
	return s.pending.Pop(ctx, EntityListingCascade, n)
}

// SweepAll makes one pass per listing. Listings that fail again are
// re-queued and returned.
func (s *CascadeService) SweepAll(ctx context.Context, ids []uint) (swept, failed []uint) {
	for _, id := range ids {
		if err := s.Sweep(ctx, id); err != nil {
			observability.LogAsyncOperationError(ctx, "reconcile.cascade_sweep", err, map[string]any{"listing_id": id})
			if markErr := s.pending.Mark(ctx, EntityListingCascade, id); markErr != nil {
				observability.LogAsyncOperationError(ctx, "reconcile.requeue", markErr, map[string]any{"listing_id": id})
			}
			failed = append(failed, id)
			continue
		}
		swept = append(swept, id)
	}
	return swept, failed
}
