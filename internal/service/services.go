package service

import (
	"fmt"
	"time"

	"promptmart/internal/cache"
	"promptmart/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options tunes the wiring done by NewServices.
type Options struct {
	ListingCacheTTL   time.Duration
	CascadeMaxElapsed time.Duration
	SnowflakeNode     int64
}

// Services is the full service graph over one database. The HTTP server,
// promptctl and the seeder all build theirs through NewServices.
type Services struct {
	Pages *cache.ListingPages
	Dirty *cache.DirtySet

	Users         *UserService
	Relationships *RelationshipService
	Comments      *CommentService
	Entitlements  *EntitlementService
	Listings      *ListingService
	Moderation    *ModerationService
	Reconcile     *ReconcileService
}

// NewServices wires repositories and services. rdb may be nil, which disables
// the listing page cache and dirty tracking.
func NewServices(db *gorm.DB, rdb redis.Cmdable, opts Options) (*Services, error) {
	settler, err := NewSimulatedSettler(opts.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("settlement setup failed: %w", err)
	}

	users := repository.NewUserRepository(db)
	listings := repository.NewListingRepository(db)
	edges := repository.NewEdgeRepository(db)
	comments := repository.NewCommentRepository(db)
	purchases := repository.NewPurchaseRepository(db)
	counterRepo := repository.NewCounterRepository(db)

	s := &Services{
		Pages: cache.NewListingPages(rdb, opts.ListingCacheTTL),
		Dirty: cache.NewDirtySet(rdb),
	}

	read := NewReadModel(users)
	counters := NewCounterService(counterRepo, s.Dirty)

	s.Users = NewUserService(users)
	s.Relationships = NewRelationshipService(edges, users, listings, counters, read)
	s.Comments = NewCommentService(comments, listings, counters, read)
	s.Entitlements = NewEntitlementService(purchases, listings, counters, settler)
	s.Moderation = NewModerationService(listings, s.Pages, read)
	cascade := NewCascadeService(listings, edges, comments, purchases, s.Dirty, opts.CascadeMaxElapsed)

	s.Listings = NewListingService(ListingServiceDeps{
		Listings:  listings,
		Users:     users,
		Purchases: purchases,
		Counters:  counters,
		Cascade:   cascade,
		Pages:     s.Pages,
		Read:      read,
	})
	s.Reconcile = NewReconcileService(counterRepo, s.Dirty, cascade)
	return s, nil
}
