package service

import (
	"context"
	"testing"
	"time"

	"promptmart/internal/cache"
	"promptmart/internal/models"
	"promptmart/internal/repository"
	"promptmart/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type harness struct {
	db  *gorm.DB
	mr  *miniredis.Miniredis
	rdb *redis.Client

	repos struct {
		edges     repository.EdgeRepository
		comments  repository.CommentRepository
		purchases repository.PurchaseRepository
		listings  repository.ListingRepository
		users     repository.UserRepository
		counters  repository.CounterRepository
	}

	dirty             *cache.DirtySet
	cascadeMaxElapsed time.Duration

	counters      *CounterService
	cascade       *CascadeService
	relationships *RelationshipService
	comments      *CommentService
	entitlements  *EntitlementService
	moderation    *ModerationService
	listings      *ListingService
	reconcile     *ReconcileService
	users         *UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{db: testutil.NewTestDB(t), mr: miniredis.RunT(t)}
	h.rdb = redis.NewClient(&redis.Options{Addr: h.mr.Addr()})
	t.Cleanup(func() { _ = h.rdb.Close() })

	h.repos.edges = repository.NewEdgeRepository(h.db)
	h.repos.comments = repository.NewCommentRepository(h.db)
	h.repos.purchases = repository.NewPurchaseRepository(h.db)
	h.repos.listings = repository.NewListingRepository(h.db)
	h.repos.users = repository.NewUserRepository(h.db)
	h.repos.counters = repository.NewCounterRepository(h.db)

	h.dirty = cache.NewDirtySet(h.rdb)
	h.cascadeMaxElapsed = time.Second
	h.wire(t, h.repos.counters)
	return h
}

// wire builds the services around counters so tests can swap in a failing one.
// Other repositories are swapped through h.repos before calling it.
func (h *harness) wire(t *testing.T, counters repository.CounterRepository) {
	t.Helper()

	settler, err := NewSimulatedSettler(1)
	require.NoError(t, err)

	read := NewReadModel(h.repos.users)
	pages := cache.NewListingPages(h.rdb, time.Minute)

	h.counters = NewCounterService(counters, h.dirty)
	h.relationships = NewRelationshipService(h.repos.edges, h.repos.users, h.repos.listings, h.counters, read)
	h.comments = NewCommentService(h.repos.comments, h.repos.listings, h.counters, read)
	h.entitlements = NewEntitlementService(h.repos.purchases, h.repos.listings, h.counters, settler)
	h.moderation = NewModerationService(h.repos.listings, pages, read)
	h.cascade = NewCascadeService(h.repos.listings, h.repos.edges, h.repos.comments, h.repos.purchases, h.dirty, h.cascadeMaxElapsed)
	h.listings = NewListingService(ListingServiceDeps{
		Listings:  h.repos.listings,
		Users:     h.repos.users,
		Purchases: h.repos.purchases,
		Counters:  h.counters,
		Cascade:   h.cascade,
		Pages:     pages,
		Read:      read,
	})
	h.reconcile = NewReconcileService(h.repos.counters, h.dirty, h.cascade)
	h.users = NewUserService(h.repos.users)
}

func (h *harness) user(t *testing.T, name string) *models.User {
	return testutil.CreateUser(t, h.db, name, models.RoleUser)
}

func (h *harness) admin(t *testing.T, name string) *models.User {
	return testutil.CreateUser(t, h.db, name, models.RoleAdmin)
}

func (h *harness) listing(t *testing.T, author *models.User, opts testutil.ListingOpts) *models.Listing {
	return testutil.CreateListing(t, h.db, author, opts)
}

func as(u *models.User) models.Principal {
	return models.PrincipalFor(u)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := models.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, appErr.Message)
}

var bg = context.Background()

func pageOf(n, limit int) models.PageRequest {
	return models.NewPageRequest(n, limit)
}
