package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"promptmart/internal/cache"
	"promptmart/internal/observability"
	"promptmart/internal/repository"
)

// DriftRow is one stored counter that disagrees with its relation table.
type DriftRow struct {
	Entity string `json:"entity" yaml:"entity"`
	ID     uint   `json:"id" yaml:"id"`
	Column string `json:"column" yaml:"column"`
	Stored string `json:"stored" yaml:"stored"`
	Actual string `json:"actual" yaml:"actual"`
}

// ReconcileReport summarizes one reconciliation run.
type ReconcileReport struct {
	StartedAt        time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt       time.Time  `json:"finished_at" yaml:"finished_at"`
	DryRun           bool       `json:"dry_run" yaml:"dry_run"`
	ListingsScanned  int        `json:"listings_scanned" yaml:"listings_scanned"`
	UsersScanned     int        `json:"users_scanned" yaml:"users_scanned"`
	ListingsRepaired int64      `json:"listings_repaired" yaml:"listings_repaired"`
	UsersRepaired    int64      `json:"users_repaired" yaml:"users_repaired"`
	Drift            []DriftRow `json:"drift" yaml:"drift"`

	// Deleted listings whose dependents were still live. A dry run only
	// reports them.
	UnsweptListings []uint `json:"unswept_listings,omitempty" yaml:"unswept_listings,omitempty"`
	SweptListings   []uint `json:"swept_listings,omitempty" yaml:"swept_listings,omitempty"`
	SweepFailures   []uint `json:"sweep_failures,omitempty" yaml:"sweep_failures,omitempty"`
}

// Clean reports whether the run found nothing to repair.
func (r *ReconcileReport) Clean() bool {
	return len(r.Drift) == 0 && len(r.UnsweptListings) == 0 && len(r.SweepFailures) == 0
}

// reconcileScope selects what a run scans. A nil id slice with the all flag
// set means every live row. allCascades scans for deleted listings with live
// dependents; cascadeIDs are queued ones.
type reconcileScope struct {
	listingIDs  []uint
	userIDs     []uint
	cascadeIDs  []uint
	allListings bool
	allUsers    bool
	allCascades bool
}

// ReconcileService recomputes denormalized counters from the relation tables.
// It runs from the admin API or promptctl, never in the request path.
type ReconcileService struct {
	counters repository.CounterRepository
	dirty    *cache.DirtySet
	cascade  *CascadeService
	now      func() time.Time
}

// NewReconcileService returns a ReconcileService. dirty and cascade may be nil.
func NewReconcileService(counters repository.CounterRepository, dirty *cache.DirtySet, cascade *CascadeService) *ReconcileService {
	return &ReconcileService{counters: counters, dirty: dirty, cascade: cascade, now: time.Now}
}

// Reconcile scans every listing and user, and finishes any listing-delete
// cascade left incomplete.
func (s *ReconcileService) Reconcile(ctx context.Context, dryRun bool) (*ReconcileReport, error) {
	return s.run(ctx, reconcileScope{allListings: true, allUsers: true, allCascades: true}, dryRun)
}

func (s *ReconcileService) ReconcileListing(ctx context.Context, id uint, dryRun bool) (*ReconcileReport, error) {
	return s.run(ctx, reconcileScope{listingIDs: []uint{id}}, dryRun)
}

func (s *ReconcileService) ReconcileUser(ctx context.Context, id uint, dryRun bool) (*ReconcileReport, error) {
	return s.run(ctx, reconcileScope{userIDs: []uint{id}}, dryRun)
}

// ReconcileDirty repairs up to batch listings and batch users queued by failed
// counter deltas, and up to batch queued listing-delete cascades. Ids are put
// back if the run fails.
func (s *ReconcileService) ReconcileDirty(ctx context.Context, batch int64) (*ReconcileReport, error) {
	listingIDs, err := s.dirty.Pop(ctx, string(repository.EntityListing), batch)
	if err != nil {
		return nil, err
	}
	userIDs, err := s.dirty.Pop(ctx, string(repository.EntityUser), batch)
	if err != nil {
		s.requeue(ctx, string(repository.EntityListing), listingIDs)
		return nil, err
	}
	var cascadeIDs []uint
	if s.cascade != nil {
		if cascadeIDs, err = s.cascade.PopPending(ctx, batch); err != nil {
			s.requeue(ctx, string(repository.EntityListing), listingIDs)
			s.requeue(ctx, string(repository.EntityUser), userIDs)
			return nil, err
		}
	}

	report, err := s.run(ctx, reconcileScope{listingIDs: listingIDs, userIDs: userIDs, cascadeIDs: cascadeIDs}, false)
	if err != nil {
		s.requeue(ctx, string(repository.EntityListing), listingIDs)
		s.requeue(ctx, string(repository.EntityUser), userIDs)
		s.requeue(ctx, EntityListingCascade, cascadeIDs)
		return nil, err
	}
	return report, nil
}

func (s *ReconcileService) requeue(ctx context.Context, entity string, ids []uint) {
	for _, id := range ids {
		if err := s.dirty.Mark(ctx, entity, id); err != nil {
			observability.LogAsyncOperationError(ctx, "reconcile.requeue", err, map[string]any{"entity": entity, "id": id})
		}
	}
}

func (s *ReconcileService) run(ctx context.Context, scope reconcileScope, dryRun bool) (report *ReconcileReport, err error) {
	ctx, done := observability.StartServiceSpan(ctx, "reconcile", "run")
	defer func() { done(err) }()

	report = &ReconcileReport{StartedAt: s.now(), DryRun: dryRun, Drift: []DriftRow{}}

	if scope.allListings || len(scope.listingIDs) > 0 {
		if err := s.reconcileListings(ctx, scope.listingIDs, dryRun, report); err != nil {
			return nil, err
		}
	}
	if scope.allUsers || len(scope.userIDs) > 0 {
		if err := s.reconcileUsers(ctx, scope.userIDs, dryRun, report); err != nil {
			return nil, err
		}
	}

	if err := s.reconcileCascades(ctx, scope, dryRun, report); err != nil {
		return nil, err
	}

	report.FinishedAt = s.now()
	observability.GlobalLogger.InfoContext(ctx, "reconcile finished",
		slog.Bool("dry_run", dryRun),
		slog.Int("listings_scanned", report.ListingsScanned),
		slog.Int("users_scanned", report.UsersScanned),
		slog.Int("drift", len(report.Drift)),
		slog.Int("swept", len(report.SweptListings)),
		slog.Int("sweep_failures", len(report.SweepFailures)),
	)
	return report, nil
}

func (s *ReconcileService) reconcileCascades(ctx context.Context, scope reconcileScope, dryRun bool, report *ReconcileReport) error {
	if s.cascade == nil || (!scope.allCascades && len(scope.cascadeIDs) == 0) {
		return nil
	}

	ids := scope.cascadeIDs
	if scope.allCascades {
		found, err := s.cascade.Unswept(ctx)
		if err != nil {
			return err
		}
		ids = found
	}
	if len(ids) == 0 {
		return nil
	}
	if dryRun {
		report.UnsweptListings = ids
		return nil
	}
	report.SweptListings, report.SweepFailures = s.cascade.SweepAll(ctx, ids)
	return nil
}

func (s *ReconcileService) reconcileListings(ctx context.Context, ids []uint, dryRun bool, report *ReconcileReport) error {
	rows, err := s.counters.ListingCounts(ctx, ids)
	if err != nil {
		return err
	}
	report.ListingsScanned = len(rows)

	var drifted []uint
	for _, row := range rows {
		cols := row.Drifted()
		if len(cols) == 0 {
			continue
		}
		drifted = append(drifted, row.ID)
		for _, col := range cols {
			stored, actual := listingValues(row, col)
			report.Drift = append(report.Drift, DriftRow{
				Entity: string(repository.EntityListing), ID: row.ID, Column: col, Stored: stored, Actual: actual,
			})
			observability.ReconcileDrift.WithLabelValues(string(repository.EntityListing), col).Inc()
		}
	}

	if dryRun || len(drifted) == 0 {
		return nil
	}
	n, err := s.counters.RepairListings(ctx, drifted)
	if err != nil {
		return err
	}
	report.ListingsRepaired = n
	return nil
}

func (s *ReconcileService) reconcileUsers(ctx context.Context, ids []uint, dryRun bool, report *ReconcileReport) error {
	rows, err := s.counters.UserCounts(ctx, ids)
	if err != nil {
		return err
	}
	report.UsersScanned = len(rows)

	var drifted []uint
	for _, row := range rows {
		cols := row.Drifted()
		if len(cols) == 0 {
			continue
		}
		drifted = append(drifted, row.ID)
		for _, col := range cols {
			stored, actual := userValues(row, col)
			report.Drift = append(report.Drift, DriftRow{
				Entity: string(repository.EntityUser), ID: row.ID, Column: col, Stored: stored, Actual: actual,
			})
			observability.ReconcileDrift.WithLabelValues(string(repository.EntityUser), col).Inc()
		}
	}

	if dryRun || len(drifted) == 0 {
		return nil
	}
	n, err := s.counters.RepairUsers(ctx, drifted)
	if err != nil {
		return err
	}
	report.UsersRepaired = n
	return nil
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func listingValues(row repository.ListingCounts, col string) (string, string) {
	switch col {
	case "likes_count":
		return itoa(row.LikesCount), itoa(row.ActualLikes)
	case "comments_count":
		return itoa(row.CommentsCount), itoa(row.ActualComments)
	case "sales":
		return itoa(row.Sales), itoa(row.ActualSales)
	case "earnings":
		return row.Earnings.StringFixed(2), row.ActualEarnings.StringFixed(2)
	}
	return "", ""
}

func userValues(row repository.UserCounts, col string) (string, string) {
	switch col {
	case "followers_count":
		return itoa(row.FollowersCount), itoa(row.ActualFollowers)
	case "following_count":
		return itoa(row.FollowingCount), itoa(row.ActualFollowing)
	}
	return "", ""
}
