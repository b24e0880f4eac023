package commands

import (
	"errors"
	"fmt"

	"promptmart/internal/service"

	"github.com/spf13/cobra"
)

// errDrift makes `reconcile --dry-run --fail-on-drift` usable as a CI gate.
// Unswept deleted listings count as drift.
var errDrift = errors.New("counter drift detected")

func newReconcileCmd(open Opener, out func(*cobra.Command) printer) *cobra.Command {
	var (
		dryRun      bool
		dirty       bool
		batch       int64
		listingID   uint
		userID      uint
		failOnDrift bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute denormalized counters and finish listing-delete cascades",
		Long: `Recompute likes, comments, sales, earnings and follower counters from
their relation tables and repair any that drifted. Deleted listings that
still have likes, favorites, comments or purchases are swept.

Examples:
  promptctl reconcile                      # Full scan and repair
  promptctl reconcile --dry-run -o json    # Report drift only
  promptctl reconcile --dirty --batch 200  # Repair ids queued by failed updates
  promptctl reconcile --listing 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dirty && dryRun {
				return fmt.Errorf("--dry-run cannot be combined with --dirty")
			}
			if listingID != 0 && userID != 0 {
				return fmt.Errorf("--listing and --user are mutually exclusive")
			}

			ctx := cmd.Context()
			rt, err := open(ctx, RuntimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			var report *service.ReconcileReport
			switch {
			case dirty:
				report, err = rt.Services.Reconcile.ReconcileDirty(ctx, batch)
			case listingID != 0:
				report, err = rt.Services.Reconcile.ReconcileListing(ctx, listingID, dryRun)
			case userID != 0:
				report, err = rt.Services.Reconcile.ReconcileUser(ctx, userID, dryRun)
			default:
				report, err = rt.Services.Reconcile.Reconcile(ctx, dryRun)
			}
			if err != nil {
				return err
			}
			if err := out(cmd).print(report); err != nil {
				return err
			}
			if failOnDrift && !report.Clean() {
				return fmt.Errorf("%w: %d counters, %d unswept listings",
					errDrift, len(report.Drift), len(report.UnsweptListings)+len(report.SweepFailures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report drift without repairing")
	cmd.Flags().BoolVar(&dirty, "dirty", false, "Only repair ids queued in Redis")
	cmd.Flags().Int64Var(&batch, "batch", 500, "Dirty ids popped per entity")
	cmd.Flags().UintVar(&listingID, "listing", 0, "Reconcile a single listing")
	cmd.Flags().UintVar(&userID, "user", 0, "Reconcile a single user")
	cmd.Flags().BoolVar(&failOnDrift, "fail-on-drift", false, "Exit non-zero when drift is found")
	return cmd
}
