package commands

import (
	"fmt"

	"promptmart/internal/seed"

	"github.com/spf13/cobra"
)

func newSeedCmd(open Opener, out func(*cobra.Command) printer) *cobra.Command {
	opts := seed.DefaultOptions()
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate a development database with demo data",
		Long: `Create users, listings, follows, likes, comments and purchases. Social
writes go through the services so every counter matches its relation table.

Examples:
  promptctl seed                          # Default preset, wipes existing data
  promptctl seed --users 200 --listings 1000 --clean=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := open(ctx, RuntimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.Config != nil && rt.Config.IsProduction() && !force {
				return fmt.Errorf("refusing to seed a production database without --force")
			}

			summary, err := seed.Seed(ctx, rt.DB, rt.Services, opts)
			if err != nil {
				return err
			}
			return out(cmd).print(summary)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Users, "users", opts.Users, "Number of users to create")
	f.IntVar(&opts.Listings, "listings", opts.Listings, "Number of listings to create")
	f.IntVar(&opts.FollowsPerUser, "follows", opts.FollowsPerUser, "Follows per user")
	f.IntVar(&opts.LikesPerListing, "likes", opts.LikesPerListing, "Likes per approved listing")
	f.IntVar(&opts.CommentsPerListing, "comments", opts.CommentsPerListing, "Comments per approved listing")
	f.IntVar(&opts.PurchasesPerListing, "purchases", opts.PurchasesPerListing, "Purchases per approved paid listing")
	f.Float64Var(&opts.PendingRatio, "pending-ratio", opts.PendingRatio, "Share of listings left in review")
	f.Float64Var(&opts.RejectRatio, "reject-ratio", opts.RejectRatio, "Share of listings rejected")
	f.BoolVar(&opts.Clean, "clean", opts.Clean, "Delete existing marketplace data first")
	f.BoolVar(&opts.SkipBcrypt, "skip-bcrypt", opts.SkipBcrypt, "Store the seed password unhashed (fast, dev only)")
	f.Int64Var(&opts.RandSeed, "rand-seed", opts.RandSeed, "Deterministic random seed (0 picks one)")
	f.BoolVar(&force, "force", false, "Allow seeding when APP_ENV is production")
	return cmd
}
