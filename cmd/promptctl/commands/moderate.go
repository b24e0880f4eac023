package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"promptmart/internal/models"

	"github.com/spf13/cobra"
)

type listingRow struct {
	ID              uint                 `json:"id" yaml:"id"`
	Title           string               `json:"title" yaml:"title"`
	AuthorID        uint                 `json:"author_id" yaml:"author_id"`
	Status          models.ListingStatus `json:"status" yaml:"status"`
	Public          bool                 `json:"is_public" yaml:"is_public"`
	Price           string               `json:"price" yaml:"price"`
	RejectionReason string               `json:"rejection_reason,omitempty" yaml:"rejection_reason,omitempty"`
	CreatedAt       time.Time            `json:"created_at" yaml:"created_at"`
}

func toListingRow(l *models.Listing) listingRow {
	return listingRow{
		ID:              l.ID,
		Title:           l.Title,
		AuthorID:        l.AuthorID,
		Status:          l.Status,
		Public:          l.IsPublic,
		Price:           l.Price.StringFixed(2),
		RejectionReason: l.RejectionReason,
		CreatedAt:       l.CreatedAt,
	}
}

// actingAdmin resolves --as to a principal. Role checks stay in the services.
func actingAdmin(ctx context.Context, rt *Runtime, username string) (models.Principal, error) {
	if username == "" {
		return models.Anonymous, fmt.Errorf("--as is required")
	}
	user, err := rt.Services.Users.GetByUsername(ctx, username)
	if err != nil {
		return models.Anonymous, err
	}
	return models.PrincipalFor(user), nil
}

func parseListingID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid listing id %q", arg)
	}
	return uint(id), nil
}

func newModerateCmd(open Opener, out func(*cobra.Command) printer) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "moderate",
		Short: "Review pending listings",
		Long: `Approve or reject listings awaiting review, acting as an admin account.

Examples:
  promptctl moderate pending --as root
  promptctl moderate approve 42 --as root
  promptctl moderate reject 43 --as root --reason "Contains credentials"`,
	}
	cmd.PersistentFlags().StringVar(&as, "as", "", "Username of the acting admin")

	var page, limit int
	pending := &cobra.Command{
		Use:   "pending",
		Short: "List listings awaiting review, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := open(ctx, RuntimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := actingAdmin(ctx, rt, as)
			if err != nil {
				return err
			}
			result, err := rt.Services.Moderation.ListPendingReview(ctx, p, models.NewPageRequest(page, limit))
			if err != nil {
				return err
			}
			rows := make([]listingRow, 0, len(result.Items))
			for i := range result.Items {
				rows = append(rows, toListingRow(&result.Items[i]))
			}
			return out(cmd).print(rows)
		},
	}
	pending.Flags().IntVar(&page, "page", 1, "Page number")
	pending.Flags().IntVar(&limit, "limit", 20, "Page size")

	approve := &cobra.Command{
		Use:   "approve <listing-id>",
		Short: "Approve a pending listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := open(ctx, RuntimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := actingAdmin(ctx, rt, as)
			if err != nil {
				return err
			}
			listing, err := rt.Services.Moderation.Approve(ctx, p, id)
			if err != nil {
				return err
			}
			return out(cmd).print(toListingRow(listing))
		},
	}

	var reason string
	reject := &cobra.Command{
		Use:   "reject <listing-id>",
		Short: "Reject a pending listing with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListingID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := open(ctx, RuntimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := actingAdmin(ctx, rt, as)
			if err != nil {
				return err
			}
			listing, err := rt.Services.Moderation.Reject(ctx, p, id, reason)
			if err != nil {
				return err
			}
			return out(cmd).print(toListingRow(listing))
		},
	}
	reject.Flags().StringVar(&reason, "reason", "", "Rejection reason shown to the author")

	cmd.AddCommand(pending, approve, reject)
	return cmd
}
