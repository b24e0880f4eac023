package seed

import (
	"context"
	"fmt"
	"log/slog"

	"promptmart/internal/middleware"
	"promptmart/internal/models"
	"promptmart/internal/service"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	Users               int
	Listings            int
	FollowsPerUser      int
	LikesPerListing     int
	CommentsPerListing  int
	PurchasesPerListing int
	// PendingRatio and RejectRatio are the shares of listings left in review
	// or rejected; the rest are approved.
	PendingRatio float64
	RejectRatio  float64
	Clean        bool
	SkipBcrypt   bool
	RandSeed     int64
}

// DefaultOptions is the preset used by promptctl seed without flags.
func DefaultOptions() Options {
	return Options{
		Users:               30,
		Listings:            80,
		FollowsPerUser:      5,
		LikesPerListing:     4,
		CommentsPerListing:  2,
		PurchasesPerListing: 2,
		PendingRatio:        0.15,
		RejectRatio:         0.05,
		Clean:               true,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users     int `json:"users" yaml:"users"`
	Listings  int `json:"listings" yaml:"listings"`
	Approved  int `json:"approved" yaml:"approved"`
	Follows   int `json:"follows" yaml:"follows"`
	Likes     int `json:"likes" yaml:"likes"`
	Comments  int `json:"comments" yaml:"comments"`
	Purchases int `json:"purchases" yaml:"purchases"`
}

// Seed populates the database. Social edges, comments and purchases are
// written through svc so every denormalized counter stays consistent.
func Seed(ctx context.Context, db *gorm.DB, svc *service.Services, opts Options) (*Summary, error) {
	middleware.Logger.Info("starting database seeding",
		slog.Int("users", opts.Users),
		slog.Int("listings", opts.Listings),
		slog.Bool("clean", opts.Clean),
	)

	if opts.Clean {
		if err := ClearAll(ctx, db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	f := NewFactory(db, opts.RandSeed, opts.SkipBcrypt)
	sum := &Summary{}

	moderator, err := f.CreateUser(ctx, func(u *models.User) {
		u.Username = "moderator" + u.Username
		u.Email = u.Username + "@example.com"
		u.Role = models.RoleAdmin
	})
	if err != nil {
		return nil, fmt.Errorf("create moderator: %w", err)
	}
	admin := models.PrincipalFor(moderator)

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	if len(users) == 0 {
		return sum, nil
	}

	var approved []*models.Listing
	for i := 0; i < opts.Listings; i++ {
		author := users[f.faker.Number(0, len(users)-1)]
		listing, err := svc.Listings.CreateListing(ctx, f.BuildListing(author))
		if err != nil {
			return nil, fmt.Errorf("create listing: %w", err)
		}
		sum.Listings++

		switch {
		case f.chance(opts.PendingRatio):
		case f.chance(opts.RejectRatio):
			if _, err := svc.Moderation.Reject(ctx, admin, listing.ID, f.RejectionReason()); err != nil {
				return nil, fmt.Errorf("reject listing %d: %w", listing.ID, err)
			}
		default:
			listing, err = svc.Moderation.Approve(ctx, admin, listing.ID)
			if err != nil {
				return nil, fmt.Errorf("approve listing: %w", err)
			}
			approved = append(approved, listing)
		}
	}
	sum.Approved = len(approved)

	for i, u := range users {
		for _, j := range f.pick(len(users), opts.FollowsPerUser, i) {
			if _, err := svc.Relationships.ToggleEdge(ctx, models.PrincipalFor(u), models.EdgeFollow, users[j].ID); err != nil {
				return nil, fmt.Errorf("follow: %w", err)
			}
			sum.Follows++
		}
	}

	for _, l := range approved {
		authorIdx := indexOf(users, l.AuthorID)

		for _, j := range f.pick(len(users), opts.LikesPerListing, -1) {
			if _, err := svc.Relationships.ToggleEdge(ctx, models.PrincipalFor(users[j]), models.EdgeLike, l.ID); err != nil {
				return nil, fmt.Errorf("like: %w", err)
			}
			sum.Likes++
		}

		for n := 0; n < opts.CommentsPerListing; n++ {
			commenter := users[f.faker.Number(0, len(users)-1)]
			if _, err := svc.Comments.AddComment(ctx, service.AddCommentInput{
				Principal: models.PrincipalFor(commenter),
				ListingID: l.ID,
				Content:   f.Comment(),
			}); err != nil {
				return nil, fmt.Errorf("comment: %w", err)
			}
			sum.Comments++
		}

		if !l.IsPaid() {
			continue
		}
		for _, j := range f.pick(len(users), opts.PurchasesPerListing, authorIdx) {
			if _, err := svc.Entitlements.Purchase(ctx, models.PrincipalFor(users[j]), l.ID); err != nil {
				return nil, fmt.Errorf("purchase: %w", err)
			}
			sum.Purchases++
		}
	}

	middleware.Logger.Info("database seeding completed",
		slog.Int("users", sum.Users),
		slog.Int("listings", sum.Listings),
		slog.Int("follows", sum.Follows),
		slog.Int("likes", sum.Likes),
		slog.Int("comments", sum.Comments),
		slog.Int("purchases", sum.Purchases),
	)
	return sum, nil
}

func indexOf(users []*models.User, id uint) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

// ClearAll removes every marketplace row. PostgreSQL tables are truncated with
// identity reset; other dialects fall back to plain deletes.
func ClearAll(ctx context.Context, db *gorm.DB) error {
	middleware.Logger.Info("clearing existing data")
	tables := []string{"purchases", "comments", "favorites", "likes", "follows", "listings", "users"}

	if db.Dialector.Name() == "postgres" {
		return db.WithContext(ctx).Exec(
			"TRUNCATE TABLE purchases, comments, favorites, likes, follows, listings, users RESTART IDENTITY CASCADE",
		).Error
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
