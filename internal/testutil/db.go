// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"strconv"
	"testing"
	"time"

	"promptmart/internal/database"
	"promptmart/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// JWT settings used by handler tests.
const (
	JWTSecret   = "test-secret-key-12345678901234567890123456789012"
	JWTIssuer   = "promptmart"
	JWTAudience = "promptmart-api"
)

// NewTestDB returns a migrated in-memory SQLite database. The pool is pinned
// to one connection so every query sees the same memory database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(logger.Default.LogMode(logger.Silent)))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts a user with the given role.
func CreateUser(t testing.TB, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Role:     role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// ListingOpts customizes CreateListing.
type ListingOpts struct {
	Price    string
	Status   models.ListingStatus
	Category string
	Title    string
}

// CreateListing inserts a listing owned by author. Status defaults to
// approved and is_public follows it.
func CreateListing(t testing.TB, db *gorm.DB, author *models.User, opts ListingOpts) *models.Listing {
	t.Helper()
	if opts.Price == "" {
		opts.Price = "0"
	}
	if opts.Status == "" {
		opts.Status = models.StatusApproved
	}
	if opts.Title == "" {
		opts.Title = "Listing by " + author.Username
	}
	l := &models.Listing{
		AuthorID:    author.ID,
		Title:       opts.Title,
		Description: "preview",
		Content:     "full prompt text",
		Category:    opts.Category,
		Price:       decimal.RequireFromString(opts.Price),
		Status:      opts.Status,
		IsPublic:    models.VisibilityFor(opts.Status),
	}
	require.NoError(t, db.Create(l).Error)
	return l
}

// ReloadListing reads the listing row including soft-deleted ones.
func ReloadListing(t testing.TB, db *gorm.DB, id uint) *models.Listing {
	t.Helper()
	var l models.Listing
	require.NoError(t, db.Unscoped().First(&l, id).Error)
	return &l
}

// ReloadUser reads the user row.
func ReloadUser(t testing.TB, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.Unscoped().First(&u, id).Error)
	return &u
}

// Token signs an access token for userID accepted by the auth middleware.
func Token(t testing.TB, userID uint) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": JWTIssuer,
		"aud": JWTAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	require.NoError(t, err)
	return s
}
