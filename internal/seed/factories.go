// Package seed provides helpers to create demo data for the marketplace
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"

	"promptmart/internal/models"
	"promptmart/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is set on every seeded account.
const DefaultPassword = "Password123!"

var (
	categories = []string{"writing", "coding", "marketing", "research", "image-gen", "productivity", "education"}
	aiModels   = []string{"gpt-4o", "claude-3-5-sonnet", "llama-3-70b", "gemini-1.5-pro", "mistral-large"}
	prices     = []string{"0", "0", "1.99", "2.50", "4.99", "9.99", "14.00"}
)

// Factory builds domain entities. Users are inserted directly; listings go
// through the listing service so they start in review like any other.
type Factory struct {
	db         *gorm.DB
	faker      *gofakeit.Faker
	skipBcrypt bool
	hash       string
}

// NewFactory creates a Factory. A zero randSeed picks a random one.
func NewFactory(db *gorm.DB, randSeed int64, skipBcrypt bool) *Factory {
	return &Factory{db: db, faker: gofakeit.New(randSeed), skipBcrypt: skipBcrypt}
}

func (f *Factory) password() (string, error) {
	if f.skipBcrypt {
		return DefaultPassword, nil
	}
	if f.hash == "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("hash seed password: %w", err)
		}
		f.hash = string(hashed)
	}
	return f.hash, nil
}

// CreateUser constructs and persists a sample user. Overrides run before the
// insert.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	password, err := f.password()
	if err != nil {
		return nil, err
	}

	suffix := f.faker.Number(1000, 9999)
	user := &models.User{
		Username: fmt.Sprintf("%s%d", strings.ToLower(f.faker.Username()), suffix),
		Password: password,
		Role:     models.RoleUser,
		Bio:      f.faker.Sentence(10),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
	user.Email = fmt.Sprintf("%s@example.com", user.Username)

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildListing returns a randomized listing draft for author.
func (f *Factory) BuildListing(author *models.User) service.CreateListingInput {
	category := categories[f.faker.Number(0, len(categories)-1)]
	return service.CreateListingInput{
		Principal:   models.PrincipalFor(author),
		Title:       strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), "."),
		Description: f.faker.Sentence(18),
		Content:     f.promptText(category),
		Category:    category,
		AIModel:     aiModels[f.faker.Number(0, len(aiModels)-1)],
		Price:       decimal.RequireFromString(prices[f.faker.Number(0, len(prices)-1)]),
	}
}

func (f *Factory) promptText(category string) string {
	return fmt.Sprintf(
		"You are an expert %s assistant.\n\nTask: %s\n\nConstraints:\n- %s\n- %s\n\nInput: {{input}}",
		category,
		f.faker.HackerPhrase(),
		f.faker.Sentence(8),
		f.faker.Sentence(8),
	)
}

// Comment returns a short comment body.
func (f *Factory) Comment() string {
	return f.faker.Sentence(f.faker.Number(4, 16))
}

// RejectionReason returns a plausible moderator note.
func (f *Factory) RejectionReason() string {
	return "Needs work: " + f.faker.Sentence(6)
}

// pick returns up to n distinct indexes in [0, size) excluding skip.
func (f *Factory) pick(size, n, skip int) []int {
	order := make([]int, 0, size)
	for i := 0; i < size; i++ {
		if i != skip {
			order = append(order, i)
		}
	}
	f.faker.ShuffleAnySlice(order)
	if n < len(order) {
		order = order[:n]
	}
	return order
}

// chance reports true with probability p.
func (f *Factory) chance(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}
