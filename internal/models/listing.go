package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListingStatus is the moderation state of a listing.
type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"
	StatusApproved ListingStatus = "approved"
	StatusRejected ListingStatus = "rejected"
	StatusDraft    ListingStatus = "draft"
)

// Valid reports whether s is one of the known moderation states.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusDraft:
		return true
	}
	return false
}

// VisibilityFor is the single source of truth for is_public.
func VisibilityFor(s ListingStatus) bool {
	return s == StatusApproved
}

// Listing is a prompt offered on the marketplace.
type Listing struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	AuthorID        uint            `gorm:"not null;index" json:"author_id"`
	Title           string          `gorm:"size:200;not null" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	Content         string          `gorm:"type:text;not null" json:"content,omitempty"`
	Category        string          `gorm:"size:64;index" json:"category"`
	AIModel         string          `gorm:"column:ai_model;size:64" json:"ai_model"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	IsPublic        bool            `gorm:"not null;default:false;index" json:"is_public"`
	Status          ListingStatus   `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	RejectionReason string          `gorm:"type:text" json:"rejection_reason,omitempty"`
	ModeratedBy     *uint           `json:"moderated_by,omitempty"`
	ModeratedAt     *time.Time      `json:"moderated_at,omitempty"`
	LikesCount      int64           `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount   int64           `gorm:"not null;default:0" json:"comments_count"`
	Sales           int64           `gorm:"not null;default:0" json:"sales"`
	Earnings        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"earnings"`
	ViewsCount      int64           `gorm:"not null;default:0" json:"views_count"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`

	Author *UserSummary `gorm:"-" json:"author,omitempty"`
	// ContentRedacted is set when Content was stripped for the caller.
	ContentRedacted bool `gorm:"-" json:"content_redacted,omitempty"`
}

// IsPaid reports whether the listing has a strictly positive price.
func (l *Listing) IsPaid() bool {
	return l.Price.IsPositive()
}

// Redact strips the full prompt text, leaving the public preview.
func (l *Listing) Redact() {
	l.Content = ""
	l.ContentRedacted = true
}

// Transition describes one allowed status change and who may perform it.
type Transition struct {
	From      ListingStatus
	To        ListingStatus
	AdminOnly bool
	// RequiresReason is set for rejections.
	RequiresReason bool
}

var transitions = []Transition{
	{From: StatusPending, To: StatusApproved, AdminOnly: true},
	{From: StatusPending, To: StatusRejected, AdminOnly: true, RequiresReason: true},
	{From: StatusPending, To: StatusDraft},
	{From: StatusDraft, To: StatusPending},
}

// FindTransition looks up the rule for from -> to.
func FindTransition(from, to ListingStatus) (Transition, bool) {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}
