package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxCommentRunes bounds trimmed comment text.
const MaxCommentRunes = 500

// Comment is a flat, soft-deletable remark on a listing.
type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ListingID uint           `gorm:"not null;index" json:"listing_id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User *UserSummary `gorm:"-" json:"user,omitempty"`
}
