// Package models contains data structures for the marketplace ledger.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the authorization level of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a marketplace account. FollowersCount and FollowingCount are
// denormalized and only written through counter deltas or reconciliation.
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Username       string         `gorm:"unique;not null" json:"username"`
	Email          string         `gorm:"unique;not null" json:"email,omitempty"`
	Password       string         `gorm:"not null" json:"-"`
	Role           Role           `gorm:"type:varchar(16);not null;default:user" json:"role"`
	Bio            string         `json:"bio"`
	Avatar         string         `json:"avatar"`
	FollowersCount int64          `gorm:"not null;default:0" json:"followers_count"`
	FollowingCount int64          `gorm:"not null;default:0" json:"following_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAdmin reports whether the account carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserSummary is the public author card joined onto comments, edges and listings.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Summary projects the account to its public card.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}
