package models

import "time"

// EdgeKind identifies a directed relationship table.
type EdgeKind string

const (
	EdgeFollow   EdgeKind = "follow"
	EdgeLike     EdgeKind = "like"
	EdgeFavorite EdgeKind = "favorite"
)

// Valid reports whether k is a known edge kind.
func (k EdgeKind) Valid() bool {
	switch k {
	case EdgeFollow, EdgeLike, EdgeFavorite:
		return true
	}
	return false
}

// TargetsUser reports whether the edge points at a user rather than a listing.
func (k EdgeKind) TargetsUser() bool {
	return k == EdgeFollow
}

// EdgeDirection selects which end of an edge is the anchor when listing.
type EdgeDirection string

const (
	// Outgoing lists edges whose source is the anchor (e.g. who I follow).
	Outgoing EdgeDirection = "outgoing"
	// Incoming lists edges whose target is the anchor (e.g. my followers).
	Incoming EdgeDirection = "incoming"
)

// Follow is a user -> user edge.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follows_pair,priority:1" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follows_pair,priority:2;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Like is a user -> listing edge.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_pair,priority:1" json:"user_id"`
	ListingID uint      `gorm:"not null;uniqueIndex:idx_likes_pair,priority:2;index" json:"listing_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Favorite is a user -> listing bookmark edge. It carries no counter.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorites_pair,priority:1" json:"user_id"`
	ListingID uint      `gorm:"not null;uniqueIndex:idx_favorites_pair,priority:2;index" json:"listing_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Edge is the kind-agnostic row shape returned by edge reads.
type Edge struct {
	ID        uint      `json:"id"`
	SourceID  uint      `json:"source_id"`
	TargetID  uint      `json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EdgeView is an edge joined with the summary of the user at its far end.
type EdgeView struct {
	Edge
	User *UserSummary `json:"user,omitempty"`
}

// ToggleResult reports which way a toggle went.
type ToggleResult struct {
	Created bool  `json:"created"`
	Count   int64 `json:"count,omitempty"`
}

// EdgeStatus is the per-listing like/favorite state of the caller.
type EdgeStatus struct {
	Liked     bool `json:"liked"`
	Favorited bool `json:"favorited"`
}
