package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseStatus is the lifecycle of an entitlement record.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseFailed    PurchaseStatus = "failed"
	PurchaseRefunded  PurchaseStatus = "refunded"
)

// Purchase is the entitlement granting a buyer access to a paid listing.
// Soft-deleted rows are tombstones kept after their listing is removed.
type Purchase struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	BuyerID          uint            `gorm:"not null;uniqueIndex:idx_purchases_pair,priority:1" json:"buyer_id"`
	ListingID        uint            `gorm:"not null;uniqueIndex:idx_purchases_pair,priority:2;index" json:"listing_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Status           PurchaseStatus  `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	PaymentReference string          `gorm:"size:64" json:"payment_reference,omitempty"`
	DownloadCount    int64           `gorm:"not null;default:0" json:"download_count"`
	LastDownloadedAt *time.Time      `json:"last_downloaded_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`

	Listing *Listing `gorm:"-" json:"listing,omitempty"`
}

// Completed reports whether the purchase grants access.
func (p *Purchase) Completed() bool {
	return p != nil && p.Status == PurchaseCompleted
}

// AccessInfo is returned by access checks.
type AccessInfo struct {
	ListingID uint  `json:"listing_id"`
	HasAccess bool  `json:"has_access"`
	Purchased bool  `json:"purchased"`
	IsAuthor  bool  `json:"is_author"`
	IsFree    bool  `json:"is_free"`
	Purchase  *uint `json:"purchase_id,omitempty"`
}
