package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// Listing is a property advertisement moving through review, publication and
// expiry.
type Listing struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID          uuid.UUID            `gorm:"column:owner_id;type:uuid;not null;index"`
	Title            string               `gorm:"column:title;not null"`
	Slug             string               `gorm:"column:slug;not null;uniqueIndex"`
	Description      string               `gorm:"column:description;not null"`
	Price            int64                `gorm:"column:price;not null"`
	Status           enums.ListingStatus  `gorm:"column:status;type:listing_status;not null"`
	ListingTier      enums.ListingTier    `gorm:"column:listing_tier;type:listing_tier;not null"`
	RequestedTier    *enums.ListingTier   `gorm:"column:requested_tier;type:listing_tier"`
	PostedAt         *time.Time           `gorm:"column:posted_at"`
	ExpiresAt        *time.Time           `gorm:"column:expires_at"`
	HiddenFromStatus *enums.ListingStatus `gorm:"column:hidden_from_status;type:listing_status"`
	ReportCount      int                  `gorm:"column:report_count;not null"`
	AuditTrail       []ListingAuditEntry  `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Listing) TableName() string { return "listings" }

func (l *Listing) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// ListingAuditEntry is an append-only record of a listing state change.
// ActorID is nil for system actions such as the expiration sweep.
type ListingAuditEntry struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ListingID uuid.UUID              `gorm:"column:listing_id;type:uuid;not null;index"`
	ActorID   *uuid.UUID             `gorm:"column:actor_id;type:uuid"`
	Type      enums.ListingAuditType `gorm:"column:type;not null"`
	Message   string                 `gorm:"column:message;not null"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (ListingAuditEntry) TableName() string { return "listing_audit_entries" }

func (e *ListingAuditEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

type ListingPriceHistory struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	OldPrice  int64     `gorm:"column:old_price;not null" json:"old_price"`
	NewPrice  int64     `gorm:"column:new_price;not null" json:"new_price"`
	ChangedBy uuid.UUID `gorm:"column:changed_by;type:uuid;not null" json:"changed_by"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ListingPriceHistory) TableName() string { return "listing_price_history" }

func (h *ListingPriceHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

// ListingReport is one user's abuse report against a listing.
type ListingReport struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ListingID  uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:ux_listing_reports_reporter"`
	ReporterID uuid.UUID `gorm:"column:reporter_id;type:uuid;not null;uniqueIndex:ux_listing_reports_reporter"`
	Reason     string    `gorm:"column:reason;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ListingReport) TableName() string { return "listing_reports" }

func (r *ListingReport) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
