package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// ListingPackage is a priced catalog entry sold through orders. SINGLE packages
// carry a listing tier, COMBO packages bundle tier credits through Items.
type ListingPackage struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code          string             `gorm:"column:code;not null;uniqueIndex"`
	Name          string             `gorm:"column:name;not null"`
	Type          enums.PackageType  `gorm:"column:type;type:package_type;not null"`
	Price         int64              `gorm:"column:price;not null"`
	OriginalPrice int64              `gorm:"column:original_price;not null"`
	DurationDays  int                `gorm:"column:duration_days;not null"`
	BoostFactor   decimal.Decimal    `gorm:"column:boost_factor;type:numeric(6,2);not null"`
	ListingTier   *enums.ListingTier `gorm:"column:listing_tier;type:listing_tier"`
	Active        bool               `gorm:"column:active;not null"`
	SortOrder     int                `gorm:"column:sort_order;not null"`
	Items         []PackageItem      `gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (ListingPackage) TableName() string { return "listing_packages" }

func (p *ListingPackage) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PackageItem is one tier credit bundled inside a COMBO package.
type PackageItem struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	PackageID   uuid.UUID         `gorm:"column:package_id;type:uuid;not null"`
	ListingTier enums.ListingTier `gorm:"column:listing_tier;type:listing_tier;not null"`
	Quantity    int               `gorm:"column:quantity;not null"`
	Position    int               `gorm:"column:position;not null"`
}

func (PackageItem) TableName() string { return "listing_package_items" }

func (i *PackageItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// ListingTierPolicy holds the per-tier defaults used at approval time.
type ListingTierPolicy struct {
	Tier                   enums.ListingTier `gorm:"column:tier;type:listing_tier;primaryKey"`
	Price                  int64             `gorm:"column:price;not null"`
	BoostFactor            decimal.Decimal   `gorm:"column:boost_factor;type:numeric(6,2);not null"`
	DurationDays           int               `gorm:"column:duration_days;not null"`
	VerificationSLAMinutes int               `gorm:"column:verification_sla_minutes;not null"`
	Active                 bool              `gorm:"column:active;not null"`
	UpdatedAt              time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (ListingTierPolicy) TableName() string { return "listing_tier_policies" }
