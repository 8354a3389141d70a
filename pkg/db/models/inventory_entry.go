package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// InventoryEntry is a user's balance of unused credits for one listing tier.
type InventoryEntry struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_inventory_user_item"`
	ItemType  enums.ListingTier `gorm:"column:item_type;type:listing_tier;not null;uniqueIndex:ux_inventory_user_item"`
	Quantity  int               `gorm:"column:quantity;not null;check:chk_inventory_entries_quantity,quantity >= 0"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryEntry) TableName() string { return "inventory_entries" }

func (e *InventoryEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
