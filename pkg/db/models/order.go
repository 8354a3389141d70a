package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// Order is a purchase of catalog packages. Items are frozen snapshots of the
// catalog at checkout time.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Status           enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	Subtotal         int64             `gorm:"column:subtotal;not null"`
	Discount         int64             `gorm:"column:discount;not null"`
	Total            int64             `gorm:"column:total;not null"`
	Currency         string            `gorm:"column:currency;not null"`
	PaymentReference *string           `gorm:"column:payment_reference"`
	PaidAt           *time.Time        `gorm:"column:paid_at"`
	CanceledAt       *time.Time        `gorm:"column:canceled_at"`
	ExpiredAt        *time.Time        `gorm:"column:expired_at"`
	RefundedAt       *time.Time        `gorm:"column:refunded_at"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem freezes one catalog package at purchase time. CreditedAt marks the
// item as already applied to the buyer's inventory.
type OrderItem struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	Position    int                `gorm:"column:position;not null"`
	PackageID   uuid.UUID          `gorm:"column:package_id;type:uuid;not null"`
	PackageCode string             `gorm:"column:package_code;not null"`
	Title       string             `gorm:"column:title;not null"`
	ItemType    enums.PackageType  `gorm:"column:item_type;type:package_type;not null"`
	ListingTier *enums.ListingTier `gorm:"column:listing_tier;type:listing_tier"`
	UnitPrice   int64              `gorm:"column:unit_price;not null"`
	Quantity    int                `gorm:"column:quantity;not null"`
	LineTotal   int64              `gorm:"column:line_total;not null"`
	CreditedAt  *time.Time         `gorm:"column:credited_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
