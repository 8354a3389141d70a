package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// PaymentLedgerEvent records an immutable money lifecycle event for an order.
// (order_id, type) is unique, so each order settles and refunds at most once.
type PaymentLedgerEvent struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID             `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payment_ledger_order_type"`
	UserID           uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	Type             enums.LedgerEventType `gorm:"column:type;type:payment_ledger_event_type;not null;uniqueIndex:ux_payment_ledger_order_type"`
	AmountCents      int64                 `gorm:"column:amount_cents;not null"`
	Currency         string                `gorm:"column:currency;not null"`
	Source           string                `gorm:"column:source;not null"`
	PaymentReference *string               `gorm:"column:payment_reference"`
	IdempotencyKey   *string               `gorm:"column:idempotency_key"`
	ActorID          *uuid.UUID            `gorm:"column:actor_id;type:uuid"`
	Metadata         json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (PaymentLedgerEvent) TableName() string { return "payment_ledger_events" }

func (e *PaymentLedgerEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
