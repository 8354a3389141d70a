package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when checkout persists a new order.
type OrderCreatedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	UserID   uuid.UUID `json:"user_id"`
	Total    int64     `json:"total"`
	Currency string    `json:"currency"`
	Items    int       `json:"items"`
}

// OrderPaidEvent is emitted once per order when settlement flips it to PAID.
type OrderPaidEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	UserID           uuid.UUID `json:"user_id"`
	Total            int64     `json:"total"`
	Currency         string    `json:"currency"`
	PaymentReference string    `json:"payment_reference,omitempty"`
	Source           string    `json:"source"`
	PaidAt           time.Time `json:"paid_at"`
	CreditedItems    int       `json:"credited_items"`
}

type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	CanceledAt time.Time `json:"canceled_at"`
}

type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

type OrderRefundedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	Total      int64     `json:"total"`
	Reason     string    `json:"reason,omitempty"`
	RefundedAt time.Time `json:"refunded_at"`
}

// ListingStatusChangedEvent covers every lifecycle transition of a listing.
type ListingStatusChangedEvent struct {
	ListingID  uuid.UUID           `json:"listing_id"`
	OwnerID    uuid.UUID           `json:"owner_id"`
	From       enums.ListingStatus `json:"from"`
	To         enums.ListingStatus `json:"to"`
	Tier       enums.ListingTier   `json:"tier"`
	ExpiresAt  *time.Time          `json:"expires_at,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// ListingReportThresholdEvent is emitted when reports push a live listing back to review.
type ListingReportThresholdEvent struct {
	ListingID   uuid.UUID `json:"listing_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	ReportCount int       `json:"report_count"`
	Threshold   int       `json:"threshold"`
}
