package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// OrderDTO is the API view of an order.
type OrderDTO struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	Status           enums.OrderStatus `json:"status"`
	Subtotal         int64             `json:"subtotal"`
	Discount         int64             `json:"discount"`
	Total            int64             `json:"total"`
	Currency         string            `json:"currency"`
	PaymentReference *string           `json:"payment_reference,omitempty"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	CanceledAt       *time.Time        `json:"canceled_at,omitempty"`
	ExpiredAt        *time.Time        `json:"expired_at,omitempty"`
	RefundedAt       *time.Time        `json:"refunded_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Items            []OrderItemDTO    `json:"items"`
}

type OrderItemDTO struct {
	ID          uuid.UUID          `json:"id"`
	PackageID   uuid.UUID          `json:"package_id"`
	PackageCode string             `json:"package_code"`
	Title       string             `json:"title"`
	ItemType    enums.PackageType  `json:"item_type"`
	ListingTier *enums.ListingTier `json:"listing_tier,omitempty"`
	UnitPrice   int64              `json:"unit_price"`
	Quantity    int                `json:"quantity"`
	LineTotal   int64              `json:"line_total"`
	Credited    bool               `json:"credited"`
}

// ToDTO maps a loaded order aggregate to its API view.
func ToDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:               order.ID,
		UserID:           order.UserID,
		Status:           order.Status,
		Subtotal:         order.Subtotal,
		Discount:         order.Discount,
		Total:            order.Total,
		Currency:         order.Currency,
		PaymentReference: order.PaymentReference,
		PaidAt:           order.PaidAt,
		CanceledAt:       order.CanceledAt,
		ExpiredAt:        order.ExpiredAt,
		RefundedAt:       order.RefundedAt,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
		Items:            make([]OrderItemDTO, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:          item.ID,
			PackageID:   item.PackageID,
			PackageCode: item.PackageCode,
			Title:       item.Title,
			ItemType:    item.ItemType,
			ListingTier: item.ListingTier,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
			Credited:    item.CreditedAt != nil,
		})
	}
	return dto
}
