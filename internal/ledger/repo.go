package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// Repository persists payment ledger events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.PaymentLedgerEvent) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.PaymentLedgerEvent, error)
	Exists(ctx context.Context, orderID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.PaymentLedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.PaymentLedgerEvent, error) {
	var events []models.PaymentLedgerEvent
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) Exists(ctx context.Context, orderID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentLedgerEvent{}).
		Where("order_id = ? AND type = ?", orderID, eventType).
		Count(&count).Error
	return count > 0, err
}
