package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// Repository persists inventory balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AddQuantity(ctx context.Context, userID uuid.UUID, tier enums.ListingTier, amount int, now time.Time) error
	FindForUpdate(ctx context.Context, userID uuid.UUID, tier enums.ListingTier) (*models.InventoryEntry, error)
	SubtractQuantity(ctx context.Context, entryID uuid.UUID, amount int, now time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.InventoryEntry, error)
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

// AddQuantity inserts the balance row or increments it in place.
func (r *repository) AddQuantity(ctx context.Context, userID uuid.UUID, tier enums.ListingTier, amount int, now time.Time) error {
	entry := models.InventoryEntry{
		UserID:    userID,
		ItemType:  tier,
		Quantity:  amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "item_type"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("inventory_entries.quantity + ?", amount),
				"updated_at": now,
			}),
		}).
		Create(&entry).Error
}

func (r *repository) FindForUpdate(ctx context.Context, userID uuid.UUID, tier enums.ListingTier) (*models.InventoryEntry, error) {
	var entry models.InventoryEntry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND item_type = ?", userID, tier).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SubtractQuantity decrements a locked row, refusing to go below zero.
func (r *repository) SubtractQuantity(ctx context.Context, entryID uuid.UUID, amount int, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryEntry{}).
		Where("id = ? AND quantity >= ?", entryID, amount).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", amount),
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.InventoryEntry, error) {
	var entries []models.InventoryEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("item_type ASC").
		Find(&entries).Error
	return entries, err
}
