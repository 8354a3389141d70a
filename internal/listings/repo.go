package listings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// Repository persists listings with their audit trail and price history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AppendAudit(ctx context.Context, entry *models.ListingAuditEntry) error
	CreatePriceHistory(ctx context.Context, entry *models.ListingPriceHistory) error
	ListPriceHistory(ctx context.Context, listingID uuid.UUID) ([]models.ListingPriceHistory, error)
	LockExpired(ctx context.Context, now time.Time, limit int) ([]models.Listing, error)
	LockExpiring(ctx context.Context, now, horizon time.Time, limit int) ([]models.Listing, error)
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

func (r *repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Omit("AuditTrail").Create(listing).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Preload("AuditTrail", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) AppendAudit(ctx context.Context, entry *models.ListingAuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) CreatePriceHistory(ctx context.Context, entry *models.ListingPriceHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListPriceHistory(ctx context.Context, listingID uuid.UUID) ([]models.ListingPriceHistory, error) {
	var out []models.ListingPriceHistory
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// LockExpired locks live listings whose expiry is at or before now.
func (r *repository) LockExpired(ctx context.Context, now time.Time, limit int) ([]models.Listing, error) {
	var out []models.Listing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at <= ?",
			[]enums.ListingStatus{enums.ListingStatusPublished, enums.ListingStatusExpiringSoon}, now).
		Order("expires_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// LockExpiring locks PUBLISHED listings expiring in (now, horizon].
func (r *repository) LockExpiring(ctx context.Context, now, horizon time.Time, limit int) ([]models.Listing, error) {
	var out []models.Listing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND expires_at > ? AND expires_at <= ?", enums.ListingStatusPublished, now, horizon).
		Order("expires_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
