package reports

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/db/models"
)

const reporterConstraint = "ux_listing_reports_reporter"

// Repository stores listing reports.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, report *models.ListingReport) error
	CountByListing(ctx context.Context, listingID uuid.UUID) (int64, error)
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

func (r *repository) Create(ctx context.Context, report *models.ListingReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *repository) CountByListing(ctx context.Context, listingID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ListingReport{}).
		Where("listing_id = ?", listingID).
		Count(&count).Error
	return count, err
}
