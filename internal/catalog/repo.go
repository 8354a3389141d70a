package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// Repository reads and writes catalog packages and tier policies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActive(ctx context.Context) ([]models.ListingPackage, error)
	FindActiveByCodes(ctx context.Context, codes []string) ([]models.ListingPackage, error)
	FindItems(ctx context.Context, packageID uuid.UUID) ([]models.PackageItem, error)
	FindTierPolicy(ctx context.Context, tier enums.ListingTier) (*models.ListingTierPolicy, error)
	CreatePackage(ctx context.Context, pkg *models.ListingPackage) error
	SaveTierPolicy(ctx context.Context, policy *models.ListingTierPolicy) error
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

func (r *repository) ListActive(ctx context.Context) ([]models.ListingPackage, error) {
	var pkgs []models.ListingPackage
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("active = ?", true).
		Order("sort_order ASC").
		Order("code ASC").
		Find(&pkgs).Error
	return pkgs, err
}

func (r *repository) FindActiveByCodes(ctx context.Context, codes []string) ([]models.ListingPackage, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var pkgs []models.ListingPackage
	err := r.db.WithContext(ctx).
		Where("code IN ? AND active = ?", codes, true).
		Find(&pkgs).Error
	return pkgs, err
}

func (r *repository) FindItems(ctx context.Context, packageID uuid.UUID) ([]models.PackageItem, error) {
	var items []models.PackageItem
	err := r.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("position ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) FindTierPolicy(ctx context.Context, tier enums.ListingTier) (*models.ListingTierPolicy, error) {
	var policy models.ListingTierPolicy
	err := r.db.WithContext(ctx).
		Where("tier = ? AND active = ?", tier, true).
		First(&policy).Error
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *repository) CreatePackage(ctx context.Context, pkg *models.ListingPackage) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *repository) SaveTierPolicy(ctx context.Context, policy *models.ListingTierPolicy) error {
	return r.db.WithContext(ctx).Save(policy).Error
}
