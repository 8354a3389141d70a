package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
)

// PackageDTO is the public catalog view of a package.
type PackageDTO struct {
	ID            uuid.UUID          `json:"id"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	Type          enums.PackageType  `json:"type"`
	Price         int64              `json:"price"`
	OriginalPrice int64              `json:"original_price"`
	DurationDays  int                `json:"duration_days"`
	BoostFactor   decimal.Decimal    `json:"boost_factor"`
	ListingTier   *enums.ListingTier `json:"listing_tier,omitempty"`
	Items         []PackageItemDTO   `json:"items,omitempty"`
}

type PackageItemDTO struct {
	ListingTier enums.ListingTier `json:"listing_tier"`
	Quantity    int               `json:"quantity"`
}

// Service is the catalog read surface used by checkout, settlement and approvals.
type Service struct {
	repo Repository
}

func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &Service{repo: repo}, nil
}

// ListActive returns every purchasable package in display order.
func (s *Service) ListActive(ctx context.Context) ([]PackageDTO, error) {
	pkgs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list packages")
	}
	out := make([]PackageDTO, 0, len(pkgs))
	for _, pkg := range pkgs {
		out = append(out, toDTO(pkg))
	}
	return out, nil
}

// ResolveByCodes maps normalized codes to active packages. Any code that does
// not resolve fails the whole lookup with UNKNOWN_PACKAGE listing the misses.
func (s *Service) ResolveByCodes(ctx context.Context, tx *gorm.DB, codes []string) (map[string]models.ListingPackage, error) {
	pkgs, err := s.repo.WithTx(tx).FindActiveByCodes(ctx, codes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve packages")
	}
	byCode := make(map[string]models.ListingPackage, len(pkgs))
	for _, pkg := range pkgs {
		byCode[NormalizeCode(pkg.Code)] = pkg
	}

	var missing []string
	for _, code := range codes {
		if _, ok := byCode[code]; !ok {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, pkgerrors.New(pkgerrors.CodeUnknownPackage, "unknown or inactive package codes").
			WithDetails(map[string]any{"codes": missing})
	}
	return byCode, nil
}

// PackageItems returns the tier bundle of a COMBO package.
func (s *Service) PackageItems(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) ([]models.PackageItem, error) {
	items, err := s.repo.WithTx(tx).FindItems(ctx, packageID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load package items")
	}
	return items, nil
}

// TierPolicy returns the active policy for tier, or nil when none is configured.
func (s *Service) TierPolicy(ctx context.Context, tx *gorm.DB, tier enums.ListingTier) (*models.ListingTierPolicy, error) {
	policy, err := s.repo.WithTx(tx).FindTierPolicy(ctx, tier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tier policy")
	}
	return policy, nil
}

// CreatePackage validates and stores a package together with its items.
func (s *Service) CreatePackage(ctx context.Context, pkg models.ListingPackage) (*models.ListingPackage, error) {
	pkg.Code = NormalizeCode(pkg.Code)
	if err := ValidatePackage(pkg); err != nil {
		return nil, err
	}
	for idx := range pkg.Items {
		pkg.Items[idx].Position = idx
	}
	if err := s.repo.CreatePackage(ctx, &pkg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create package")
	}
	return &pkg, nil
}

// SaveTierPolicy inserts or replaces the policy for a tier.
func (s *Service) SaveTierPolicy(ctx context.Context, policy models.ListingTierPolicy) error {
	if !policy.Tier.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid listing tier")
	}
	if policy.DurationDays <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "duration_days must be positive")
	}
	if err := s.repo.SaveTierPolicy(ctx, &policy); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save tier policy")
	}
	return nil
}

func toDTO(pkg models.ListingPackage) PackageDTO {
	dto := PackageDTO{
		ID:            pkg.ID,
		Code:          pkg.Code,
		Name:          pkg.Name,
		Type:          pkg.Type,
		Price:         pkg.Price,
		OriginalPrice: pkg.OriginalPrice,
		DurationDays:  pkg.DurationDays,
		BoostFactor:   pkg.BoostFactor,
		ListingTier:   pkg.ListingTier,
	}
	for _, item := range pkg.Items {
		dto.Items = append(dto.Items, PackageItemDTO{ListingTier: item.ListingTier, Quantity: item.Quantity})
	}
	return dto
}
