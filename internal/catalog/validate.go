package catalog

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
)

// NormalizeCode canonicalizes a package code for lookups.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidatePackage enforces the package shape: a SINGLE names exactly one tier
// and bundles nothing, a COMBO has no tier of its own and at least one item.
func ValidatePackage(pkg models.ListingPackage) error {
	var problems []string
	if NormalizeCode(pkg.Code) == "" {
		problems = append(problems, "code is required")
	}
	if strings.TrimSpace(pkg.Name) == "" {
		problems = append(problems, "name is required")
	}
	if pkg.Price < 0 || pkg.OriginalPrice < 0 {
		problems = append(problems, "prices must be non-negative")
	}
	if pkg.DurationDays <= 0 {
		problems = append(problems, "duration_days must be positive")
	}

	switch pkg.Type {
	case enums.PackageTypeSingle:
		if pkg.ListingTier == nil || !pkg.ListingTier.IsValid() {
			problems = append(problems, "single package requires a listing tier")
		}
		if len(pkg.Items) > 0 {
			problems = append(problems, "single package cannot bundle items")
		}
	case enums.PackageTypeCombo:
		if pkg.ListingTier != nil {
			problems = append(problems, "combo package cannot carry a listing tier")
		}
		if len(pkg.Items) == 0 {
			problems = append(problems, "combo package requires at least one item")
		}
		for idx, item := range pkg.Items {
			if !item.ListingTier.IsValid() {
				problems = append(problems, fmt.Sprintf("items[%d]: invalid listing tier %q", idx, item.ListingTier))
			}
			if item.Quantity < 1 {
				problems = append(problems, fmt.Sprintf("items[%d]: quantity must be at least 1", idx))
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown package type %q", pkg.Type))
	}

	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid listing package").
			WithDetails(map[string]any{"problems": problems})
	}
	return nil
}
