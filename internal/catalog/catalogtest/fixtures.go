// Package catalogtest seeds the default catalog into test databases.
package catalogtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// Catalog holds the seeded packages keyed by code.
type Catalog struct {
	Packages map[string]models.ListingPackage
}

// Seed inserts the same packages and tier policies as the seed migration.
func Seed(t testing.TB, conn *gorm.DB) Catalog {
	t.Helper()

	policies := []models.ListingTierPolicy{
		{Tier: enums.ListingTierNormal, Price: 0, BoostFactor: decimal.RequireFromString("1.00"), DurationDays: 30, VerificationSLAMinutes: 1440, Active: true},
		{Tier: enums.ListingTierSilver, Price: 30000, BoostFactor: decimal.RequireFromString("1.50"), DurationDays: 30, VerificationSLAMinutes: 720, Active: true},
		{Tier: enums.ListingTierGold, Price: 60000, BoostFactor: decimal.RequireFromString("2.00"), DurationDays: 45, VerificationSLAMinutes: 240, Active: true},
		{Tier: enums.ListingTierVIP, Price: 100000, BoostFactor: decimal.RequireFromString("3.00"), DurationDays: 60, VerificationSLAMinutes: 60, Active: true},
	}
	if err := conn.Create(&policies).Error; err != nil {
		t.Fatalf("seed tier policies: %v", err)
	}

	pkgs := []models.ListingPackage{
		single("SILVER_SINGLE", "Silver listing", 30000, 30, "1.50", enums.ListingTierSilver, 10),
		single("GOLD_SINGLE", "Gold listing", 60000, 45, "2.00", enums.ListingTierGold, 20),
		single("VIP_SINGLE", "VIP listing", 100000, 60, "3.00", enums.ListingTierVIP, 30),
		{
			Code:          "STARTER_COMBO",
			Name:          "Starter bundle",
			Type:          enums.PackageTypeCombo,
			Price:         150000,
			OriginalPrice: 180000,
			DurationDays:  30,
			BoostFactor:   decimal.RequireFromString("1.00"),
			Active:        true,
			SortOrder:     40,
			Items: []models.PackageItem{
				{ListingTier: enums.ListingTierSilver, Quantity: 2, Position: 0},
				{ListingTier: enums.ListingTierGold, Quantity: 1, Position: 1},
			},
		},
	}
	out := Catalog{Packages: make(map[string]models.ListingPackage, len(pkgs))}
	for i := range pkgs {
		if err := conn.Create(&pkgs[i]).Error; err != nil {
			t.Fatalf("seed package %s: %v", pkgs[i].Code, err)
		}
		out.Packages[pkgs[i].Code] = pkgs[i]
	}
	return out
}

// Deactivate flips a seeded package to inactive.
func Deactivate(t testing.TB, conn *gorm.DB, code string) {
	t.Helper()
	if err := conn.Model(&models.ListingPackage{}).Where("code = ?", code).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate %s: %v", code, err)
	}
}

func single(code, name string, price int64, days int, boost string, tier enums.ListingTier, sort int) models.ListingPackage {
	t := tier
	return models.ListingPackage{
		Code:          code,
		Name:          name,
		Type:          enums.PackageTypeSingle,
		Price:         price,
		OriginalPrice: price,
		DurationDays:  days,
		BoostFactor:   decimal.RequireFromString(boost),
		ListingTier:   &t,
		Active:        true,
		SortOrder:     sort,
	}
}
