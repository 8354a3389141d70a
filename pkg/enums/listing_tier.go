package enums

import (
	"fmt"
	"strings"
)

// ListingTier maps to the listing_tier enum in Postgres. Tiers are ordered by
// visibility: NORMAL < SILVER < GOLD < VIP.
type ListingTier string

const (
	ListingTierNormal ListingTier = "NORMAL"
	ListingTierSilver ListingTier = "SILVER"
	ListingTierGold   ListingTier = "GOLD"
	ListingTierVIP    ListingTier = "VIP"
)

var validListingTiers = []ListingTier{
	ListingTierNormal,
	ListingTierSilver,
	ListingTierGold,
	ListingTierVIP,
}

// ListingTiers returns the tiers in ascending rank.
func ListingTiers() []ListingTier {
	out := make([]ListingTier, len(validListingTiers))
	copy(out, validListingTiers)
	return out
}

// Rank returns the tier's position in the visibility order, or -1 when unknown.
func (t ListingTier) Rank() int {
	for idx, candidate := range validListingTiers {
		if candidate == t {
			return idx
		}
	}
	return -1
}

// IsValid reports whether the value matches the canonical listing_tier enum.
func (t ListingTier) IsValid() bool {
	return t.Rank() >= 0
}

// ParseListingTier converts raw input (case-insensitive) into ListingTier.
func ParseListingTier(value string) (ListingTier, error) {
	normalized := ListingTier(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid listing tier %q", value)
}
