package enums

import "fmt"

// ListingStatus maps to the listing_status enum in Postgres.
type ListingStatus string

const (
	ListingStatusDraft         ListingStatus = "DRAFT"
	ListingStatusPendingReview ListingStatus = "PENDING_REVIEW"
	ListingStatusPublished     ListingStatus = "PUBLISHED"
	ListingStatusRejected      ListingStatus = "REJECTED"
	ListingStatusExpired       ListingStatus = "EXPIRED"
	ListingStatusExpiringSoon  ListingStatus = "EXPIRING_SOON"
	ListingStatusHidden        ListingStatus = "HIDDEN"
	ListingStatusArchived      ListingStatus = "ARCHIVED"
)

var validListingStatuses = []ListingStatus{
	ListingStatusDraft,
	ListingStatusPendingReview,
	ListingStatusPublished,
	ListingStatusRejected,
	ListingStatusExpired,
	ListingStatusExpiringSoon,
	ListingStatusHidden,
	ListingStatusArchived,
}

// IsValid reports whether the value matches the canonical listing_status enum.
func (s ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsLive reports whether the listing is publicly visible.
func (s ListingStatus) IsLive() bool {
	return s == ListingStatusPublished || s == ListingStatusExpiringSoon
}

// ParseListingStatus converts raw input into ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}
