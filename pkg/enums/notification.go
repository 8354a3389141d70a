package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderPaid           NotificationType = "order_paid"
	NotificationTypeListingApproved     NotificationType = "listing_approved"
	NotificationTypeListingRejected     NotificationType = "listing_rejected"
	NotificationTypeListingExpiringSoon NotificationType = "listing_expiring_soon"
	NotificationTypeListingExpired      NotificationType = "listing_expired"
	NotificationTypeListingUnderReview  NotificationType = "listing_under_review"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPaid,
	NotificationTypeListingApproved,
	NotificationTypeListingRejected,
	NotificationTypeListingExpiringSoon,
	NotificationTypeListingExpired,
	NotificationTypeListingUnderReview,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
