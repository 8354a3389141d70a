package listings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/internal/notifications"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
)

// ApproveInput carries the moderator's decision. TargetTier and DurationDays
// are optional overrides.
type ApproveInput struct {
	ListingID    uuid.UUID
	TargetTier   *enums.ListingTier
	DurationDays *int
	Note         string
	Actor        auth.Actor
}

// Approve publishes a PENDING_REVIEW listing. Upgrading the tier consumes one
// unit of the target tier from the owner's inventory in the same transaction,
// so a failed debit leaves the listing untouched.
func (s *Service) Approve(ctx context.Context, input ApproveInput) (*ListingDTO, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.DurationDays != nil && *input.DurationDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration days must be positive")
	}
	if input.TargetTier != nil && !input.TargetTier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target tier")
	}

	var (
		result  models.Listing
		debited *enums.ListingTier
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindForUpdate(ctx, input.ListingID)
		if err != nil {
			return mapLoadError(err)
		}
		if listing.Status != enums.ListingStatusPendingReview {
			return invalidTransition(listing.Status, enums.ListingStatusPublished)
		}

		current := listing.ListingTier
		effective := current
		if listing.RequestedTier != nil {
			effective = *listing.RequestedTier
		}
		if input.TargetTier != nil {
			effective = *input.TargetTier
		}
		switch {
		case effective.Rank() < current.Rank():
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cannot approve %s listing as %s", current, effective))
		case effective.Rank() > current.Rank():
			if err := s.inventory.Debit(ctx, tx, listing.OwnerID, effective, 1); err != nil {
				return err
			}
			debited = &effective
		}

		days, err := s.durationFor(ctx, tx, effective, input.DurationDays)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		expiresAt := now.Add(time.Duration(days) * 24 * time.Hour)
		updates := map[string]any{
			"status":         enums.ListingStatusPublished,
			"listing_tier":   effective,
			"requested_tier": nil,
			"expires_at":     expiresAt,
		}
		if listing.PostedAt == nil {
			updates["posted_at"] = now
			listing.PostedAt = &now
		}
		if err := repo.Update(ctx, listing.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve listing")
		}

		from := listing.Status
		listing.Status = enums.ListingStatusPublished
		listing.ListingTier = effective
		listing.RequestedTier = nil
		listing.ExpiresAt = &expiresAt

		message := strings.TrimSpace(input.Note)
		if message == "" {
			message = fmt.Sprintf("approved as %s for %d days", effective, days)
		}
		if err := s.record(ctx, tx, listing, from, enums.ListingAuditApproved, message, input.Actor); err != nil {
			return err
		}
		result = *listing
		return nil
	})
	if err != nil {
		return nil, err
	}

	if debited != nil {
		s.metrics.AddInventoryDebit(string(*debited), 1)
	}
	s.logg.Info(s.logg.WithField(s.logg.WithListingID(ctx, result.ID.String()), "listing_tier", result.ListingTier), "listing approved")
	s.notifier.Notify(ctx, notifications.Message{
		UserID:  result.OwnerID,
		Type:    enums.NotificationTypeListingApproved,
		Title:   "Listing approved",
		Message: fmt.Sprintf("%q is now live as a %s listing.", result.Title, result.ListingTier),
		Link:    listingLink(result.ID),
	})
	dto := toDTO(result, false)
	return &dto, nil
}

// durationFor picks the override, then the tier policy, then the configured default.
func (s *Service) durationFor(ctx context.Context, tx *gorm.DB, tier enums.ListingTier, override *int) (int, error) {
	if override != nil {
		return *override, nil
	}
	policy, err := s.policies.TierPolicy(ctx, tx, tier)
	if err != nil {
		return 0, err
	}
	if policy != nil && policy.DurationDays > 0 {
		return policy.DurationDays, nil
	}
	return s.defaultDuration, nil
}

// Reject closes the review of a PENDING_REVIEW listing. Inventory is untouched.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*ListingDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}

	result, err := s.simpleTransition(ctx, actor, id, func(listing *models.Listing) (map[string]any, error) {
		if listing.Status != enums.ListingStatusPendingReview {
			return nil, invalidTransition(listing.Status, enums.ListingStatusRejected)
		}
		listing.Status = enums.ListingStatusRejected
		listing.RequestedTier = nil
		return map[string]any{"status": enums.ListingStatusRejected, "requested_tier": nil}, nil
	}, enums.ListingAuditRejected, reason)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Message{
		UserID:  result.OwnerID,
		Type:    enums.NotificationTypeListingRejected,
		Title:   "Listing rejected",
		Message: fmt.Sprintf("%q was rejected: %s", result.Title, reason),
		Link:    listingLink(result.ID),
	})
	dto := toDTO(*result, false)
	return &dto, nil
}

// Hide takes a live listing off the marketplace and remembers its status.
func (s *Service) Hide(ctx context.Context, actor auth.Actor, id uuid.UUID) (*ListingDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	result, err := s.simpleTransition(ctx, actor, id, func(listing *models.Listing) (map[string]any, error) {
		if !listing.Status.IsLive() {
			return nil, invalidTransition(listing.Status, enums.ListingStatusHidden)
		}
		previous := listing.Status
		listing.HiddenFromStatus = &previous
		listing.Status = enums.ListingStatusHidden
		return map[string]any{"status": enums.ListingStatusHidden, "hidden_from_status": previous}, nil
	}, enums.ListingAuditHidden, "hidden by moderator")
	if err != nil {
		return nil, err
	}
	dto := toDTO(*result, false)
	return &dto, nil
}

// Unhide restores a HIDDEN listing to the status it was hidden from. Listings
// whose expiry has passed stay hidden.
func (s *Service) Unhide(ctx context.Context, actor auth.Actor, id uuid.UUID) (*ListingDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	result, err := s.simpleTransition(ctx, actor, id, func(listing *models.Listing) (map[string]any, error) {
		if listing.Status != enums.ListingStatusHidden {
			return nil, invalidTransition(listing.Status, enums.ListingStatusPublished)
		}
		if listing.ExpiresAt != nil && listing.ExpiresAt.Before(s.now().UTC()) {
			return nil, pkgerrors.New(pkgerrors.CodeExpiredListing, "listing expired while hidden").
				WithDetails(map[string]any{"expires_at": listing.ExpiresAt})
		}
		restored := enums.ListingStatusPublished
		if listing.HiddenFromStatus != nil && listing.HiddenFromStatus.IsLive() {
			restored = *listing.HiddenFromStatus
		}
		listing.Status = restored
		listing.HiddenFromStatus = nil
		return map[string]any{"status": restored, "hidden_from_status": nil}, nil
	}, enums.ListingAuditUnhidden, "restored by moderator")
	if err != nil {
		return nil, err
	}
	dto := toDTO(*result, false)
	return &dto, nil
}

// simpleTransition locks the listing, lets apply validate and mutate it, then
// persists the updates together with the audit entry and outbox event.
func (s *Service) simpleTransition(
	ctx context.Context,
	actor auth.Actor,
	id uuid.UUID,
	apply func(listing *models.Listing) (map[string]any, error),
	auditType enums.ListingAuditType,
	message string,
) (*models.Listing, error) {
	var result models.Listing
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindForUpdate(ctx, id)
		if err != nil {
			return mapLoadError(err)
		}
		from := listing.Status
		updates, err := apply(listing)
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, listing.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
		}
		if err := s.record(ctx, tx, listing, from, auditType, message, actor); err != nil {
			return err
		}
		result = *listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithListingID(ctx, id.String()), map[string]any{
		"status": result.Status,
	}), "listing status changed")
	return &result, nil
}

func listingLink(id uuid.UUID) string {
	return "/properties/" + id.String()
}
