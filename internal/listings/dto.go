package listings

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

// ListingDTO is the API view of a listing. AuditTrail is only filled for the
// owner and admins.
type ListingDTO struct {
	ID            uuid.UUID           `json:"id"`
	OwnerID       uuid.UUID           `json:"owner_id"`
	Title         string              `json:"title"`
	Slug          string              `json:"slug"`
	Description   string              `json:"description"`
	Price         int64               `json:"price"`
	Status        enums.ListingStatus `json:"status"`
	ListingTier   enums.ListingTier   `json:"listing_tier"`
	RequestedTier *enums.ListingTier  `json:"requested_tier,omitempty"`
	PostedAt      *time.Time          `json:"posted_at,omitempty"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
	ReportCount   int                 `json:"report_count"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	AuditTrail    []AuditEntryDTO     `json:"audit_trail,omitempty"`
}

type AuditEntryDTO struct {
	ActorID   *uuid.UUID             `json:"actor_id,omitempty"`
	Type      enums.ListingAuditType `json:"type"`
	Message   string                 `json:"message"`
	CreatedAt time.Time              `json:"created_at"`
}

func toDTO(listing models.Listing, withAudit bool) ListingDTO {
	dto := ListingDTO{
		ID:            listing.ID,
		OwnerID:       listing.OwnerID,
		Title:         listing.Title,
		Slug:          listing.Slug,
		Description:   listing.Description,
		Price:         listing.Price,
		Status:        listing.Status,
		ListingTier:   listing.ListingTier,
		RequestedTier: listing.RequestedTier,
		PostedAt:      listing.PostedAt,
		ExpiresAt:     listing.ExpiresAt,
		ReportCount:   listing.ReportCount,
		CreatedAt:     listing.CreatedAt,
		UpdatedAt:     listing.UpdatedAt,
	}
	if !withAudit {
		return dto
	}
	dto.AuditTrail = make([]AuditEntryDTO, 0, len(listing.AuditTrail))
	for _, entry := range listing.AuditTrail {
		dto.AuditTrail = append(dto.AuditTrail, AuditEntryDTO{
			ActorID:   entry.ActorID,
			Type:      entry.Type,
			Message:   entry.Message,
			CreatedAt: entry.CreatedAt,
		})
	}
	return dto
}
