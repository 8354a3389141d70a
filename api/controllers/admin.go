package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/listingz-backend/api/responses"
	"github.com/angelmondragon/listingz-backend/api/validators"
	"github.com/angelmondragon/listingz-backend/internal/listings"
	"github.com/angelmondragon/listingz-backend/internal/orders"
	"github.com/angelmondragon/listingz-backend/internal/payments"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
)

// ModerationService is the admin listing lifecycle surface.
type ModerationService interface {
	Approve(ctx context.Context, input listings.ApproveInput) (*listings.ListingDTO, error)
	Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*listings.ListingDTO, error)
	Hide(ctx context.Context, actor auth.Actor, id uuid.UUID) (*listings.ListingDTO, error)
	Unhide(ctx context.Context, actor auth.Actor, id uuid.UUID) (*listings.ListingDTO, error)
}

type orderRefunder interface {
	Refund(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*orders.OrderDTO, error)
}

type paymentSettler interface {
	Settle(ctx context.Context, conf payments.Confirmation) (*payments.Result, error)
}

type approvePropertyRequest struct {
	TargetTier   *string `json:"target_tier"`
	DurationDays *int    `json:"duration_days" validate:"omitempty,min=1,max=365"`
	Note         string  `json:"note" validate:"max=1000"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type processPaymentRequest struct {
	PaymentReference string `json:"payment_reference" validate:"required,max=255"`
}

// AdminApproveProperty publishes a listing under review. A target tier above
// the current one consumes a unit from the owner's inventory.
func AdminApproveProperty(svc ModerationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderation service unavailable"))
			return
		}
		actor, id, err := actorAndUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body approvePropertyRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := listings.ApproveInput{
			ListingID:    id,
			DurationDays: body.DurationDays,
			Note:         validators.SanitizeString(body.Note, 1000),
			Actor:        actor,
		}
		if body.TargetTier != nil && strings.TrimSpace(*body.TargetTier) != "" {
			tier, err := enums.ParseListingTier(*body.TargetTier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target tier"))
				return
			}
			input.TargetTier = &tier
		}

		listing, err := svc.Approve(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func AdminRejectProperty(svc ModerationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderation service unavailable"))
			return
		}
		actor, id, err := actorAndUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reasonRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		listing, err := svc.Reject(r.Context(), actor, id, validators.SanitizeString(body.Reason, 1000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func AdminHideProperty(svc ModerationService, logg *logger.Logger) http.HandlerFunc {
	return moderationToggle(logg, func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*listings.ListingDTO, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "moderation service unavailable")
		}
		return svc.Hide(ctx, actor, id)
	})
}

func AdminUnhideProperty(svc ModerationService, logg *logger.Logger) http.HandlerFunc {
	return moderationToggle(logg, func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*listings.ListingDTO, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "moderation service unavailable")
		}
		return svc.Unhide(ctx, actor, id)
	})
}

func moderationToggle(logg *logger.Logger, apply func(context.Context, auth.Actor, uuid.UUID) (*listings.ListingDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, err := actorAndUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := apply(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// AdminProcessPayment settles an order from an out-of-band payment. Replays
// with the same Idempotency-Key return the current order without crediting
// inventory again.
func AdminProcessPayment(svc paymentSettler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement unavailable"))
			return
		}
		actor, orderID, err := actorAndUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body processPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if key == "" {
			key = "admin:" + orderID.String()
		}

		result, err := svc.Settle(r.Context(), payments.Confirmation{
			OrderID:          orderID,
			PaymentReference: strings.TrimSpace(body.PaymentReference),
			IdempotencyKey:   key,
			Source:           payments.SourceAdmin,
			Actor:            actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminRefundOrder(svc orderRefunder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, orderID, err := actorAndUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reasonRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Refund(r.Context(), actor, orderID, validators.SanitizeString(body.Reason, 1000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
