package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/listingz-backend/api/responses"
	"github.com/angelmondragon/listingz-backend/api/validators"
	"github.com/angelmondragon/listingz-backend/internal/listings"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
)

// ListingsService is the owner-facing listing surface.
type ListingsService interface {
	Create(ctx context.Context, actor auth.Actor, input listings.CreateInput) (*listings.ListingDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*listings.ListingDTO, error)
	Submit(ctx context.Context, actor auth.Actor, id uuid.UUID, requestedTier string) (*listings.ListingDTO, error)
	UpdatePrice(ctx context.Context, actor auth.Actor, id uuid.UUID, price int64) (*listings.ListingDTO, error)
	PriceHistory(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]models.ListingPriceHistory, error)
}

type createPropertyRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=10000"`
	Price       int64  `json:"price" validate:"gt=0"`
}

type submitPropertyRequest struct {
	RequestedTier string `json:"requested_tier"`
}

type updatePriceRequest struct {
	Price int64 `json:"price" validate:"gt=0"`
}

func CreateProperty(svc ListingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createPropertyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Create(r.Context(), actor, listings.CreateInput{
			Title:       validators.SanitizeString(body.Title, 200),
			Description: validators.SanitizeString(body.Description, 10000),
			Price:       body.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

// PropertyDetail returns the listing with its audit trail.
func PropertyDetail(svc ListingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}
		actor, id, err := actorAndUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// SubmitProperty sends a DRAFT listing to review. An empty body keeps the
// NORMAL tier.
func SubmitProperty(svc ListingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}
		actor, id, err := actorAndUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body submitPropertyRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		listing, err := svc.Submit(r.Context(), actor, id, body.RequestedTier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func UpdatePropertyPrice(svc ListingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}
		actor, id, err := actorAndUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updatePriceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.UpdatePrice(r.Context(), actor, id, body.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func PropertyPriceHistory(svc ListingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}
		actor, id, err := actorAndUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.PriceHistory(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}
