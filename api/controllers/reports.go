package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/listingz-backend/api/responses"
	"github.com/angelmondragon/listingz-backend/api/validators"
	"github.com/angelmondragon/listingz-backend/internal/reports"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
)

type reportRecorder interface {
	RecordReport(ctx context.Context, actor auth.Actor, listingID uuid.UUID, reason string) (*reports.Result, error)
}

type createReportRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
	Reason    string `json:"reason" validate:"required,max=500"`
}

// ReportListing files a user report against a listing.
func ReportListing(svc reportRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createReportRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := uuid.Parse(body.ListingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing id"))
			return
		}

		result, err := svc.RecordReport(r.Context(), actor, listingID, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
