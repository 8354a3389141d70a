package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/listingz-backend/api/responses"
	"github.com/angelmondragon/listingz-backend/internal/catalog"
	"github.com/angelmondragon/listingz-backend/internal/inventory"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
)

type packageLister interface {
	ListActive(ctx context.Context) ([]catalog.PackageDTO, error)
}

type balanceReader interface {
	Balances(ctx context.Context, userID uuid.UUID) ([]inventory.Balance, error)
}

// ListPackages returns the purchasable catalog.
func ListPackages(svc packageLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		packages, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, packages)
	}
}

// InventoryBalances returns the caller's unspent listing units per tier.
func InventoryBalances(svc balanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balances, err := svc.Balances(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balances)
	}
}
