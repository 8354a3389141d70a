package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/listingz-backend/api/responses"
	"github.com/angelmondragon/listingz-backend/api/validators"
	"github.com/angelmondragon/listingz-backend/internal/orders"
	"github.com/angelmondragon/listingz-backend/internal/payments"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/pagination"
)

// OrdersService is the buyer-facing order surface.
type OrdersService interface {
	Create(ctx context.Context, actor auth.Actor, lines []orders.CartLine) (*orders.OrderDTO, error)
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*orders.OrderDTO, error)
	List(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[orders.OrderDTO], error)
	Cancel(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*orders.OrderDTO, error)
}

type paymentIntentCreator interface {
	CreateForOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*payments.PaymentIntent, error)
}

type createOrderRequest struct {
	Items []orders.CartLine `json:"items" validate:"dive"`
}

// CreateOrder prices the cart against the active catalog and stores a
// PENDING_PAYMENT order.
func CreateOrder(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), actor, body.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListOrders pages through the caller's orders, newest first.
func ListOrders(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		page, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func OrderDetail(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
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
		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func CancelOrder(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
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
		order, err := svc.Cancel(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// CreatePaymentIntent asks the gateway for a client secret the buyer can
// confirm. Settlement happens later through the payments webhook.
func CreatePaymentIntent(svc paymentIntentCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway unavailable"))
			return
		}
		actor, orderID, err := actorAndUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		intent, err := svc.CreateForOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

func actorAndUUID(r *http.Request, param string) (auth.Actor, uuid.UUID, error) {
	actor, err := requireActor(r)
	if err != nil {
		return auth.Actor{}, uuid.Nil, err
	}
	id, err := validators.ParseUUIDParam(r, param)
	if err != nil {
		return auth.Actor{}, uuid.Nil, err
	}
	return actor, id, nil
}
