package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/listingz-backend/internal/listings"
	"github.com/angelmondragon/listingz-backend/internal/orders"
	"github.com/angelmondragon/listingz-backend/internal/payments"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
)

type fakeModeration struct {
	approve listings.ApproveInput
	reason  string
	hidden  bool
	err     error
}

func (f *fakeModeration) Approve(ctx context.Context, input listings.ApproveInput) (*listings.ListingDTO, error) {
	f.approve = input
	if f.err != nil {
		return nil, f.err
	}
	return &listings.ListingDTO{ID: input.ListingID, Status: enums.ListingStatusPublished}, nil
}

func (f *fakeModeration) Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*listings.ListingDTO, error) {
	f.reason = reason
	return &listings.ListingDTO{ID: id, Status: enums.ListingStatusRejected}, f.err
}

func (f *fakeModeration) Hide(ctx context.Context, actor auth.Actor, id uuid.UUID) (*listings.ListingDTO, error) {
	f.hidden = true
	return &listings.ListingDTO{ID: id, Status: enums.ListingStatusHidden}, f.err
}

func (f *fakeModeration) Unhide(ctx context.Context, actor auth.Actor, id uuid.UUID) (*listings.ListingDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.hidden = false
	return &listings.ListingDTO{ID: id, Status: enums.ListingStatusPublished}, nil
}

type fakeSettler struct {
	conf payments.Confirmation
}

func (f *fakeSettler) Settle(ctx context.Context, conf payments.Confirmation) (*payments.Result, error) {
	f.conf = conf
	return &payments.Result{Order: orders.OrderDTO{ID: conf.OrderID, Status: enums.OrderStatusPaid}, Settled: true, CreditedItems: 1}, nil
}

type fakeRefunder struct {
	reason string
}

func (f *fakeRefunder) Refund(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*orders.OrderDTO, error) {
	f.reason = reason
	return &orders.OrderDTO{ID: orderID, Status: enums.OrderStatusRefunded}, nil
}

func TestAdminApprovePropertyParsesOverrides(t *testing.T) {
	svc := &fakeModeration{}
	admin := adminActor()
	id := uuid.New()
	rec := serve(t, AdminApproveProperty(svc, nil), call{
		method: http.MethodPost,
		target: "/api/admin/v1/properties/" + id.String() + "/approve",
		body:   `{"target_tier":"gold","duration_days":7,"note":"looks good"}`,
		actor:  &admin,
		params: map[string]string{"listingId": id.String()},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, id, svc.approve.ListingID)
	require.NotNil(t, svc.approve.TargetTier)
	require.Equal(t, enums.ListingTierGold, *svc.approve.TargetTier)
	require.NotNil(t, svc.approve.DurationDays)
	require.Equal(t, 7, *svc.approve.DurationDays)
	require.Equal(t, admin.UserID, svc.approve.Actor.UserID)
}

func TestAdminApprovePropertyWithoutBody(t *testing.T) {
	svc := &fakeModeration{}
	admin := adminActor()
	id := uuid.New().String()
	rec := serve(t, AdminApproveProperty(svc, nil), call{
		method: http.MethodPost,
		target: "/api/admin/v1/properties/" + id + "/approve",
		actor:  &admin,
		params: map[string]string{"listingId": id},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Nil(t, svc.approve.TargetTier)
	require.Nil(t, svc.approve.DurationDays)
}

func TestAdminApprovePropertyRejectsUnknownTier(t *testing.T) {
	admin := adminActor()
	id := uuid.New().String()
	rec := serve(t, AdminApproveProperty(&fakeModeration{}, nil), call{
		method: http.MethodPost,
		target: "/api/admin/v1/properties/" + id + "/approve",
		body:   `{"target_tier":"PLATINUM"}`,
		actor:  &admin,
		params: map[string]string{"listingId": id},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminApprovePropertyInsufficientInventory(t *testing.T) {
	svc := &fakeModeration{err: pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient listing inventory")}
	admin := adminActor()
	id := uuid.New().String()
	rec := serve(t, AdminApproveProperty(svc, nil), call{
		method: http.MethodPost,
		target: "/api/admin/v1/properties/" + id + "/approve",
		body:   `{"target_tier":"VIP"}`,
		actor:  &admin,
		params: map[string]string{"listingId": id},
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, string(pkgerrors.CodeInsufficientInventory), errorCode(t, rec))
}

func TestAdminRejectHideUnhide(t *testing.T) {
	svc := &fakeModeration{}
	admin := adminActor()
	id := uuid.New().String()
	params := map[string]string{"listingId": id}

	rec := serve(t, AdminRejectProperty(svc, nil), call{method: http.MethodPost, target: "/", body: `{"reason":"blurry photos"}`, actor: &admin, params: params})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "blurry photos", svc.reason)

	rec = serve(t, AdminHideProperty(svc, nil), call{method: http.MethodPost, target: "/", actor: &admin, params: params})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.hidden)

	rec = serve(t, AdminUnhideProperty(svc, nil), call{method: http.MethodPost, target: "/", actor: &admin, params: params})
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, svc.hidden)
}

func TestAdminUnhideExpired(t *testing.T) {
	svc := &fakeModeration{err: pkgerrors.New(pkgerrors.CodeExpiredListing, "listing has expired")}
	admin := adminActor()
	id := uuid.New().String()
	rec := serve(t, AdminUnhideProperty(svc, nil), call{method: http.MethodPost, target: "/", actor: &admin, params: map[string]string{"listingId": id}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, string(pkgerrors.CodeExpiredListing), errorCode(t, rec))
}

func TestAdminProcessPayment(t *testing.T) {
	svc := &fakeSettler{}
	admin := adminActor()
	id := uuid.New()
	rec := serve(t, AdminProcessPayment(svc, nil), call{
		method: http.MethodPost,
		target: "/api/admin/v1/orders/" + id.String() + "/process-payment",
		body:   `{"payment_reference":"wire-001"}`,
		actor:  &admin,
		params: map[string]string{"orderId": id.String()},
		header: map[string]string{"Idempotency-Key": "settle-1"},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, id, svc.conf.OrderID)
	require.Equal(t, payments.SourceAdmin, svc.conf.Source)
	require.Equal(t, "wire-001", svc.conf.PaymentReference)
	require.Equal(t, "settle-1", svc.conf.IdempotencyKey)

	var result payments.Result
	decodeData(t, rec, &result)
	require.True(t, result.Settled)
	require.Equal(t, enums.OrderStatusPaid, result.Order.Status)
}

func TestAdminProcessPaymentRequiresReference(t *testing.T) {
	admin := adminActor()
	id := uuid.New().String()
	rec := serve(t, AdminProcessPayment(&fakeSettler{}, nil), call{
		method: http.MethodPost,
		target: "/",
		body:   `{}`,
		actor:  &admin,
		params: map[string]string{"orderId": id},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRefundOrder(t *testing.T) {
	svc := &fakeRefunder{}
	admin := adminActor()
	id := uuid.New().String()
	rec := serve(t, AdminRefundOrder(svc, nil), call{
		method: http.MethodPost,
		target: "/",
		body:   `{"reason":"duplicate charge"}`,
		actor:  &admin,
		params: map[string]string{"orderId": id},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "duplicate charge", svc.reason)
}
