package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/listingz-backend/internal/listings"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
)

type fakeListings struct {
	created       listings.CreateInput
	requestedTier string
	price         int64
	err           error
}

func (f *fakeListings) Create(ctx context.Context, actor auth.Actor, input listings.CreateInput) (*listings.ListingDTO, error) {
	f.created = input
	return &listings.ListingDTO{ID: uuid.New(), OwnerID: actor.UserID, Title: input.Title, Status: enums.ListingStatusDraft}, f.err
}

func (f *fakeListings) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*listings.ListingDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &listings.ListingDTO{ID: id}, nil
}

func (f *fakeListings) Submit(ctx context.Context, actor auth.Actor, id uuid.UUID, requestedTier string) (*listings.ListingDTO, error) {
	f.requestedTier = requestedTier
	if f.err != nil {
		return nil, f.err
	}
	return &listings.ListingDTO{ID: id, Status: enums.ListingStatusPendingReview}, nil
}

func (f *fakeListings) UpdatePrice(ctx context.Context, actor auth.Actor, id uuid.UUID, price int64) (*listings.ListingDTO, error) {
	f.price = price
	return &listings.ListingDTO{ID: id, Price: price}, f.err
}

func (f *fakeListings) PriceHistory(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]models.ListingPriceHistory, error) {
	return []models.ListingPriceHistory{{ListingID: id, OldPrice: 100, NewPrice: 120}}, f.err
}

func TestCreateProperty(t *testing.T) {
	svc := &fakeListings{}
	actor := userActor()
	rec := serve(t, CreateProperty(svc, nil), call{
		method: http.MethodPost,
		target: "/api/v1/properties",
		body:   `{"title":"  Loft in Old Town ","description":"sunny","price":250000}`,
		actor:  &actor,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "Loft in Old Town", svc.created.Title)
	require.Equal(t, int64(250000), svc.created.Price)
}

func TestCreatePropertyValidatesBody(t *testing.T) {
	actor := userActor()
	rec := serve(t, CreateProperty(&fakeListings{}, nil), call{
		method: http.MethodPost,
		target: "/api/v1/properties",
		body:   `{"title":"","price":0}`,
		actor:  &actor,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
}

func TestSubmitPropertyWithAndWithoutTier(t *testing.T) {
	svc := &fakeListings{}
	actor := userActor()
	id := uuid.New().String()

	rec := serve(t, SubmitProperty(svc, nil), call{
		method: http.MethodPost,
		target: "/api/v1/properties/" + id + "/submit",
		body:   `{"requested_tier":"GOLD"}`,
		actor:  &actor,
		params: map[string]string{"listingId": id},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "GOLD", svc.requestedTier)

	rec = serve(t, SubmitProperty(svc, nil), call{
		method: http.MethodPost,
		target: "/api/v1/properties/" + id + "/submit",
		actor:  &actor,
		params: map[string]string{"listingId": id},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Empty(t, svc.requestedTier)
}

func TestSubmitPropertyInvalidTransition(t *testing.T) {
	svc := &fakeListings{err: pkgerrors.New(pkgerrors.CodeInvalidTransition, "listing is PENDING_REVIEW")}
	actor := userActor()
	id := uuid.New().String()
	rec := serve(t, SubmitProperty(svc, nil), call{
		method: http.MethodPost,
		target: "/api/v1/properties/" + id + "/submit",
		actor:  &actor,
		params: map[string]string{"listingId": id},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, string(pkgerrors.CodeInvalidTransition), errorCode(t, rec))
}

func TestUpdatePropertyPrice(t *testing.T) {
	svc := &fakeListings{}
	actor := userActor()
	id := uuid.New().String()
	rec := serve(t, UpdatePropertyPrice(svc, nil), call{
		method: http.MethodPatch,
		target: "/api/v1/properties/" + id + "/price",
		body:   `{"price":199000}`,
		actor:  &actor,
		params: map[string]string{"listingId": id},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(199000), svc.price)
}

func TestPropertyPriceHistory(t *testing.T) {
	actor := userActor()
	id := uuid.New().String()
	rec := serve(t, PropertyPriceHistory(&fakeListings{}, nil), call{
		method: http.MethodGet,
		target: "/api/v1/properties/" + id + "/price-history",
		actor:  &actor,
		params: map[string]string{"listingId": id},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var history []models.ListingPriceHistory
	decodeData(t, rec, &history)
	require.Len(t, history, 1)
	require.Equal(t, int64(120), history[0].NewPrice)
}

func TestPropertyDetailHidesForeignListing(t *testing.T) {
	actor := userActor()
	id := uuid.New().String()
	rec := serve(t, PropertyDetail(&fakeListings{err: pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")}, nil), call{
		method: http.MethodGet,
		target: "/api/v1/properties/" + id,
		actor:  &actor,
		params: map[string]string{"listingId": id},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}
