package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/listingz-backend/internal/orders"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
)

type fakeGateway struct {
	requests []IntentRequest
	err      error
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, req IntentRequest) (*PaymentIntent, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &PaymentIntent{ID: "pi_fake", ClientSecret: "secret", Amount: req.Amount, Currency: req.Currency}, nil
}

func TestCreateForOrder(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()
	user := newBuyer()

	order, err := f.orders.Create(ctx, user, []orders.CartLine{{PackageCode: "GOLD_SINGLE", Quantity: 1}})
	require.NoError(t, err)

	gateway := &fakeGateway{}
	svc, err := NewIntentService(orders.NewRepository(f.conn), gateway)
	require.NoError(t, err)

	intent, err := svc.CreateForOrder(ctx, user, order.ID)
	require.NoError(t, err)
	require.Equal(t, "pi_fake", intent.ID)
	require.Equal(t, []IntentRequest{{
		OrderID:        order.ID,
		Amount:         60000,
		Currency:       "usd",
		IdempotencyKey: "order:" + order.ID.String(),
	}}, gateway.requests)

	_, err = svc.CreateForOrder(ctx, newBuyer(), order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	gateway.err = errors.New("card network down")
	_, err = svc.CreateForOrder(ctx, user, order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

	_, err = f.settler.Settle(ctx, Confirmation{OrderID: order.ID, Source: SourceAdmin})
	require.NoError(t, err)
	_, err = svc.CreateForOrder(ctx, auth.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)
}
