package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/internal/orders"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	pkgstripe "github.com/angelmondragon/listingz-backend/pkg/stripe"
)

// MetadataOrderID is the payment intent metadata key carrying the order id.
const MetadataOrderID = "order_id"

// IntentRequest asks the gateway to collect an order's total.
type IntentRequest struct {
	OrderID        uuid.UUID
	Amount         int64
	Currency       string
	IdempotencyKey string
}

// PaymentIntent is the gateway's handle for a pending charge.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Gateway creates payment intents with the payment provider.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*PaymentIntent, error)
}

type stripeGateway struct{}

// NewStripeGateway returns a Gateway backed by Stripe PaymentIntents. The
// client must have been built with pkg/stripe.NewClient so the API key is set.
func NewStripeGateway(client *pkgstripe.Client) (Gateway, error) {
	if client == nil || client.API() == nil {
		return nil, errors.New("stripe client required")
	}
	return &stripeGateway{}, nil
}

func (g *stripeGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata(MetadataOrderID, req.OrderID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// IntentService starts gateway payments for pending orders.
type IntentService struct {
	orders  orders.Repository
	gateway Gateway
}

func NewIntentService(repo orders.Repository, gateway Gateway) (*IntentService, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &IntentService{orders: repo, gateway: gateway}, nil
}

// CreateForOrder creates a payment intent for the order total. The gateway
// idempotency key is derived from the order id so retries reuse the intent.
func (s *IntentService) CreateForOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*PaymentIntent, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("order is %s and cannot be paid", order.Status))
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, IntentRequest{
		OrderID:        order.ID,
		Amount:         order.Total,
		Currency:       order.Currency,
		IdempotencyKey: "order:" + order.ID.String(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return intent, nil
}
