package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
)

type settler interface {
	Settle(ctx context.Context, conf Confirmation) (*Result, error)
}

// WebhookService turns verified Stripe events into settlements.
type WebhookService struct {
	settler settler
	logg    *logger.Logger
}

func NewWebhookService(s settler, logg *logger.Logger) (*WebhookService, error) {
	if s == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settler required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &WebhookService{settler: s, logg: logg}, nil
}

// HandleEvent settles the order behind a succeeded payment intent. Orders that
// can no longer be settled are logged and acknowledged, since a gateway retry
// cannot change the outcome. Other event types are ignored.
func (s *WebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	if event.Type != stripe.EventTypePaymentIntentSucceeded {
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}
	rawOrderID := strings.TrimSpace(intent.Metadata[MetadataOrderID])
	orderID, err := uuid.Parse(rawOrderID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent metadata has no valid order_id").
			WithDetails(map[string]any{"payment_intent": intent.ID})
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"stripe_event_id":   event.ID,
		"payment_intent_id": intent.ID,
	})

	_, err = s.settler.Settle(ctx, Confirmation{
		OrderID:          orderID,
		PaymentReference: intent.ID,
		IdempotencyKey:   event.ID,
		Source:           SourceStripe,
	})
	if err == nil {
		return nil
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) || pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		s.logg.Warn(s.logg.WithField(logCtx, "reason", err.Error()), "payment for unsettleable order acknowledged")
		return nil
	}
	s.logg.Error(logCtx, fmt.Sprintf("settle order from stripe event %s", event.ID), err)
	return err
}
