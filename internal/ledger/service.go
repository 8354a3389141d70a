package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/db"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
)

const uniqueOrderType = "ux_payment_ledger_order_type"

// Service records the money lifecycle of orders.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordEventInput) (*models.PaymentLedgerEvent, error)
	HasEvent(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentLedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordEventInput is the immutable content of one ledger row.
type RecordEventInput struct {
	OrderID          uuid.UUID
	UserID           uuid.UUID
	Type             enums.LedgerEventType
	AmountCents      int64
	Currency         string
	Source           string
	PaymentReference string
	IdempotencyKey   string
	ActorID          *uuid.UUID
	Metadata         map[string]any
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// RecordEvent appends a ledger row in tx. A second row of the same type for
// the same order fails with CONFLICT.
func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordEventInput) (*models.PaymentLedgerEvent, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger event type %q", input.Type))
	}
	if input.AmountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-negative")
	}
	source := strings.TrimSpace(input.Source)
	if source == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source is required")
	}

	event := &models.PaymentLedgerEvent{
		OrderID:          input.OrderID,
		UserID:           input.UserID,
		Type:             input.Type,
		AmountCents:      input.AmountCents,
		Currency:         strings.ToLower(strings.TrimSpace(input.Currency)),
		Source:           source,
		PaymentReference: optional(input.PaymentReference),
		IdempotencyKey:   optional(input.IdempotencyKey),
		ActorID:          input.ActorID,
	}
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode ledger metadata")
		}
		event.Metadata = raw
	}

	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		if db.IsUniqueViolation(err, uniqueOrderType) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "ledger event already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger event")
	}
	return event, nil
}

func (s *service) HasEvent(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ok, err := s.repo.WithTx(tx).Exists(ctx, orderID, eventType)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check ledger event")
	}
	return ok, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentLedgerEvent, error) {
	events, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger events")
	}
	return events, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
