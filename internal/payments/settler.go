package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/internal/ledger"
	"github.com/angelmondragon/listingz-backend/internal/notifications"
	"github.com/angelmondragon/listingz-backend/internal/orders"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/metrics"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
	"github.com/angelmondragon/listingz-backend/pkg/outbox/payloads"
)

// Settlement sources.
const (
	SourceStripe = "stripe"
	SourceAdmin  = "admin"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type packageItemReader interface {
	PackageItems(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) ([]models.PackageItem, error)
}

type inventoryCreditor interface {
	Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, tier enums.ListingTier, amount int) error
}

type ledgerRecorder interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordEventInput) (*models.PaymentLedgerEvent, error)
}

// Confirmation is a payment-succeeded signal for one order, from the gateway
// webhook or an admin.
type Confirmation struct {
	OrderID          uuid.UUID
	PaymentReference string
	IdempotencyKey   string
	Source           string
	Actor            auth.Actor
}

// Result reports what a settlement changed. Settled is false for replays.
type Result struct {
	Order         orders.OrderDTO `json:"order"`
	Settled       bool            `json:"settled"`
	CreditedItems int             `json:"credited_items"`
}

type SettlerParams struct {
	Orders    orders.Repository
	Tx        txRunner
	Catalog   packageItemReader
	Inventory inventoryCreditor
	Ledger    ledgerRecorder
	Outbox    outbox.Emitter
	Notifier  notifications.Sink
	Metrics   *metrics.DomainMetrics
	Logger    *logger.Logger
}

// Settler marks orders PAID and credits the purchased listing units exactly once.
type Settler struct {
	orders    orders.Repository
	tx        txRunner
	catalog   packageItemReader
	inventory inventoryCreditor
	ledger    ledgerRecorder
	outbox    outbox.Emitter
	notifier  notifications.Sink
	metrics   *metrics.DomainMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewSettler(params SettlerParams) (*Settler, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("payment ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.NopSink{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Settler{
		orders:    params.Orders,
		tx:        params.Tx,
		catalog:   params.Catalog,
		inventory: params.Inventory,
		ledger:    params.Ledger,
		outbox:    params.Outbox,
		notifier:  notifier,
		metrics:   params.Metrics,
		logg:      logg,
		now:       time.Now,
	}, nil
}

type tierGrant struct {
	tier  enums.ListingTier
	units int
}

// Settle applies a payment confirmation. Replays of a settled order return the
// current snapshot with Settled=false and credit nothing.
func (s *Settler) Settle(ctx context.Context, conf Confirmation) (*Result, error) {
	if conf.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	source := strings.TrimSpace(conf.Source)
	if source == "" {
		source = SourceAdmin
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, conf.OrderID.String()), map[string]any{
		"settlement_source": source,
		"payment_reference": conf.PaymentReference,
	})

	var (
		result  Result
		order   models.Order
		credits = map[enums.ListingTier]int{}
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		locked, err := repo.FindForUpdate(ctx, conf.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if locked.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("order is %s and cannot be settled", locked.Status)).
				WithDetails(map[string]any{"from": locked.Status, "to": enums.OrderStatusPaid})
		}

		now := s.now().UTC()
		if locked.Status == enums.OrderStatusPendingPayment {
			updates := map[string]any{
				"status":  enums.OrderStatusPaid,
				"paid_at": now,
			}
			if ref := strings.TrimSpace(conf.PaymentReference); ref != "" {
				updates["payment_reference"] = ref
				locked.PaymentReference = &ref
			}
			if err := repo.Update(ctx, locked.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
			}
			locked.Status = enums.OrderStatusPaid
			locked.PaidAt = &now
			result.Settled = true
		}

		for i := range locked.Items {
			item := &locked.Items[i]
			if item.CreditedAt != nil {
				continue
			}
			marked, err := repo.MarkItemCredited(ctx, item.ID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark item credited")
			}
			if !marked {
				continue
			}
			grants, err := s.grantsFor(ctx, tx, *item)
			if err != nil {
				return err
			}
			for _, grant := range grants {
				if err := s.inventory.Credit(ctx, tx, locked.UserID, grant.tier, grant.units); err != nil {
					return err
				}
				credits[grant.tier] += grant.units
			}
			item.CreditedAt = &now
			result.CreditedItems++
		}

		if result.Settled {
			if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
				OrderID:          locked.ID,
				UserID:           locked.UserID,
				Type:             enums.LedgerEventTypePaymentSettled,
				AmountCents:      locked.Total,
				Currency:         locked.Currency,
				Source:           source,
				PaymentReference: conf.PaymentReference,
				IdempotencyKey:   conf.IdempotencyKey,
				ActorID:          conf.Actor.IDPtr(),
				Metadata:         map[string]any{"credited_items": result.CreditedItems},
			}); err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   locked.ID,
				Actor:         conf.Actor.Ref(),
				OccurredAt:    now,
				Data: payloads.OrderPaidEvent{
					OrderID:          locked.ID,
					UserID:           locked.UserID,
					Total:            locked.Total,
					Currency:         locked.Currency,
					PaymentReference: conf.PaymentReference,
					Source:           source,
					PaidAt:           now,
					CreditedItems:    result.CreditedItems,
				},
			}); err != nil {
				return err
			}
		}

		order = *locked
		return nil
	})
	if err != nil {
		outcome := metrics.OutcomeFailed
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) || pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			outcome = metrics.OutcomeRejected
		}
		s.metrics.IncSettlement(source, outcome)
		return nil, err
	}

	for tier, units := range credits {
		s.metrics.AddInventoryCredit(string(tier), units)
	}
	result.Order = orders.ToDTO(order)

	if !result.Settled {
		s.metrics.IncSettlement(source, metrics.OutcomeReplayed)
		s.logg.Info(s.logg.WithField(logCtx, "credited_items", result.CreditedItems), "settlement replay ignored")
		return &result, nil
	}

	s.metrics.IncSettlement(source, metrics.OutcomeSettled)
	s.logg.Info(s.logg.WithField(logCtx, "credited_items", result.CreditedItems), "order settled")
	s.notifier.Notify(ctx, notifications.Message{
		UserID:  order.UserID,
		Type:    enums.NotificationTypeOrderPaid,
		Title:   "Payment received",
		Message: fmt.Sprintf("Your order %s is paid and the listing credits are in your inventory.", order.ID),
		Link:    "/orders/" + order.ID.String(),
	})
	return &result, nil
}

// grantsFor expands an order item into per-tier inventory credits.
func (s *Settler) grantsFor(ctx context.Context, tx *gorm.DB, item models.OrderItem) ([]tierGrant, error) {
	switch item.ItemType {
	case enums.PackageTypeSingle:
		if item.ListingTier == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "single package item has no tier").
				WithDetails(map[string]any{"order_item_id": item.ID})
		}
		return []tierGrant{{tier: *item.ListingTier, units: item.Quantity}}, nil
	case enums.PackageTypeCombo:
		components, err := s.catalog.PackageItems(ctx, tx, item.PackageID)
		if err != nil {
			return nil, err
		}
		grants := make([]tierGrant, 0, len(components))
		for _, component := range components {
			grants = append(grants, tierGrant{tier: component.ListingTier, units: component.Quantity * item.Quantity})
		}
		return grants, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unsupported package type %s", item.ItemType))
	}
}
