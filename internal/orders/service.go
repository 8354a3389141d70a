package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/internal/ledger"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
	"github.com/angelmondragon/listingz-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/listingz-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type packageResolver interface {
	ResolveByCodes(ctx context.Context, tx *gorm.DB, codes []string) (map[string]models.ListingPackage, error)
}

type ledgerRecorder interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordEventInput) (*models.PaymentLedgerEvent, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Catalog  packageResolver
	Ledger   ledgerRecorder
	Outbox   outbox.Emitter
	Currency string
	Logger   *logger.Logger
}

// Service builds and manages orders outside of payment settlement.
type Service struct {
	repo     Repository
	tx       txRunner
	catalog  packageResolver
	ledger   ledgerRecorder
	outbox   outbox.Emitter
	currency string
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog resolver required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger recorder required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "usd"
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		repo:     params.Repo,
		tx:       params.Tx,
		catalog:  params.Catalog,
		ledger:   params.Ledger,
		outbox:   params.Outbox,
		currency: currency,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Create prices the cart against the live catalog and persists a
// PENDING_PAYMENT order whose items are frozen copies of the packages.
func (s *Service) Create(ctx context.Context, actor auth.Actor, lines []CartLine) (*OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cart, err := NormalizeCart(lines)
	if err != nil {
		return nil, err
	}

	var created models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		codes := make([]string, 0, len(cart))
		for _, line := range cart {
			codes = append(codes, line.PackageCode)
		}
		pkgs, err := s.catalog.ResolveByCodes(ctx, tx, codes)
		if err != nil {
			return err
		}

		order := models.Order{
			UserID:   actor.UserID,
			Status:   enums.OrderStatusPendingPayment,
			Currency: s.currency,
			Items:    make([]models.OrderItem, 0, len(cart)),
		}
		for pos, line := range cart {
			pkg := pkgs[line.PackageCode]
			item, err := snapshotItem(pkg, line.Quantity, pos)
			if err != nil {
				return err
			}
			if order.Subtotal > math.MaxInt64-item.LineTotal {
				return pkgerrors.New(pkgerrors.CodeInvalidCart, "order total is out of range")
			}
			order.Subtotal += item.LineTotal
			order.Items = append(order.Items, item)
		}
		order.Total = order.Subtotal - order.Discount

		if err := s.repo.WithTx(tx).Create(ctx, &order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		created = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.Ref(),
			Data: payloads.OrderCreatedEvent{
				OrderID:  order.ID,
				UserID:   order.UserID,
				Total:    order.Total,
				Currency: order.Currency,
				Items:    len(order.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, created.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "total", created.Total), "order created")
	dto := ToDTO(created)
	return &dto, nil
}

func snapshotItem(pkg models.ListingPackage, qty, pos int) (models.OrderItem, error) {
	total, ok := lineTotal(pkg.Price, qty)
	if !ok {
		return models.OrderItem{}, pkgerrors.New(pkgerrors.CodeInvalidCart, fmt.Sprintf("line total for %s is out of range", pkg.Code))
	}
	item := models.OrderItem{
		Position:    pos,
		PackageID:   pkg.ID,
		PackageCode: pkg.Code,
		Title:       pkg.Name,
		ItemType:    pkg.Type,
		UnitPrice:   pkg.Price,
		Quantity:    qty,
		LineTotal:   total,
	}
	if pkg.Type == enums.PackageTypeSingle && pkg.ListingTier != nil {
		tier := *pkg.ListingTier
		item.ListingTier = &tier
	}
	return item, nil
}

// Get returns the order when the actor owns it or is an admin. Other callers
// see NOT_FOUND so order ids do not leak.
func (s *Service) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !actor.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := ToDTO(*order)
	return &dto, nil
}

// List pages through the actor's own orders, newest first.
func (s *Service) List(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[OrderDTO], error) {
	if actor.UserID == uuid.Nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByUser(ctx, actor.UserID, cursor, limit+1)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, ToDTO(row))
	}
	return pagination.Build(dtos, limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// Cancel moves a PENDING_PAYMENT order to CANCELED. Canceling an already
// canceled order returns it unchanged.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	var result models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if !actor.CanAccess(order.UserID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == enums.OrderStatusCanceled {
			result = *order
			return nil
		}
		if order.Status != enums.OrderStatusPendingPayment {
			return invalidTransition(order.Status, enums.OrderStatusCanceled)
		}

		now := s.now().UTC()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":      enums.OrderStatusCanceled,
			"canceled_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		order.Status = enums.OrderStatusCanceled
		order.CanceledAt = &now
		result = *order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.Ref(),
			OccurredAt:    now,
			Data:          payloads.OrderCanceledEvent{OrderID: order.ID, UserID: order.UserID, CanceledAt: now},
		})
	})
	if err != nil {
		return nil, err
	}
	dto := ToDTO(result)
	return &dto, nil
}

// Refund marks a PAID order REFUNDED and records the refund in the payment
// ledger. Inventory already credited stays with the buyer.
func (s *Service) Refund(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*OrderDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	reason = strings.TrimSpace(reason)

	var result models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if order.Status != enums.OrderStatusPaid {
			return invalidTransition(order.Status, enums.OrderStatusRefunded)
		}

		now := s.now().UTC()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":      enums.OrderStatusRefunded,
			"refunded_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund order")
		}
		order.Status = enums.OrderStatusRefunded
		order.RefundedAt = &now
		result = *order

		reference := ""
		if order.PaymentReference != nil {
			reference = *order.PaymentReference
		}
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
			OrderID:          order.ID,
			UserID:           order.UserID,
			Type:             enums.LedgerEventTypePaymentRefunded,
			AmountCents:      order.Total,
			Currency:         order.Currency,
			Source:           "admin",
			PaymentReference: reference,
			ActorID:          actor.IDPtr(),
			Metadata:         map[string]any{"reason": reason},
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.Ref(),
			OccurredAt:    now,
			Data: payloads.OrderRefundedEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				Total:      order.Total,
				Reason:     reason,
				RefundedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order refunded")
	dto := ToDTO(result)
	return &dto, nil
}

// ExpirePending expires up to limit PENDING_PAYMENT orders created before
// cutoff, one transaction per order. Orders settled concurrently are skipped.
func (s *Service) ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	ids, err := s.repo.FindPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find pending orders")
	}

	var errs error
	expired := 0
	for _, id := range ids {
		ok, err := s.expireOne(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", id, err))
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, errs
}

func (s *Service) expireOne(ctx context.Context, id uuid.UUID) (bool, error) {
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPendingPayment {
			return nil
		}
		now := s.now().UTC()
		if err := repo.Update(ctx, id, map[string]any{
			"status":     enums.OrderStatusExpired,
			"expired_at": now,
		}); err != nil {
			return err
		}
		expired = true
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   id,
			OccurredAt:    now,
			Data:          payloads.OrderExpiredEvent{OrderID: id, UserID: order.UserID, ExpiredAt: now},
		})
	})
	return expired, err
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("order cannot move from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}
