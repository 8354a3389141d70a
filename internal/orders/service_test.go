package orders

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/internal/catalog"
	"github.com/angelmondragon/listingz-backend/internal/catalog/catalogtest"
	"github.com/angelmondragon/listingz-backend/internal/ledger"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
	"github.com/angelmondragon/listingz-backend/pkg/pagination"
)

type fixture struct {
	svc    *Service
	conn   *gorm.DB
	outbox *outbox.Repository
	ledger ledger.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	catalogtest.Seed(t, conn)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	outboxRepo := outbox.NewRepository(conn)

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       client,
		Catalog:  catalogSvc,
		Ledger:   ledgerSvc,
		Outbox:   outbox.NewService(outboxRepo, logger.Nop()),
		Currency: "USD",
		Logger:   logger.Nop(),
	})
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, outbox: outboxRepo, ledger: ledgerSvc}
}

func buyer() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: enums.UserRoleUser}
}

func admin() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func eventTypes(t *testing.T, repo *outbox.Repository, id uuid.UUID) []enums.OutboxEventType {
	t.Helper()
	rows, err := repo.ListByAggregate(context.Background(), id)
	require.NoError(t, err)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestCreatePricesCartFromCatalog(t *testing.T) {
	f := newFixture(t)
	user := buyer()

	order, err := f.svc.Create(context.Background(), user, []CartLine{
		{PackageCode: "vip_single", Quantity: 1},
		{PackageCode: "VIP_SINGLE", Quantity: 1},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	require.Equal(t, user.UserID, order.UserID)
	require.Equal(t, int64(200000), order.Subtotal)
	require.Equal(t, int64(200000), order.Total)
	require.Equal(t, "usd", order.Currency)
	require.Len(t, order.Items, 1)

	item := order.Items[0]
	require.Equal(t, "VIP_SINGLE", item.PackageCode)
	require.Equal(t, 2, item.Quantity)
	require.Equal(t, int64(100000), item.UnitPrice)
	require.Equal(t, int64(200000), item.LineTotal)
	require.NotNil(t, item.ListingTier)
	require.Equal(t, enums.ListingTierVIP, *item.ListingTier)
	require.False(t, item.Credited)

	require.Equal(t, []enums.OutboxEventType{enums.EventOrderCreated}, eventTypes(t, f.outbox, order.ID))
}

func TestCreateSnapshotsComboWithoutTier(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(context.Background(), buyer(), []CartLine{
		{PackageCode: "STARTER_COMBO", Quantity: 1},
		{PackageCode: "SILVER_SINGLE", Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	require.Equal(t, "STARTER_COMBO", order.Items[0].PackageCode)
	require.Equal(t, enums.PackageTypeCombo, order.Items[0].ItemType)
	require.Nil(t, order.Items[0].ListingTier)
	require.Equal(t, int64(150000+90000), order.Total)
}

func TestCreateRejectsUnknownAndInactivePackages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, buyer(), []CartLine{{PackageCode: "PLATINUM", Quantity: 1}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnknownPackage), "got %v", err)

	catalogtest.Deactivate(t, f.conn, "GOLD_SINGLE")
	_, err = f.svc.Create(ctx, buyer(), []CartLine{{PackageCode: "GOLD_SINGLE", Quantity: 1}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnknownPackage), "got %v", err)

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), buyer(), []CartLine{{PackageCode: "VIP_SINGLE"}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidCart), "got %v", err)
}

func TestCreateRejectsOverflowingQuantities(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), buyer(), []CartLine{
		{PackageCode: "VIP_SINGLE", Quantity: math.MaxInt / 2},
		{PackageCode: "VIP_SINGLE", Quantity: math.MaxInt / 2},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidCart), "got %v", err)

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateAtQuantityLimitKeepsTotalsConsistent(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Create(context.Background(), buyer(), []CartLine{
		{PackageCode: "VIP_SINGLE", Quantity: MaxLineQuantity},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	item := order.Items[0]
	require.Equal(t, item.UnitPrice*int64(item.Quantity), item.LineTotal)
	require.Equal(t, item.LineTotal, order.Total)
	require.Positive(t, order.Total)
}

func TestGetHidesOtherUsersOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := buyer()

	order, err := f.svc.Create(ctx, owner, []CartLine{{PackageCode: "GOLD_SINGLE", Quantity: 1}})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)

	_, err = f.svc.Get(ctx, buyer(), order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = f.svc.Get(ctx, admin(), order.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, owner, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestListPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := buyer()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		order, err := f.svc.Create(ctx, user, []CartLine{{PackageCode: "SILVER_SINGLE", Quantity: i + 1}})
		require.NoError(t, err)
		ids = append(ids, order.ID)
	}
	_, err := f.svc.Create(ctx, buyer(), []CartLine{{PackageCode: "SILVER_SINGLE", Quantity: 1}})
	require.NoError(t, err)

	first, err := f.svc.List(ctx, user, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.Equal(t, ids[2], first.Items[0].ID)
	require.Equal(t, ids[1], first.Items[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.List(ctx, user, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Equal(t, ids[0], second.Items[0].ID)
	require.Empty(t, second.NextCursor)

	_, err = f.svc.List(ctx, user, pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := buyer()

	order, err := f.svc.Create(ctx, user, []CartLine{{PackageCode: "GOLD_SINGLE", Quantity: 1}})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, buyer(), order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	canceled, err := f.svc.Cancel(ctx, user, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CanceledAt)

	again, err := f.svc.Cancel(ctx, user, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCanceled, again.Status)

	require.Equal(t, []enums.OutboxEventType{enums.EventOrderCreated, enums.EventOrderCanceled}, eventTypes(t, f.outbox, order.ID))
}

func TestCancelPaidOrderIsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := buyer()

	order, err := f.svc.Create(ctx, user, []CartLine{{PackageCode: "GOLD_SINGLE", Quantity: 1}})
	require.NoError(t, err)
	markPaid(t, f.conn, order.ID)

	_, err = f.svc.Cancel(ctx, user, order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)
}

func TestRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := buyer()

	order, err := f.svc.Create(ctx, user, []CartLine{{PackageCode: "VIP_SINGLE", Quantity: 1}})
	require.NoError(t, err)

	_, err = f.svc.Refund(ctx, user, order.ID, "changed mind")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = f.svc.Refund(ctx, admin(), order.ID, "not paid yet")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)

	markPaid(t, f.conn, order.ID)
	refunded, err := f.svc.Refund(ctx, admin(), order.ID, " duplicate charge ")
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundedAt)

	has, err := f.ledger.HasEvent(ctx, nil, order.ID, enums.LedgerEventTypePaymentRefunded)
	require.NoError(t, err)
	require.True(t, has)

	_, err = f.svc.Refund(ctx, admin(), order.ID, "again")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)

	require.Contains(t, eventTypes(t, f.outbox, order.ID), enums.EventOrderRefunded)
}

func TestExpirePendingSkipsSettledOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := buyer()

	stale, err := f.svc.Create(ctx, user, []CartLine{{PackageCode: "SILVER_SINGLE", Quantity: 1}})
	require.NoError(t, err)
	paid, err := f.svc.Create(ctx, user, []CartLine{{PackageCode: "SILVER_SINGLE", Quantity: 1}})
	require.NoError(t, err)
	markPaid(t, f.conn, paid.ID)

	expired, err := f.svc.ExpirePending(ctx, time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Zero(t, expired)

	expired, err = f.svc.ExpirePending(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	got, err := f.svc.Get(ctx, user, stale.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusExpired, got.Status)
	require.NotNil(t, got.ExpiredAt)
	require.Contains(t, eventTypes(t, f.outbox, stale.ID), enums.EventOrderExpired)

	got, err = f.svc.Get(ctx, user, paid.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, got.Status)
}

func markPaid(t *testing.T, conn *gorm.DB, id uuid.UUID) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
		"status":  enums.OrderStatusPaid,
		"paid_at": now,
	}).Error)
}
