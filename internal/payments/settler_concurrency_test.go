package payments

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/listingz-backend/internal/orders"
	"github.com/angelmondragon/listingz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
)

func TestConcurrentSettlementsCreditOnce(t *testing.T) {
	client, conn := dbtest.FileClient(t)
	f := newSettleFixtureOn(t, client, conn)
	ctx := context.Background()
	user := newBuyer()

	order, err := f.orders.Create(ctx, user, []orders.CartLine{
		{PackageCode: "VIP_SINGLE", Quantity: 2},
		{PackageCode: "STARTER_COMBO", Quantity: 1},
	})
	require.NoError(t, err)

	const deliveries = 6
	var wg sync.WaitGroup
	results := make([]*Result, deliveries)
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.settler.Settle(ctx, Confirmation{
				OrderID:          order.ID,
				PaymentReference: "pi_race",
				IdempotencyKey:   fmt.Sprintf("evt_%d", i),
				Source:           SourceStripe,
			})
		}(i)
	}
	wg.Wait()

	settled := 0
	credited := 0
	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, enums.OrderStatusPaid, results[i].Order.Status)
		if results[i].Settled {
			settled++
		}
		credited += results[i].CreditedItems
	}
	require.Equal(t, 1, settled)
	require.Equal(t, 2, credited)

	require.Equal(t, map[enums.ListingTier]int{
		enums.ListingTierVIP:    2,
		enums.ListingTierSilver: 2,
		enums.ListingTierGold:   1,
	}, f.balances(t, user.UserID))
	require.Equal(t, 1, f.countEvents(t, order.ID, enums.EventOrderPaid))
	require.Len(t, f.notes.OfType(enums.NotificationTypeOrderPaid), 1)

	events, err := f.ledger.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
}
