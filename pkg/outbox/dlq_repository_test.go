package outbox_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/listingz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
)

func TestDLQRepositoryInsertAndFind(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewDLQRepository(conn)
	ctx := context.Background()

	eventID := uuid.New()
	long := strings.Repeat("x", 2000)
	err := repo.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &long,
		AttemptCount:  10,
		FailedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	row, err := repo.FindByEventID(ctx, eventID)
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, row.ErrorReason)
	require.Len(t, *row.ErrorMessage, 1024)

	missing, err := repo.FindByEventID(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)

	rows, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestDLQRepositoryRequiresTx(t *testing.T) {
	repo := outbox.NewDLQRepository(dbtest.Open(t))
	require.Error(t, repo.InsertTx(nil, models.OutboxDLQ{}))
}

func TestDLQRepositoryRejectsUnknownReason(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewDLQRepository(conn)

	err := repo.InsertTx(conn, models.OutboxDLQ{
		EventID:     uuid.New(),
		EventType:   enums.EventOrderPaid,
		ErrorReason: "timeout",
		FailedAt:    time.Now().UTC(),
	})
	require.Error(t, err)

	rows, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}
