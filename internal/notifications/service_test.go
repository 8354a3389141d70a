package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
)

type failingRepository struct {
	Repository
	err error
}

func (f *failingRepository) Create(context.Context, *models.Notification) error { return f.err }

func (f *failingRepository) MarkAllRead(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, f.err
}

func seed(t *testing.T, conn *gorm.DB, userID uuid.UUID, n int) {
	t.Helper()
	sink := NewInboxSink(NewRepository(conn), logger.Nop())
	for i := 0; i < n; i++ {
		sink.Notify(context.Background(), Message{
			UserID:  userID,
			Type:    enums.NotificationTypeListingApproved,
			Title:   "Listing approved",
			Message: "Your listing is live",
			Link:    "/properties/x",
		})
	}
}

func TestInboxSinkStoresNotification(t *testing.T) {
	conn := dbtest.Open(t)
	userID := uuid.New()
	seed(t, conn, userID, 1)

	var rows []models.Notification
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, userID, rows[0].UserID)
	require.NotNil(t, rows[0].Link)
	require.Nil(t, rows[0].ReadAt)
}

func TestInboxSinkSwallowsErrors(t *testing.T) {
	sink := NewInboxSink(&failingRepository{err: errors.New("db down")}, logger.Nop())
	require.NotPanics(t, func() {
		sink.Notify(context.Background(), Message{UserID: uuid.New(), Type: enums.NotificationTypeOrderPaid})
		sink.Notify(context.Background(), Message{Type: "bogus"})
	})
}

func TestListPagesByUser(t *testing.T) {
	conn := dbtest.Open(t)
	userID := uuid.New()
	seed(t, conn, userID, 3)
	seed(t, conn, uuid.New(), 2)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.List(ctx, ListParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.List(ctx, ListParams{UserID: userID, Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Empty(t, second.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, item := range append(first.Items, second.Items...) {
		require.False(t, seen[item.ID])
		seen[item.ID] = true
	}

	_, err = svc.List(ctx, ListParams{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMarkReadAndReadAll(t *testing.T) {
	conn := dbtest.Open(t)
	userID := uuid.New()
	seed(t, conn, userID, 3)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	page, err := svc.List(ctx, ListParams{UserID: userID})
	require.NoError(t, err)
	target := page.Items[0].ID

	require.NoError(t, svc.MarkRead(ctx, userID, target))
	require.NoError(t, svc.MarkRead(ctx, userID, target), "re-marking a read notification is a no-op")

	err = svc.MarkRead(ctx, uuid.New(), target)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	unread, err := svc.List(ctx, ListParams{UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread.Items, 2)

	count, err := svc.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestMarkAllReadRepoError(t *testing.T) {
	svc, err := NewService(&failingRepository{err: errors.New("boom")})
	require.NoError(t, err)
	_, err = svc.MarkAllRead(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestDeleteOlderThanKeepsUnread(t *testing.T) {
	conn := dbtest.Open(t)
	userID := uuid.New()
	seed(t, conn, userID, 2)
	repo := NewRepository(conn)
	ctx := context.Background()

	var rows []models.Notification
	require.NoError(t, conn.Order("created_at ASC").Find(&rows).Error)
	_, err := repo.MarkRead(ctx, userID, rows[0].ID, time.Now().UTC())
	require.NoError(t, err)

	deleted, err := repo.DeleteOlderThan(ctx, nil, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining)
}
