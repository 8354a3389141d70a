package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/listingz-backend/internal/notifications"
	"github.com/angelmondragon/listingz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
)

func TestNotificationCleanupKeepsUnreadRows(t *testing.T) {
	client, conn := dbtest.Client(t)
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	readAt := old.Add(time.Hour)
	user := uuid.New()

	rows := []models.Notification{
		{UserID: user, Type: enums.NotificationTypeOrderPaid, Title: "old read", Message: "m", ReadAt: &readAt, CreatedAt: old},
		{UserID: user, Type: enums.NotificationTypeOrderPaid, Title: "old unread", Message: "m", CreatedAt: old},
		{UserID: user, Type: enums.NotificationTypeOrderPaid, Title: "fresh read", Message: "m", ReadAt: &now, CreatedAt: now},
	}
	require.NoError(t, conn.Create(&rows).Error)

	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.Nop(),
		DB:         client,
		Repository: notifications.NewRepository(conn),
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var titles []string
	require.NoError(t, conn.Model(&models.Notification{}).Order("title").Pluck("title", &titles).Error)
	require.Equal(t, []string{"fresh read", "old unread"}, titles)
}

func TestOutboxRetentionKeepsUnpublishedRows(t *testing.T) {
	client, conn := dbtest.Client(t)
	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	published := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		PublishedAt:   &old,
	}
	pending := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
	}
	require.NoError(t, conn.Create(&published).Error)
	require.NoError(t, conn.Create(&pending).Error)

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         client,
		Repository: outbox.NewRepository(conn),
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, pending.ID, remaining[0].ID)
}
