package main

import (
	"fmt"

	"github.com/angelmondragon/listingz-backend/internal/catalog"
	"github.com/angelmondragon/listingz-backend/internal/cron"
	"github.com/angelmondragon/listingz-backend/internal/ledger"
	"github.com/angelmondragon/listingz-backend/internal/listings"
	"github.com/angelmondragon/listingz-backend/internal/notifications"
	"github.com/angelmondragon/listingz-backend/internal/orders"
	"github.com/angelmondragon/listingz-backend/pkg/config"
	"github.com/angelmondragon/listingz-backend/pkg/db"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/metrics"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
)

// buildRegistry registers jobs in run order: listing sweep first, then order
// expiry, then retention cleanup.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, domainMetrics *metrics.DomainMetrics) (*cron.Registry, error) {
	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)
	notificationsRepo := notifications.NewRepository(conn)

	sweeper, err := listings.NewSweeper(listings.SweeperParams{
		Repo:      listings.NewRepository(conn),
		Tx:        dbClient,
		Outbox:    emitter,
		Notifier:  notifications.NewInboxSink(notificationsRepo, logg),
		Metrics:   domainMetrics,
		Lookahead: cfg.Listings.ExpiringLookahead(),
		BatchSize: cfg.Listings.SweepBatchSize,
		Logger:    logg,
	})
	if err != nil {
		return nil, fmt.Errorf("listing sweeper: %w", err)
	}
	sweepJob, err := cron.NewListingExpirationJob(cron.ListingExpirationJobParams{
		Logger:  logg,
		Sweeper: sweeper,
	})
	if err != nil {
		return nil, err
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("payment ledger: %w", err)
	}
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(conn),
		Tx:       dbClient,
		Catalog:  catalogSvc,
		Ledger:   ledgerSvc,
		Outbox:   emitter,
		Currency: cfg.Orders.Currency,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}
	orderJob, err := cron.NewOrderTTLJob(cron.OrderTTLJobParams{
		Logger:    logg,
		Orders:    ordersSvc,
		TTL:       cfg.Orders.PendingTTL(),
		BatchSize: cfg.Listings.SweepBatchSize,
	})
	if err != nil {
		return nil, err
	}

	notificationJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notificationsRepo,
		Retention:  cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		return nil, err
	}

	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(sweepJob, orderJob, notificationJob, outboxJob), nil
}
