package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/listingz-backend/api/controllers"
	"github.com/angelmondragon/listingz-backend/api/routes"
	"github.com/angelmondragon/listingz-backend/internal/catalog"
	"github.com/angelmondragon/listingz-backend/internal/inventory"
	"github.com/angelmondragon/listingz-backend/internal/ledger"
	"github.com/angelmondragon/listingz-backend/internal/listings"
	"github.com/angelmondragon/listingz-backend/internal/notifications"
	"github.com/angelmondragon/listingz-backend/internal/orders"
	"github.com/angelmondragon/listingz-backend/internal/payments"
	"github.com/angelmondragon/listingz-backend/internal/reports"
	"github.com/angelmondragon/listingz-backend/pkg/config"
	"github.com/angelmondragon/listingz-backend/pkg/db"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/metrics"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
	"github.com/angelmondragon/listingz-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/listingz-backend/pkg/stripe"
)

// buildDeps wires repositories and services into the router dependencies.
func buildDeps(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, stripeClient *pkgstripe.Client) (routes.Deps, error) {
	conn := dbClient.DB()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := metrics.NewDomainMetrics(reg)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, fmt.Errorf("catalog service: %w", err)
	}
	inventoryLedger, err := inventory.NewLedger(inventory.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, fmt.Errorf("inventory ledger: %w", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, fmt.Errorf("payment ledger: %w", err)
	}
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	notificationsRepo := notifications.NewRepository(conn)
	notificationsSvc, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("notifications service: %w", err)
	}
	inbox := notifications.NewInboxSink(notificationsRepo, logg)

	ordersRepo := orders.NewRepository(conn)
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Tx:       dbClient,
		Catalog:  catalogSvc,
		Ledger:   ledgerSvc,
		Outbox:   emitter,
		Currency: cfg.Orders.Currency,
		Logger:   logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("orders service: %w", err)
	}

	listingsRepo := listings.NewRepository(conn)
	listingsSvc, err := listings.NewService(listings.ServiceParams{
		Repo:                listingsRepo,
		Tx:                  dbClient,
		Inventory:           inventoryLedger,
		Policies:            catalogSvc,
		Outbox:              emitter,
		Notifier:            inbox,
		Metrics:             domainMetrics,
		DefaultDurationDays: cfg.Listings.DefaultDurationDays,
		Logger:              logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("listings service: %w", err)
	}

	reportsSvc, err := reports.NewService(reports.ServiceParams{
		Repo:      reports.NewRepository(conn),
		Listings:  listingsRepo,
		Tx:        dbClient,
		Outbox:    emitter,
		Notifier:  inbox,
		Metrics:   domainMetrics,
		Threshold: cfg.Listings.ReportThreshold,
		Logger:    logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("reports service: %w", err)
	}

	settler, err := payments.NewSettler(payments.SettlerParams{
		Orders:    ordersRepo,
		Tx:        dbClient,
		Catalog:   catalogSvc,
		Inventory: inventoryLedger,
		Ledger:    ledgerSvc,
		Outbox:    emitter,
		Notifier:  inbox,
		Metrics:   domainMetrics,
		Logger:    logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("payment settler: %w", err)
	}

	gateway, err := payments.NewStripeGateway(stripeClient)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("stripe gateway: %w", err)
	}
	intents, err := payments.NewIntentService(ordersRepo, gateway)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("payment intents: %w", err)
	}
	webhooks, err := payments.NewWebhookService(settler, logg)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("webhook service: %w", err)
	}
	guard, err := payments.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, payments.WebhookScope)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("webhook guard: %w", err)
	}

	return routes.Deps{
		Config: cfg,
		Logger: logg,
		Redis:  redisClient,
		Pingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Metrics:         metrics.NewHTTPMetrics(reg),
		Gatherer:        reg,
		Catalog:         catalogSvc,
		Inventory:       inventoryLedger,
		Orders:          ordersSvc,
		Listings:        listingsSvc,
		Reports:         reportsSvc,
		Notifications:   notificationsSvc,
		PaymentIntents:  intents,
		Settler:         settler,
		Webhooks:        webhooks,
		WebhookVerifier: stripeClient,
		WebhookGuard:    guard,
	}, nil
}
