package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/listingz-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/listingz-backend/api/controllers/webhooks"
	"github.com/angelmondragon/listingz-backend/api/middleware"
	"github.com/angelmondragon/listingz-backend/internal/catalog"
	"github.com/angelmondragon/listingz-backend/internal/inventory"
	"github.com/angelmondragon/listingz-backend/internal/notifications"
	"github.com/angelmondragon/listingz-backend/internal/orders"
	"github.com/angelmondragon/listingz-backend/internal/payments"
	"github.com/angelmondragon/listingz-backend/internal/reports"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/config"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/listingz-backend/pkg/redis"
)

// RedisStore is the slice of pkg/redis the HTTP layer needs for idempotent
// replays and rate limiting.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type (
	packageLister interface {
		ListActive(ctx context.Context) ([]catalog.PackageDTO, error)
	}
	balanceReader interface {
		Balances(ctx context.Context, userID uuid.UUID) ([]inventory.Balance, error)
	}
	intentCreator interface {
		CreateForOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*payments.PaymentIntent, error)
	}
	settler interface {
		Settle(ctx context.Context, conf payments.Confirmation) (*payments.Result, error)
	}
	reportRecorder interface {
		RecordReport(ctx context.Context, actor auth.Actor, listingID uuid.UUID, reason string) (*reports.Result, error)
	}
	webhookVerifier interface {
		VerifyEvent(payload []byte, signature string) (stripe.Event, error)
	}
	webhookGuard interface {
		CheckAndMark(ctx context.Context, eventID string) (bool, error)
		Delete(ctx context.Context, eventID string) error
	}
)

// OrdersAdmin covers buyer order operations plus the admin refund.
type OrdersAdmin interface {
	controllers.OrdersService
	Refund(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*orders.OrderDTO, error)
}

// ListingsAdmin covers owner listing operations plus moderation.
type ListingsAdmin interface {
	controllers.ListingsService
	controllers.ModerationService
}

// Deps carries every collaborator the router mounts.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Redis   RedisStore
	Pingers map[string]controllers.Pinger

	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer

	Catalog        packageLister
	Inventory      balanceReader
	Orders         OrdersAdmin
	Listings       ListingsAdmin
	Reports        reportRecorder
	Notifications  notifications.Service
	PaymentIntents intentCreator
	Settler        settler

	Webhooks        webhookcontrollers.PaymentWebhookService
	WebhookVerifier webhookVerifier
	WebhookGuard    webhookGuard
}

// NewRouter mounts the public, authenticated and admin route groups.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.Metrics),
		middleware.CORS(),
	)

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Pingers))
	})

	r.Get("/api/v1/packages", controllers.ListPackages(d.Catalog, logg))
	r.Post("/api/v1/webhooks/payments", webhookcontrollers.PaymentWebhook(d.Webhooks, d.WebhookVerifier, d.WebhookGuard, logg))

	reportPolicy := middleware.NewRateLimitPolicy("reports", cfg.RateLimit.ReportWindow, cfg.RateLimit.ReportLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Get("/inventory", controllers.InventoryBalances(d.Inventory, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(d.Orders, logg))
			r.Get("/", controllers.ListOrders(d.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(d.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(d.Orders, logg))
			r.Post("/{orderId}/payment-intent", controllers.CreatePaymentIntent(d.PaymentIntents, logg))
		})

		r.Route("/properties", func(r chi.Router) {
			r.Post("/", controllers.CreateProperty(d.Listings, logg))
			r.Get("/{listingId}", controllers.PropertyDetail(d.Listings, logg))
			r.Post("/{listingId}/submit", controllers.SubmitProperty(d.Listings, logg))
			r.Patch("/{listingId}/price", controllers.UpdatePropertyPrice(d.Listings, logg))
			r.Get("/{listingId}/price-history", controllers.PropertyPriceHistory(d.Listings, logg))
		})

		r.With(middleware.RateLimit(reportPolicy, d.Redis, logg)).Post("/reports", controllers.ReportListing(d.Reports, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/process-payment", controllers.AdminProcessPayment(d.Settler, logg))
			r.Post("/refund", controllers.AdminRefundOrder(d.Orders, logg))
		})
		r.Route("/properties/{listingId}", func(r chi.Router) {
			r.Post("/approve", controllers.AdminApproveProperty(d.Listings, logg))
			r.Post("/reject", controllers.AdminRejectProperty(d.Listings, logg))
			r.Post("/hide", controllers.AdminHideProperty(d.Listings, logg))
			r.Post("/unhide", controllers.AdminUnhideProperty(d.Listings, logg))
		})
	})

	return r
}
