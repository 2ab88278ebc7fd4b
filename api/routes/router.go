package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendora/vendora-backend/api/controllers"
	ordercontrollers "github.com/vendora/vendora-backend/api/controllers/orders"
	webhookcontrollers "github.com/vendora/vendora-backend/api/controllers/webhooks"
	"github.com/vendora/vendora-backend/api/middleware"
	"github.com/vendora/vendora-backend/internal/checkout"
	"github.com/vendora/vendora-backend/internal/orders"
	"github.com/vendora/vendora-backend/internal/payments"
	"github.com/vendora/vendora-backend/pkg/config"
	"github.com/vendora/vendora-backend/pkg/enums"
	"github.com/vendora/vendora-backend/pkg/logger"
	"github.com/vendora/vendora-backend/pkg/metrics"
	"github.com/vendora/vendora-backend/pkg/redis"
)

// PaymentReceiver settles payments from gateway webhooks.
type PaymentReceiver interface {
	ReceiveWebhook(ctx context.Context, event payments.WebhookEvent) (*payments.Receipt, error)
}

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	Checkout    checkout.Service
	Orders      orders.Service
	Payments    PaymentReceiver
	Idempotency redis.IdempotencyStore
	Readiness   map[string]controllers.Pinger
	HTTPMetrics *metrics.HTTPMetrics
	// MetricsHandler serves /metrics. Nil leaves the route unmounted.
	MetricsHandler http.Handler
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Logging(logg, p.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})
	if p.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", p.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payment/receiver", webhookcontrollers.PaymentReceiver(p.Payments, cfg.PaymentWebhook.APIKey, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(p.Idempotency, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.Create(p.Checkout, logg))
				r.Get("/", ordercontrollers.List(p.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
				r.Put("/{orderId}", ordercontrollers.Cancel(p.Orders, logg))
				r.With(middleware.RequireRoles(logg, enums.RoleSeller, enums.RoleAdmin)).
					Patch("/{orderId}/status", ordercontrollers.UpdateStatus(p.Orders, logg))
			})
		})
	})

	return r
}
