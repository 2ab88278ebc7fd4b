// Package app assembles the order pipeline from its infrastructure clients.
// Every binary builds the same graph so the API, the cancellation worker and
// the sweeper share one cancellation path.
package app

import (
	"errors"

	"github.com/vendora/vendora-backend/internal/checkout"
	"github.com/vendora/vendora-backend/internal/inventory"
	"github.com/vendora/vendora-backend/internal/orders"
	"github.com/vendora/vendora-backend/internal/payments"
	"github.com/vendora/vendora-backend/internal/pricing"
	schedpayments "github.com/vendora/vendora-backend/internal/schedulers/payments"
	"github.com/vendora/vendora-backend/pkg/config"
	"github.com/vendora/vendora-backend/pkg/db"
	"github.com/vendora/vendora-backend/pkg/idempotency"
	"github.com/vendora/vendora-backend/pkg/logger"
	"github.com/vendora/vendora-backend/pkg/metrics"
	"github.com/vendora/vendora-backend/pkg/outbox"
	"github.com/vendora/vendora-backend/pkg/redis"
)

// Store is the Redis surface the pipeline needs.
type Store interface {
	redis.DelayedQueueStore
	redis.IdempotencyStore
}

type Params struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Store   Store
	Metrics *metrics.OrderFlowMetrics
}

type Core struct {
	OrdersRepo    orders.Repository
	Orders        orders.Service
	Checkout      checkout.Service
	Reconciler    *payments.Reconciler
	Scheduler     *schedpayments.Scheduler
	CancelHandler *schedpayments.CancelHandler
	OutboxRepo    *outbox.Repository
}

func Build(p Params) (*Core, error) {
	if p.Config == nil {
		return nil, errors.New("config is required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if p.DB == nil {
		return nil, errors.New("database client is required")
	}
	if p.Store == nil {
		return nil, errors.New("redis store is required")
	}
	cfg := p.Config

	conn := p.DB.DB()
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, p.Logger)
	ordersRepo := orders.NewRepository(conn)
	guard := inventory.NewGuard()

	scheduler, err := schedpayments.NewScheduler(p.Store, cfg.Checkout.CancelTimeout)
	if err != nil {
		return nil, err
	}

	voider, err := orders.NewVoider(ordersRepo, guard, emitter)
	if err != nil {
		return nil, err
	}

	cancelHandler, err := schedpayments.NewCancelHandler(schedpayments.CancelHandlerParams{
		DB:      p.DB,
		Voider:  voider,
		Metrics: p.Metrics,
		Logger:  p.Logger,
	})
	if err != nil {
		return nil, err
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repository: ordersRepo,
		DB:         p.DB,
		Voider:     voider,
		Timer:      scheduler,
		Outbox:     emitter,
		Metrics:    p.Metrics,
		Logger:     p.Logger,
	})
	if err != nil {
		return nil, err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		DB:              p.DB,
		Repository:      checkout.NewRepository(conn),
		Orders:          ordersRepo,
		Guard:           guard,
		Scheduler:       scheduler,
		Outbox:          emitter,
		Metrics:         p.Metrics,
		Logger:          p.Logger,
		CommissionRate:  pricing.RateFromPercent(cfg.Checkout.CommissionRate),
		ReferencePrefix: cfg.Checkout.PaymentCodePrefix,
	})
	if err != nil {
		return nil, err
	}

	webhookGuard, err := idempotency.NewManager(p.Store, cfg.PaymentWebhook.IdempotencyTTL)
	if err != nil {
		return nil, err
	}

	reconciler, err := payments.NewReconciler(payments.ReconcilerParams{
		DB:              p.DB,
		Ledger:          payments.NewLedgerRepository(conn),
		Orders:          ordersRepo,
		Outbox:          emitter,
		Timer:           scheduler,
		Guard:           webhookGuard,
		Metrics:         p.Metrics,
		Logger:          p.Logger,
		ReferencePrefix: cfg.Checkout.PaymentCodePrefix,
	})
	if err != nil {
		return nil, err
	}

	return &Core{
		OrdersRepo:    ordersRepo,
		Orders:        ordersSvc,
		Checkout:      checkoutSvc,
		Reconciler:    reconciler,
		Scheduler:     scheduler,
		CancelHandler: cancelHandler,
		OutboxRepo:    outboxRepo,
	}, nil
}
