package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/internal/orders"
	"github.com/vendora/vendora-backend/internal/pricing"
	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/logger"
	"github.com/vendora/vendora-backend/pkg/metrics"
	"github.com/vendora/vendora-backend/pkg/outbox"
	"github.com/vendora/vendora-backend/pkg/outbox/payloads"
)

const webhookGuardScope = "payment-webhook"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cancelTimer interface {
	Cancel(ctx context.Context, paymentID int64) error
}

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, scope, id string) (bool, error)
	Release(ctx context.Context, scope, id string) error
}

// Receipt is returned to the gateway once a transfer settled a payment.
type Receipt struct {
	Message       string
	PaymentID     int64
	TransactionID int64
	OrderIDs      []int64
}

// ReconcilerParams wires the payment reconciliation engine. Guard is optional.
type ReconcilerParams struct {
	DB              txRunner
	Ledger          LedgerRepository
	Orders          orders.Repository
	Outbox          outboxPublisher
	Timer           cancelTimer
	Guard           deliveryGuard
	Metrics         *metrics.OrderFlowMetrics
	Logger          *logger.Logger
	ReferencePrefix string
}

// Reconciler settles pending payments from gateway webhooks.
type Reconciler struct {
	tx      txRunner
	ledger  LedgerRepository
	orders  orders.Repository
	outbox  outboxPublisher
	timer   cancelTimer
	guard   deliveryGuard
	metrics *metrics.OrderFlowMetrics
	logg    *logger.Logger
	prefix  string
	now     func() time.Time
}

func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Timer == nil {
		return nil, fmt.Errorf("cancel timer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	prefix := params.ReferencePrefix
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	return &Reconciler{
		tx:      params.DB,
		ledger:  params.Ledger,
		orders:  params.Orders,
		outbox:  params.Outbox,
		timer:   params.Timer,
		guard:   params.Guard,
		metrics: params.Metrics,
		logg:    params.Logger,
		prefix:  prefix,
		now:     time.Now,
	}, nil
}

// ReceiveWebhook records the transfer and settles the referenced payment in a
// single transaction. Any rejection rolls back the ledger row as well, so a
// replay is evaluated from scratch and rejected with the same code.
func (r *Reconciler) ReceiveWebhook(ctx context.Context, event WebhookEvent) (*Receipt, error) {
	if err := event.Validate(); err != nil {
		r.metrics.ObserveWebhook(string(pkgerrors.CodeValidation))
		return nil, err
	}
	ctx = r.logg.WithFields(ctx, map[string]any{"transaction_id": event.ID, "gateway": event.Gateway})

	guardID := strconv.FormatInt(event.ID, 10)
	guarded := false
	if r.guard != nil {
		already, err := r.guard.CheckAndMark(ctx, webhookGuardScope, guardID)
		switch {
		case err != nil:
			r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "webhook delivery guard unavailable")
		case already:
			r.metrics.ObserveWebhook(string(pkgerrors.CodeDuplicateTransaction))
			return nil, duplicateTransaction(event.ID)
		default:
			guarded = true
		}
	}

	receipt, err := r.settle(ctx, event)
	if err != nil {
		if guarded {
			if relErr := r.guard.Release(ctx, webhookGuardScope, guardID); relErr != nil {
				r.logg.Warn(r.logg.WithField(ctx, "error", relErr.Error()), "webhook delivery guard release failed")
			}
		}
		r.metrics.ObserveWebhook(string(pkgerrors.CodeOf(err)))
		if pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Retryable {
			r.logg.Error(ctx, "payment webhook failed", err)
		} else {
			r.logg.Warn(r.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "payment webhook rejected")
		}
		return nil, err
	}
	r.metrics.ObserveWebhook(metrics.OutcomeSuccess)

	ctx = r.logg.WithPaymentID(ctx, receipt.PaymentID)
	if err := r.timer.Cancel(ctx, receipt.PaymentID); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "payment cancel timer removal failed")
	}
	r.logg.Info(ctx, "payment settled")
	return receipt, nil
}

func (r *Reconciler) settle(ctx context.Context, event WebhookEvent) (*Receipt, error) {
	var receipt *Receipt
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := r.ledger.WithTx(tx)
		ordersRepo := r.orders.WithTx(tx)

		exists, err := ledger.Exists(ctx, event.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment transaction")
		}
		if exists {
			return duplicateTransaction(event.ID)
		}

		row, err := event.LedgerRow()
		if err != nil {
			return err
		}
		if err := ledger.Insert(ctx, &row); err != nil {
			return err
		}

		paymentID, err := ParseReference(r.prefix, event.codeValue(), event.contentValue())
		if err != nil {
			return err
		}

		payment, err := ordersRepo.FindPaymentForUpdate(ctx, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodePaymentNotFound, "payment not found").
					WithDetails(map[string]any{"paymentId": paymentID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}

		expected := ExpectedTotal(payment.Orders)
		if expected != event.AmountIn() {
			return pkgerrors.New(pkgerrors.CodeAmountMismatch, "transfer amount does not match payment total").
				WithDetails(map[string]any{"paymentId": paymentID, "expected": expected, "received": event.AmountIn()})
		}

		if payment.Status != enums.PaymentStatusPending {
			return alreadySettled(paymentID, payment.Status)
		}
		ok, err := ordersRepo.TransitionPayment(ctx, paymentID, enums.PaymentStatusPending, enums.PaymentStatusSuccess)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
		}
		if !ok {
			return alreadySettled(paymentID, "")
		}

		orderIDs := make([]int64, 0, len(payment.Orders))
		for _, order := range payment.Orders {
			if err := orders.CanTransition(order.Status, enums.OrderStatusPendingPickup, orders.ActorPaymentReconciliation); err != nil {
				return err
			}
			orderIDs = append(orderIDs, order.ID)
		}
		if _, err := ordersRepo.TransitionOrdersByPayment(ctx, paymentID, enums.OrderStatusPendingPayment, enums.OrderStatusPendingPickup, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance orders")
		}

		paidAt := r.now().UTC()
		err = r.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregatePayment,
			AggregateID:   paymentID,
			OccurredAt:    paidAt,
			Data: payloads.OrderPaidEvent{
				PaymentID:     paymentID,
				OrderIDs:      orderIDs,
				TransactionID: event.ID,
				Gateway:       event.Gateway,
				Amount:        event.AmountIn(),
				PaidAt:        paidAt,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid")
		}

		receipt = &Receipt{
			Message:       "Payment success",
			PaymentID:     paymentID,
			TransactionID: event.ID,
			OrderIDs:      orderIDs,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ExpectedTotal is what the buyer owes for a payment group: item snapshots
// priced at purchase time minus each order's discount. It must agree with the
// Total checkout stamps on each order, which is the same subtotal with the
// per-shop discount already taken off.
func ExpectedTotal(rows []models.Order) int64 {
	var total int64
	for _, order := range rows {
		total += pricing.ItemsSubtotal(order.Items) - order.DiscountAmount
	}
	return total
}

func alreadySettled(paymentID int64, status enums.PaymentStatus) error {
	details := map[string]any{"paymentId": paymentID}
	if status != "" {
		details["status"] = status
	}
	return pkgerrors.New(pkgerrors.CodePaymentAlreadySettled, "payment is no longer pending").WithDetails(details)
}
