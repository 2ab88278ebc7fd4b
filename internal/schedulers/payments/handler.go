package payments

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/internal/orders"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/logger"
	"github.com/vendora/vendora-backend/pkg/metrics"
	"github.com/vendora/vendora-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentVoider interface {
	Void(ctx context.Context, tx *gorm.DB, in orders.VoidInput) (*orders.VoidResult, error)
}

// CancelHandler fails a payment whose transfer never arrived and cancels its orders.
type CancelHandler struct {
	db      txRunner
	voider  paymentVoider
	metrics *metrics.OrderFlowMetrics
	logg    *logger.Logger
}

type CancelHandlerParams struct {
	DB      txRunner
	Voider  paymentVoider
	Metrics *metrics.OrderFlowMetrics
	Logger  *logger.Logger
}

func NewCancelHandler(params CancelHandlerParams) (*CancelHandler, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Voider == nil {
		return nil, fmt.Errorf("payment voider required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &CancelHandler{
		db:      params.DB,
		voider:  params.Voider,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// Handle is a no-op when the payment already settled or no longer exists.
func (h *CancelHandler) Handle(ctx context.Context, paymentID int64) error {
	ctx = h.logg.WithPaymentID(ctx, paymentID)

	var result *orders.VoidResult
	err := h.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = h.voider.Void(ctx, tx, orders.VoidInput{
			PaymentID: paymentID,
			Reason:    payloads.CancelReasonPaymentTimeout,
			Actor:     orders.ActorPaymentTimeout,
		})
		return err
	})
	if pkgerrors.IsCode(err, pkgerrors.CodePaymentNotFound) {
		h.metrics.ObserveCancellation(payloads.CancelReasonPaymentTimeout, metrics.OutcomeSkipped)
		h.logg.Warn(ctx, "payment cancel skipped: payment not found")
		return nil
	}
	if err != nil {
		h.metrics.ObserveCancellation(payloads.CancelReasonPaymentTimeout, string(pkgerrors.CodeOf(err)))
		return err
	}

	if !result.Voided {
		h.metrics.ObserveCancellation(payloads.CancelReasonPaymentTimeout, metrics.OutcomeSkipped)
		h.logg.Debug(h.logg.WithField(ctx, "status", result.Status), "payment cancel skipped: already settled")
		return nil
	}
	h.metrics.ObserveCancellation(payloads.CancelReasonPaymentTimeout, metrics.OutcomeSuccess)
	h.logg.Info(h.logg.WithField(ctx, "order_ids", result.OrderIDs), "payment cancelled after timeout")
	return nil
}
