package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/vendora/vendora-backend/pkg/logger"
)

const (
	defaultPaymentTimeout = 15 * time.Minute
	defaultSweepGrace     = 5 * time.Minute
	defaultSweepLimit     = 100
)

// PaymentTimeoutJobParams configure the sweeper that catches payments whose
// delayed cancel job was lost.
type PaymentTimeoutJobParams struct {
	Logger  *logger.Logger
	Reader  stalePaymentReader
	Handler paymentCanceller
	Timeout time.Duration
	Grace   time.Duration
	Limit   int
}

type stalePaymentReader interface {
	ListStalePendingPayments(ctx context.Context, createdBefore time.Time, limit int) ([]int64, error)
}

type paymentCanceller interface {
	Handle(ctx context.Context, paymentID int64) error
}

// NewPaymentTimeoutJob builds the payment timeout sweep.
func NewPaymentTimeoutJob(params PaymentTimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("pending payment reader required")
	}
	if params.Handler == nil {
		return nil, fmt.Errorf("payment cancel handler required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultPaymentTimeout
	}
	grace := params.Grace
	if grace < 0 {
		grace = defaultSweepGrace
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	return &paymentTimeoutJob{
		logg:    params.Logger,
		reader:  params.Reader,
		handler: params.Handler,
		timeout: timeout,
		grace:   grace,
		limit:   limit,
		now:     time.Now,
	}, nil
}

type paymentTimeoutJob struct {
	logg    *logger.Logger
	reader  stalePaymentReader
	handler paymentCanceller
	timeout time.Duration
	grace   time.Duration
	limit   int
	now     func() time.Time
}

func (j *paymentTimeoutJob) Name() string { return "payment_timeout_sweep" }

// Run cancels every payment still pending past its timeout plus grace. The
// handler re-checks status under lock, so racing the queue worker is safe.
func (j *paymentTimeoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-(j.timeout + j.grace))
	ids, err := j.reader.ListStalePendingPayments(ctx, cutoff, j.limit)
	if err != nil {
		return fmt.Errorf("query stale payments: %w", err)
	}

	var errs error
	for _, id := range ids {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		if err := j.handler.Handle(ctx, id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cancel payment %d: %w", id, err))
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"found":  len(ids),
		"failed": len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "payment timeout sweep complete")
	return errs
}
