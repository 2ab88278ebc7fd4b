package payments

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/vendora/vendora-backend/pkg/logger"
	"github.com/vendora/vendora-backend/pkg/redis"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 50
	defaultMaxAttempts  = 5
	defaultRetryBackoff = 5 * time.Second
	maxRetryBackoff     = 10 * time.Minute
)

type jobHandler interface {
	Handle(ctx context.Context, paymentID int64) error
}

// WorkerParams configures the delayed queue consumer.
type WorkerParams struct {
	Store        redis.DelayedQueueStore
	Handler      jobHandler
	Logger       *logger.Logger
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Worker polls due cancellations and runs them. Several workers may share a
// queue: a job is only processed by the worker whose ZREM removed it.
type Worker struct {
	store        redis.DelayedQueueStore
	handler      jobHandler
	logg         *logger.Logger
	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	retryBackoff time.Duration
	now          func() time.Time
}

func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("delayed queue store required")
	}
	if params.Handler == nil {
		return nil, fmt.Errorf("job handler required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	w := &Worker{
		store:        params.Store,
		handler:      params.Handler,
		logg:         params.Logger,
		pollInterval: params.PollInterval,
		batchSize:    params.BatchSize,
		maxAttempts:  params.MaxAttempts,
		retryBackoff: params.RetryBackoff,
		now:          time.Now,
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}
	if w.batchSize <= 0 {
		w.batchSize = defaultBatchSize
	}
	if w.maxAttempts <= 0 {
		w.maxAttempts = defaultMaxAttempts
	}
	if w.retryBackoff <= 0 {
		w.retryBackoff = defaultRetryBackoff
	}
	return w, nil
}

// Run polls until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logg.Info(w.logg.WithField(ctx, "queue", QueueName), "payment cancel worker started")
	for {
		if _, err := w.ProcessDue(ctx); err != nil && ctx.Err() == nil {
			w.logg.Error(ctx, "payment cancel worker poll failed", err)
		}
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "payment cancel worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessDue runs every job whose due time has passed, up to one batch. It
// returns how many jobs this worker claimed.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	members, err := w.store.ZRangeDue(ctx, w.queueKey(), float64(w.now().UnixMilli()), int64(w.batchSize))
	if err != nil {
		return 0, fmt.Errorf("read due payment cancels: %w", err)
	}

	var (
		claimed int
		errs    error
	)
	for _, member := range members {
		if ctx.Err() != nil {
			return claimed, multierr.Append(errs, ctx.Err())
		}
		ok, err := w.store.ZRem(ctx, w.queueKey(), member)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("claim %s: %w", member, err))
			continue
		}
		if !ok {
			continue
		}
		claimed++
		errs = multierr.Append(errs, w.run(ctx, member))
	}
	return claimed, errs
}

func (w *Worker) run(ctx context.Context, member string) error {
	paymentID, err := ParseMember(member)
	if err != nil {
		w.logg.Warn(w.logg.WithField(ctx, "member", member), "dropping malformed payment cancel job")
		return nil
	}
	ctx = w.logg.WithPaymentID(ctx, paymentID)

	handleErr := w.handler.Handle(ctx, paymentID)
	if handleErr == nil {
		if err := w.store.HDel(ctx, w.attemptsKey(), member); err != nil {
			w.logg.Warn(w.logg.WithField(ctx, "error", err.Error()), "payment cancel attempt counter cleanup failed")
		}
		return nil
	}

	attempts, err := w.store.HIncrBy(ctx, w.attemptsKey(), member, 1)
	if err != nil {
		return multierr.Append(handleErr, fmt.Errorf("count attempt for %s: %w", member, err))
	}
	if int(attempts) >= w.maxAttempts {
		w.logg.Error(w.logg.WithField(ctx, "attempts", attempts), "payment cancel job dropped after max attempts", handleErr)
		if err := w.store.HDel(ctx, w.attemptsKey(), member); err != nil {
			return fmt.Errorf("clear attempts for %s: %w", member, err)
		}
		return nil
	}

	delay := w.backoff(int(attempts))
	due := w.now().Add(delay)
	if err := w.store.ZAdd(ctx, w.queueKey(), member, float64(due.UnixMilli())); err != nil {
		return multierr.Append(handleErr, fmt.Errorf("requeue %s: %w", member, err))
	}
	w.logg.Warn(w.logg.WithFields(ctx, map[string]any{
		"attempts": attempts,
		"retry_in": delay.String(),
		"error":    handleErr.Error(),
	}), "payment cancel job failed; retry scheduled")
	return nil
}

// backoff doubles the base delay per failed attempt.
func (w *Worker) backoff(attempts int) time.Duration {
	delay := w.retryBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxRetryBackoff {
			return maxRetryBackoff
		}
	}
	return delay
}

func (w *Worker) queueKey() string {
	return w.store.QueueKey(QueueName)
}

func (w *Worker) attemptsKey() string {
	return w.store.QueueKey(QueueName, attemptsKey)
}
