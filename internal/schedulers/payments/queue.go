package payments

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vendora/vendora-backend/pkg/redis"
)

const (
	// QueueName is the sorted set holding pending payment cancellations.
	QueueName      = "payment-cancel"
	attemptsKey    = "attempts"
	memberPrefix   = "payment:"
	defaultTimeout = 15 * time.Minute
)

// Scheduler enqueues and removes delayed payment cancellations. Jobs live in a
// Redis sorted set scored by due time in unix milliseconds, so they survive
// process restarts.
type Scheduler struct {
	store   redis.DelayedQueueStore
	timeout time.Duration
	now     func() time.Time
}

func NewScheduler(store redis.DelayedQueueStore, timeout time.Duration) (*Scheduler, error) {
	if store == nil {
		return nil, fmt.Errorf("delayed queue store required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Scheduler{store: store, timeout: timeout, now: time.Now}, nil
}

// Timeout is the delay between checkout and automatic cancellation.
func (s *Scheduler) Timeout() time.Duration {
	return s.timeout
}

// Schedule enqueues the cancellation of paymentID and returns its due time.
// Scheduling an already queued payment keeps the original due time.
func (s *Scheduler) Schedule(ctx context.Context, paymentID int64) (time.Time, error) {
	if paymentID <= 0 {
		return time.Time{}, fmt.Errorf("payment id required")
	}
	due := s.now().Add(s.timeout)
	added, err := s.store.ZAddNX(ctx, s.queueKey(), Member(paymentID), float64(due.UnixMilli()))
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule payment cancel: %w", err)
	}
	if added {
		return due, nil
	}
	score, ok, err := s.store.ZScore(ctx, s.queueKey(), Member(paymentID))
	if err != nil || !ok {
		return due, nil
	}
	return time.UnixMilli(int64(score)), nil
}

// Cancel removes a queued cancellation. Removal is advisory: the handler
// re-checks payment status, so a stale job is harmless.
func (s *Scheduler) Cancel(ctx context.Context, paymentID int64) error {
	if _, err := s.store.ZRem(ctx, s.queueKey(), Member(paymentID)); err != nil {
		return fmt.Errorf("remove payment cancel: %w", err)
	}
	return s.store.HDel(ctx, s.attemptsKey(), Member(paymentID))
}

func (s *Scheduler) queueKey() string {
	return s.store.QueueKey(QueueName)
}

func (s *Scheduler) attemptsKey() string {
	return s.store.QueueKey(QueueName, attemptsKey)
}

// Member renders the sorted-set member for a payment.
func Member(paymentID int64) string {
	return memberPrefix + strconv.FormatInt(paymentID, 10)
}

// ParseMember reads the payment id back from a member.
func ParseMember(member string) (int64, error) {
	raw, ok := strings.CutPrefix(member, memberPrefix)
	if !ok {
		return 0, fmt.Errorf("unexpected queue member %q", member)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("unexpected queue member %q", member)
	}
	return id, nil
}
