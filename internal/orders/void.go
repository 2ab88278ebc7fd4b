package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/internal/inventory"
	"github.com/vendora/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/outbox"
	"github.com/vendora/vendora-backend/pkg/outbox/payloads"
)

type stockRestorer interface {
	Restore(ctx context.Context, tx *gorm.DB, items []inventory.RestoreItem) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// VoidInput describes why and by whom a pending payment group is voided.
type VoidInput struct {
	PaymentID int64
	Reason    string
	Actor     Actor
	ActorRef  *outbox.ActorRef
}

// VoidResult reports what Void did. Voided is false when the payment had
// already left PENDING, in which case nothing was written.
type VoidResult struct {
	PaymentID int64
	Voided    bool
	Status    enums.PaymentStatus
	OrderIDs  []int64
}

// Voider fails a pending payment and cancels every order it covers. It is
// shared by the owner cancel endpoint and the payment timeout handler.
type Voider struct {
	repo   Repository
	stock  stockRestorer
	outbox outboxPublisher
	now    func() time.Time
}

func NewVoider(repo Repository, stock stockRestorer, publisher outboxPublisher) (*Voider, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Voider{repo: repo, stock: stock, outbox: publisher, now: time.Now}, nil
}

// Void runs inside the caller's transaction. The payment row is locked first,
// then re-read, then moved PENDING -> FAILED with a conditional update.
func (v *Voider) Void(ctx context.Context, tx *gorm.DB, in VoidInput) (*VoidResult, error) {
	if in.PaymentID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	repo := v.repo.WithTx(tx)

	payment, err := repo.FindPaymentForUpdate(ctx, in.PaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodePaymentNotFound, "payment not found").
				WithDetails(map[string]any{"paymentId": in.PaymentID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	result := &VoidResult{PaymentID: payment.ID, Status: payment.Status}
	if payment.Status.IsSettled() {
		return result, nil
	}

	ok, err := repo.TransitionPayment(ctx, payment.ID, enums.PaymentStatusPending, enums.PaymentStatusFailed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
	}
	if !ok {
		current, err := repo.FindPayment(ctx, payment.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
		}
		result.Status = current.Status
		return result, nil
	}

	var restore []inventory.RestoreItem
	for _, order := range payment.Orders {
		if order.Status != enums.OrderStatusPendingPayment {
			continue
		}
		if err := CanTransition(order.Status, enums.OrderStatusCancelled, in.Actor); err != nil {
			return nil, err
		}
		result.OrderIDs = append(result.OrderIDs, order.ID)
		restore = append(restore, inventory.RestoreItemsFrom(order.Items)...)
	}

	var actorID *int64
	if in.ActorRef != nil && in.ActorRef.UserID > 0 {
		actorID = &in.ActorRef.UserID
	}
	if _, err := repo.TransitionOrdersByPayment(ctx, payment.ID, enums.OrderStatusPendingPayment, enums.OrderStatusCancelled, actorID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel orders")
	}
	if err := v.stock.Restore(ctx, tx, restore); err != nil {
		return nil, err
	}

	now := v.now().UTC()
	err = v.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCanceled,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         in.ActorRef,
		OccurredAt:    now,
		Data: payloads.OrderCanceledEvent{
			PaymentID:  payment.ID,
			OrderIDs:   append([]int64{}, result.OrderIDs...),
			Reason:     in.Reason,
			CanceledAt: now,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order canceled")
	}

	result.Voided = true
	result.Status = enums.PaymentStatusFailed
	return result, nil
}
