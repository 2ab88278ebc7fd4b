package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/logger"
	"github.com/vendora/vendora-backend/pkg/metrics"
	"github.com/vendora/vendora-backend/pkg/outbox"
	"github.com/vendora/vendora-backend/pkg/outbox/payloads"
	"github.com/vendora/vendora-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentVoider interface {
	Void(ctx context.Context, tx *gorm.DB, in VoidInput) (*VoidResult, error)
}

type cancelTimer interface {
	Cancel(ctx context.Context, paymentID int64) error
}

// Service exposes order reads and the owner/seller driven state changes.
type Service interface {
	List(ctx context.Context, viewer Viewer, query ListQuery) (*ListResult, error)
	Get(ctx context.Context, viewer Viewer, orderID int64) (*OrderDTO, error)
	Cancel(ctx context.Context, viewer Viewer, orderID int64) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, viewer Viewer, orderID int64, to enums.OrderStatus) (*OrderDTO, error)
}

// ServiceParams wires the orders service.
type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Voider     paymentVoider
	Timer      cancelTimer
	Outbox     outboxPublisher
	Metrics    *metrics.OrderFlowMetrics
	Logger     *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	voider  paymentVoider
	timer   cancelTimer
	outbox  outboxPublisher
	metrics *metrics.OrderFlowMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Voider == nil {
		return nil, fmt.Errorf("payment voider required")
	}
	if params.Timer == nil {
		return nil, fmt.Errorf("cancel timer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repository,
		tx:      params.DB,
		voider:  params.Voider,
		timer:   params.Timer,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

func (s *service) List(ctx context.Context, viewer Viewer, query ListQuery) (*ListResult, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	params := pagination.Params{Page: query.Page, Limit: query.Limit}.Normalize()
	filter := ListFilter{
		ViewerID:   viewer.UserID,
		ViewerRole: viewer.Role,
		Status:     query.Status,
		ShopID:     query.ShopID,
	}
	rows, total, err := s.repo.ListOrders(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &ListResult{
		Orders:     ToDTOs(rows),
		Page:       params.Page,
		Limit:      params.Limit,
		TotalItems: total,
		TotalPages: pagination.TotalPages(total, params.Limit),
	}, nil
}

func (s *service) Get(ctx context.Context, viewer Viewer, orderID int64) (*OrderDTO, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapOrderLookupError(err, orderID)
	}
	if !viewer.canSee(*order) {
		return nil, orderNotFound(orderID)
	}
	dto := ToDTO(*order)
	return &dto, nil
}

// Cancel voids the whole payment group the order belongs to. Only the buyer
// who placed the order may cancel it, and only while payment is pending.
func (s *service) Cancel(ctx context.Context, viewer Viewer, orderID int64) (*OrderDTO, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}

	var paymentID int64
	var voided *VoidResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return mapOrderLookupError(err, orderID)
		}
		if order.UserID != viewer.UserID {
			return orderNotFound(orderID)
		}
		if order.Status != enums.OrderStatusPendingPayment {
			return cannotCancel(order.ID, order.Status)
		}
		paymentID = order.PaymentID

		result, err := s.voider.Void(ctx, tx, VoidInput{
			PaymentID: order.PaymentID,
			Reason:    payloads.CancelReasonUserRequested,
			Actor:     ActorOwner,
			ActorRef:  &outbox.ActorRef{UserID: viewer.UserID, Role: viewer.Role},
		})
		if err != nil {
			return err
		}
		if !result.Voided {
			return cannotCancel(order.ID, order.Status).WithDetails(map[string]any{
				"orderId":       order.ID,
				"paymentStatus": result.Status,
			})
		}
		voided = result
		return nil
	})
	if err != nil {
		s.metrics.ObserveCancellation(payloads.CancelReasonUserRequested, string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.ObserveCancellation(payloads.CancelReasonUserRequested, metrics.OutcomeSuccess)

	ctx = s.logg.WithPaymentID(ctx, paymentID)
	if err := s.timer.Cancel(ctx, paymentID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment cancel timer removal failed")
	}
	s.logg.Info(s.logg.WithField(ctx, "order_ids", voided.OrderIDs), "payment group cancelled by owner")

	return s.Get(ctx, viewer, orderID)
}

// UpdateStatus moves an order forward through fulfilment. Sellers may only
// touch orders of their own shop.
func (s *service) UpdateStatus(ctx context.Context, viewer Viewer, orderID int64, to enums.OrderStatus) (*OrderDTO, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	actor, ok := ActorForRole(viewer.Role)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers and admins can update order status")
	}
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": to})
	}

	var from enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderLookupError(err, orderID)
		}
		if actor == ActorSeller && order.ShopID != viewer.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to shop")
		}
		from = order.Status
		if err := CanTransition(order.Status, to, actor); err != nil {
			return err
		}

		ok, err := repo.TransitionOrder(ctx, order.ID, order.Status, to, viewer.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return invalidTransition(order.Status, to, actor)
		}

		now := s.now().UTC()
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAdvanced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: viewer.UserID, Role: viewer.Role},
			OccurredAt:    now,
			Data: payloads.OrderAdvancedEvent{
				OrderID:    order.ID,
				ShopID:     order.ShopID,
				From:       order.Status,
				To:         to,
				ActorID:    viewer.UserID,
				AdvancedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(to))
	ctx = s.logg.WithOrderID(ctx, orderID)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": from, "to": to}), "order status updated")

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapOrderLookupError(err, orderID)
	}
	dto := ToDTO(*order)
	return &dto, nil
}

func requireViewer(viewer Viewer) error {
	if viewer.UserID <= 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !viewer.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "role missing")
	}
	return nil
}

func mapOrderLookupError(err error, orderID int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return orderNotFound(orderID)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func orderNotFound(orderID int64) error {
	return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found").
		WithDetails(map[string]any{"orderId": orderID})
}

func cannotCancel(orderID int64, status enums.OrderStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeCannotCancelOrder, "order can only be cancelled while pending payment").
		WithDetails(map[string]any{"orderId": orderID, "status": status})
}
