package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/internal/checkout/helpers"
	"github.com/vendora/vendora-backend/internal/inventory"
	"github.com/vendora/vendora-backend/internal/orders"
	"github.com/vendora/vendora-backend/internal/payments"
	"github.com/vendora/vendora-backend/internal/pricing"
	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/logger"
	"github.com/vendora/vendora-backend/pkg/metrics"
	"github.com/vendora/vendora-backend/pkg/outbox"
	"github.com/vendora/vendora-backend/pkg/outbox/payloads"
	"github.com/vendora/vendora-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockGuard interface {
	Check(ctx context.Context, tx *gorm.DB, userID int64, cartItemIDs []int64) ([]inventory.Line, error)
	Reserve(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error
}

type cancelScheduler interface {
	Schedule(ctx context.Context, paymentID int64) (time.Time, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// GroupInput is one shop's slice of a checkout request.
type GroupInput struct {
	ShopID           int64          `json:"shopId" validate:"required,gt=0"`
	CartItemIDs      []int64        `json:"cartItemIds" validate:"required,min=1,dive,gt=0"`
	Receiver         types.Receiver `json:"receiver"`
	DiscountCodeID   *int64         `json:"discountCodeId,omitempty" validate:"omitempty,gt=0"`
	ShippingMethodID *int64         `json:"shippingMethodId,omitempty" validate:"omitempty,gt=0"`
	PaymentMethodID  *int64         `json:"paymentMethodId,omitempty" validate:"omitempty,gt=0"`
}

// Result is the payment group created by a checkout.
type Result struct {
	PaymentID   int64             `json:"paymentId"`
	PaymentCode string            `json:"paymentCode"`
	Total       int64             `json:"total"`
	CancelAfter time.Time         `json:"cancelAfter"`
	Orders      []orders.OrderDTO `json:"orders"`
}

// Service turns cart items into one payment and one order per shop.
type Service interface {
	CreateOrders(ctx context.Context, userID int64, groups []GroupInput) (*Result, error)
}

type ServiceParams struct {
	DB              txRunner
	Repository      Repository
	Orders          orders.Repository
	Guard           stockGuard
	Scheduler       cancelScheduler
	Outbox          outboxPublisher
	Metrics         *metrics.OrderFlowMetrics
	Logger          *logger.Logger
	CommissionRate  decimal.Decimal
	ReferencePrefix string
}

type service struct {
	db        txRunner
	repo      Repository
	orders    orders.Repository
	guard     stockGuard
	scheduler cancelScheduler
	outbox    outboxPublisher
	metrics   *metrics.OrderFlowMetrics
	logg      *logger.Logger
	rate      decimal.Decimal
	prefix    string
	now       func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("inventory guard required")
	}
	if params.Scheduler == nil {
		return nil, fmt.Errorf("cancel scheduler required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.CommissionRate.IsNegative() || params.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("commission rate must be between 0 and 100")
	}
	prefix := params.ReferencePrefix
	if prefix == "" {
		prefix = payments.DefaultReferencePrefix
	}
	return &service{
		db:        params.DB,
		repo:      params.Repository,
		orders:    params.Orders,
		guard:     params.Guard,
		scheduler: params.Scheduler,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
		rate:      params.CommissionRate,
		prefix:    prefix,
		now:       time.Now,
	}, nil
}

// groupPlan is a validated group with its collaborators resolved.
type groupPlan struct {
	input    GroupInput
	lines    []inventory.Line
	discount *models.DiscountCode
}

func (s *service) CreateOrders(ctx context.Context, userID int64, groups []GroupInput) (*Result, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	ctx = s.logg.WithUserID(ctx, userID)

	shapes := make([]helpers.GroupShape, len(groups))
	for i, group := range groups {
		shapes[i] = helpers.GroupShape{ShopID: group.ShopID, CartItemIDs: group.CartItemIDs, Receiver: group.Receiver}
	}
	if err := helpers.ValidateGroups(shapes); err != nil {
		s.metrics.ObserveCheckout(string(pkgerrors.CodeOf(err)), 0)
		return nil, err
	}

	var result *Result
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.createInTx(ctx, tx, userID, groups, helpers.CartItemIDs(shapes))
		return err
	})
	if err != nil {
		s.metrics.ObserveCheckout(string(pkgerrors.CodeOf(err)), 0)
		if pkgerrors.As(err) == nil || pkgerrors.As(err).Retryable() {
			s.logg.Error(ctx, "checkout failed", err)
		} else {
			s.logg.Warn(s.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "checkout rejected")
		}
		return nil, err
	}

	s.metrics.ObserveCheckout(metrics.OutcomeSuccess, len(result.Orders))
	s.logg.Info(s.logg.WithFields(s.logg.WithPaymentID(ctx, result.PaymentID), map[string]any{
		"orders": len(result.Orders),
		"total":  result.Total,
	}), "checkout created")
	return result, nil
}

func (s *service) createInTx(ctx context.Context, tx *gorm.DB, userID int64, groups []GroupInput, cartItemIDs []int64) (*Result, error) {
	repo := s.repo.WithTx(tx)
	ordersRepo := s.orders.WithTx(tx)

	lines, err := s.guard.Check(ctx, tx, userID, cartItemIDs)
	if err != nil {
		return nil, err
	}
	indexed := helpers.IndexLines(lines)

	plans := make([]groupPlan, 0, len(groups))
	for _, group := range groups {
		groupLines := helpers.LinesFor(group.CartItemIDs, indexed)
		if err := helpers.EnsureShopOwnership(group.ShopID, groupLines); err != nil {
			return nil, err
		}
		plans = append(plans, groupPlan{input: group, lines: groupLines})
	}

	for i := range plans {
		if err := s.resolveCollaborators(ctx, repo, &plans[i]); err != nil {
			return nil, err
		}
	}

	payment := models.Payment{Status: enums.PaymentStatusPending}
	if err := ordersRepo.CreatePayment(ctx, &payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}

	var (
		orderIDs []int64
		shopIDs  []int64
		total    int64
	)
	for _, plan := range plans {
		order, err := s.buildOrder(userID, payment.ID, plan)
		if err != nil {
			return nil, err
		}
		if err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		orderIDs = append(orderIDs, order.ID)
		shopIDs = append(shopIDs, order.ShopID)
		total += order.Total
	}

	if err := s.guard.Reserve(ctx, tx, lines); err != nil {
		return nil, err
	}

	deleted, err := repo.DeleteCartItems(ctx, userID, cartItemIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart items")
	}
	if deleted != int64(len(cartItemIDs)) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout").
			WithDetails(map[string]any{"expected": len(cartItemIDs), "deleted": deleted})
	}

	cancelAfter, err := s.scheduler.Schedule(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "schedule payment cancellation")
	}

	paymentCode := payments.FormatReference(s.prefix, payment.ID)
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         &outbox.ActorRef{UserID: userID, Role: enums.RoleClient},
		Data: payloads.OrderCreatedEvent{
			PaymentID:   payment.ID,
			UserID:      userID,
			OrderIDs:    orderIDs,
			ShopIDs:     shopIDs,
			Total:       total,
			PaymentCode: paymentCode,
			CancelAfter: cancelAfter.UTC(),
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
	}

	created, err := ordersRepo.FindOrdersByPayment(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload orders")
	}
	return &Result{
		PaymentID:   payment.ID,
		PaymentCode: paymentCode,
		Total:       total,
		CancelAfter: cancelAfter.UTC(),
		Orders:      orders.ToDTOs(created),
	}, nil
}

func (s *service) resolveCollaborators(ctx context.Context, repo Repository, plan *groupPlan) error {
	in := plan.input

	if in.DiscountCodeID != nil {
		code, err := repo.FindDiscountCode(ctx, *in.DiscountCodeID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeDiscountCodeInvalid, "discount code not found").
				WithDetails(map[string]any{"discountCodeId": *in.DiscountCodeID})
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount code")
		}
		if err := helpers.ValidateDiscount(code, in.ShopID, s.now()); err != nil {
			return err
		}
		claimed, err := repo.ClaimDiscountUsage(ctx, code.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim discount usage")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeDiscountCodeInvalid, "discount code usage limit reached").
				WithDetails(map[string]any{"discountCodeId": code.ID})
		}
		plan.discount = code
	}

	if in.ShippingMethodID != nil {
		method, err := repo.FindShippingMethod(ctx, *in.ShippingMethodID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping method")
		}
		if method == nil || !method.IsActive {
			return pkgerrors.New(pkgerrors.CodeShippingMethodUnavailable, "shipping method is not available").
				WithDetails(map[string]any{"shippingMethodId": *in.ShippingMethodID})
		}
	}

	if in.PaymentMethodID != nil {
		method, err := repo.FindPaymentMethod(ctx, *in.PaymentMethodID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
		}
		if method == nil || !method.IsActive {
			return pkgerrors.New(pkgerrors.CodePaymentMethodUnavailable, "payment method is not available").
				WithDetails(map[string]any{"paymentMethodId": *in.PaymentMethodID})
		}
	}
	return nil
}

func (s *service) buildOrder(userID, paymentID int64, plan groupPlan) (*models.Order, error) {
	items := helpers.BuildOrderItems(plan.lines)
	subtotal := pricing.ItemsSubtotal(items)
	breakdown, err := pricing.Compute(pricing.Input{
		Subtotal:       subtotal,
		DiscountAmount: pricing.Discount(plan.discount, subtotal),
		CommissionRate: s.rate,
	})
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:                userID,
		ShopID:                plan.input.ShopID,
		PaymentID:             paymentID,
		Status:                enums.OrderStatusPendingPayment,
		Receiver:              plan.input.Receiver,
		Subtotal:              breakdown.Subtotal,
		DiscountAmount:        breakdown.DiscountAmount,
		Total:                 breakdown.Total,
		CommissionRate:        breakdown.CommissionRate,
		AdminCommissionAmount: breakdown.AdminCommissionAmount,
		ShopPayoutAmount:      breakdown.ShopPayoutAmount,
		PayoutStatus:          enums.PayoutStatusPending,
		ShippingMethodID:      plan.input.ShippingMethodID,
		PaymentMethodID:       plan.input.PaymentMethodID,
		CreatedByID:           userID,
		Items:                 items,
	}
	if plan.discount != nil {
		order.DiscountCodeID = &plan.discount.ID
	}
	return order, nil
}
