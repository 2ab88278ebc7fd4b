package orders

import (
	"github.com/vendora/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
)

// Actor identifies who is driving a status change.
type Actor string

const (
	ActorPaymentReconciliation Actor = "payment_reconciliation"
	ActorPaymentTimeout        Actor = "payment_timeout"
	ActorOwner                 Actor = "owner"
	ActorSeller                Actor = "seller"
	ActorAdmin                 Actor = "admin"
)

type transition struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

var allowedTransitions = map[transition][]Actor{
	{enums.OrderStatusPendingPayment, enums.OrderStatusPendingPickup}:  {ActorPaymentReconciliation},
	{enums.OrderStatusPendingPayment, enums.OrderStatusCancelled}:      {ActorOwner, ActorPaymentTimeout},
	{enums.OrderStatusPendingPickup, enums.OrderStatusPendingDelivery}: {ActorSeller, ActorAdmin},
	{enums.OrderStatusPendingDelivery, enums.OrderStatusDelivered}:     {ActorSeller, ActorAdmin},
}

// CanTransition validates a status change for the given actor. RETURNED is a
// known status but no actor can reach it here.
func CanTransition(from, to enums.OrderStatus, actor Actor) error {
	if !from.IsValid() || !to.IsValid() {
		return invalidTransition(from, to, actor)
	}
	for _, allowed := range allowedTransitions[transition{from: from, to: to}] {
		if allowed == actor {
			return nil
		}
	}
	return invalidTransition(from, to, actor)
}

// ActorForRole maps an authenticated role onto the fulfilment actor it acts as.
func ActorForRole(role enums.Role) (Actor, bool) {
	switch role {
	case enums.RoleAdmin:
		return ActorAdmin, true
	case enums.RoleSeller:
		return ActorSeller, true
	default:
		return "", false
	}
}

func invalidTransition(from, to enums.OrderStatus, actor Actor) error {
	return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "order status transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to, "actor": actor})
}
