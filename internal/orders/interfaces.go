package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	"github.com/vendora/vendora-backend/pkg/pagination"
)

// Repository defines persistence operations for payments, orders and order items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePayment(ctx context.Context, payment *models.Payment) error
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, orderID int64) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, int64, error)
	FindPayment(ctx context.Context, paymentID int64) (*models.Payment, error)
	FindPaymentForUpdate(ctx context.Context, paymentID int64) (*models.Payment, error)
	FindOrdersByPayment(ctx context.Context, paymentID int64) ([]models.Order, error)
	TransitionPayment(ctx context.Context, paymentID int64, from, to enums.PaymentStatus) (bool, error)
	TransitionOrdersByPayment(ctx context.Context, paymentID int64, from, to enums.OrderStatus, actorID *int64) (int64, error)
	TransitionOrder(ctx context.Context, orderID int64, from, to enums.OrderStatus, actorID int64) (bool, error)
	ListStalePendingPayments(ctx context.Context, createdBefore time.Time, limit int) ([]int64, error)
}

// ListFilter narrows the orders list. Viewer fields scope non-admin callers to their own rows.
type ListFilter struct {
	ViewerID   int64
	ViewerRole enums.Role
	Status     *enums.OrderStatus
	ShopID     *int64
}
