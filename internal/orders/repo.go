package orders

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendora/vendora-backend/pkg/db"
	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	"github.com/vendora/vendora-backend/pkg/pagination"
)

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn, now: time.Now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(payment).Error
}

// CreateOrder inserts the order together with its item snapshots.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id ASC") }).
		Where("id = ? AND deleted_at IS NULL", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := r.locking(ctx).
		Where("id = ? AND deleted_at IS NULL", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrders(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, int64, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("deleted_at IS NULL")
	switch filter.ViewerRole {
	case enums.RoleAdmin:
	case enums.RoleSeller:
		query = query.Where("(shop_id = ? OR user_id = ?)", filter.ViewerID, filter.ViewerID)
	default:
		query = query.Where("user_id = ?", filter.ViewerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.Order{}, 0, nil
	}

	var rows []models.Order
	err := query.
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id ASC") }).
		Order("created_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) FindPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", paymentID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindPaymentForUpdate locks the payment row (Postgres only) and loads its
// orders and items. Every writer of payment status goes through this lock.
func (r *repository) FindPaymentForUpdate(ctx context.Context, paymentID int64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.locking(ctx).Where("id = ?", paymentID).First(&payment).Error; err != nil {
		return nil, err
	}
	orders, err := r.FindOrdersByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	payment.Orders = orders
	return &payment, nil
}

func (r *repository) FindOrdersByPayment(ctx context.Context, paymentID int64) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id ASC") }).
		Where("payment_id = ? AND deleted_at IS NULL", paymentID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TransitionPayment moves a payment from one status to another. It reports
// false when the payment was no longer in the expected status.
func (r *repository) TransitionPayment(ctx context.Context, paymentID int64, from, to enums.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, from).
		Updates(map[string]any{"status": to, "updated_at": r.now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) TransitionOrdersByPayment(ctx context.Context, paymentID int64, from, to enums.OrderStatus, actorID *int64) (int64, error) {
	updates := map[string]any{"status": to, "updated_at": r.now().UTC()}
	if actorID != nil {
		updates["updated_by_id"] = *actorID
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_id = ? AND status = ? AND deleted_at IS NULL", paymentID, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) TransitionOrder(ctx context.Context, orderID int64, from, to enums.OrderStatus, actorID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND deleted_at IS NULL", orderID, from).
		Updates(map[string]any{"status": to, "updated_by_id": actorID, "updated_at": r.now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListStalePendingPayments returns ids of payments still PENDING that were created before the cutoff.
func (r *repository) ListStalePendingPayments(ctx context.Context, createdBefore time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status = ? AND created_at < ?", enums.PaymentStatusPending, createdBefore.UTC()).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) locking(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if db.IsPostgres(q) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}
