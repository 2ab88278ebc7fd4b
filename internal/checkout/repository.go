package checkout

import (
	"context"

	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/pkg/db/models"
)

// Repository reads checkout collaborators and consumes cart rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindDiscountCode(ctx context.Context, id int64) (*models.DiscountCode, error)
	ClaimDiscountUsage(ctx context.Context, id int64) (bool, error)
	FindShippingMethod(ctx context.Context, id int64) (*models.ShippingMethod, error)
	FindPaymentMethod(ctx context.Context, id int64) (*models.PaymentMethod, error)
	DeleteCartItems(ctx context.Context, userID int64, ids []int64) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindDiscountCode(ctx context.Context, id int64) (*models.DiscountCode, error) {
	var code models.DiscountCode
	if err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

// ClaimDiscountUsage consumes one use of the code. It reports false when the
// usage limit was reached by a concurrent checkout. A limit of zero is unlimited.
func (r *repository) ClaimDiscountUsage(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DiscountCode{}).
		Where("id = ? AND (usage_limit = 0 OR used_count < usage_limit)", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindShippingMethod(ctx context.Context, id int64) (*models.ShippingMethod, error) {
	var method models.ShippingMethod
	if err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&method).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) FindPaymentMethod(ctx context.Context, id int64) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&method).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

// DeleteCartItems removes the ordered cart rows of userID.
func (r *repository) DeleteCartItems(ctx context.Context, userID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
