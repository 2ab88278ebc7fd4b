package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendora/vendora-backend/pkg/enums"
	"github.com/vendora/vendora-backend/pkg/types"
)

// Order is the per-shop slice of a checkout. Totals are in minor currency units.
type Order struct {
	ID                    int64              `gorm:"column:id;primaryKey;autoIncrement"`
	UserID                int64              `gorm:"column:user_id;not null;index"`
	ShopID                int64              `gorm:"column:shop_id;not null;index"`
	PaymentID             int64              `gorm:"column:payment_id;not null;index"`
	Status                enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'PENDING_PAYMENT'"`
	Receiver              types.Receiver     `gorm:"column:receiver;type:jsonb;not null"`
	Subtotal              int64              `gorm:"column:subtotal;not null"`
	DiscountAmount        int64              `gorm:"column:discount_amount;not null;default:0"`
	Total                 int64              `gorm:"column:total;not null"`
	CommissionRate        decimal.Decimal    `gorm:"column:commission_rate;type:numeric(5,2);not null"`
	AdminCommissionAmount int64              `gorm:"column:admin_commission_amount;not null"`
	ShopPayoutAmount      int64              `gorm:"column:shop_payout_amount;not null"`
	PayoutStatus          enums.PayoutStatus `gorm:"column:payout_status;type:text;not null;default:'PENDING'"`
	DiscountCodeID        *int64             `gorm:"column:discount_code_id"`
	ShippingMethodID      *int64             `gorm:"column:shipping_method_id"`
	PaymentMethodID       *int64             `gorm:"column:payment_method_id"`
	CreatedByID           int64              `gorm:"column:created_by_id;not null"`
	UpdatedByID           *int64             `gorm:"column:updated_by_id"`
	Items                 []OrderItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt             *time.Time         `gorm:"column:deleted_at"`
}

// OrderItem is an immutable snapshot of catalog data at purchase time.
// ProductID and SKUID are informational and carry no foreign key.
type OrderItem struct {
	ID                  int64                      `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID             int64                      `gorm:"column:order_id;not null;index"`
	ProductID           int64                      `gorm:"column:product_id;not null"`
	SKUID               int64                      `gorm:"column:sku_id;not null"`
	ProductName         string                     `gorm:"column:product_name;not null"`
	SKUValue            string                     `gorm:"column:sku_value;not null"`
	SKUPrice            int64                      `gorm:"column:sku_price;not null"`
	Image               string                     `gorm:"column:image;not null;default:''"`
	Quantity            int                        `gorm:"column:quantity;not null"`
	ProductTranslations types.TranslationSnapshots `gorm:"column:product_translations;type:jsonb;not null"`
	CreatedAt           time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

// LineTotal returns skuPrice * quantity.
func (i OrderItem) LineTotal() int64 {
	return i.SKUPrice * int64(i.Quantity)
}
