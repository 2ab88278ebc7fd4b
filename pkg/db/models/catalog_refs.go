package models

import (
	"time"

	"github.com/vendora/vendora-backend/pkg/enums"
)

// DiscountCode is read at checkout; only UsedCount is written by this service.
type DiscountCode struct {
	ID         int64                `gorm:"column:id;primaryKey;autoIncrement"`
	Code       string               `gorm:"column:code;not null;uniqueIndex"`
	Type       enums.DiscountType   `gorm:"column:type;type:text;not null"`
	Value      int64                `gorm:"column:value;not null"`
	Bearer     enums.DiscountBearer `gorm:"column:bearer;type:text;not null;default:'ADMIN'"`
	ShopID     *int64               `gorm:"column:shop_id"`
	UsageLimit int                  `gorm:"column:usage_limit;not null;default:0"`
	UsedCount  int                  `gorm:"column:used_count;not null;default:0"`
	ValidFrom  *time.Time           `gorm:"column:valid_from"`
	ValidTo    *time.Time           `gorm:"column:valid_to"`
	IsActive   bool                 `gorm:"column:is_active;not null;default:true"`
	DeletedAt  *time.Time           `gorm:"column:deleted_at"`
}

// ShippingMethod is a carrier option a buyer can pick per shop order.
type ShippingMethod struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string     `gorm:"column:name;not null"`
	Provider  string     `gorm:"column:provider;not null;default:''"`
	Price     int64      `gorm:"column:price;not null;default:0"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}

// PaymentMethod is a checkout payment option such as bank transfer.
type PaymentMethod struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Key       string     `gorm:"column:key;not null;uniqueIndex"`
	Name      string     `gorm:"column:name;not null"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}
