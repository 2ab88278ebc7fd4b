package models

import "time"

// CartItem is a pending purchase line owned by a user; deleted once ordered.
type CartItem struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null;index"`
	SKUID     int64     `gorm:"column:sku_id;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	SKU       *SKU      `gorm:"foreignKey:SKUID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
