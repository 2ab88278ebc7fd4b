package models

import "time"

// SKU is a purchasable variant of a product. Stock never goes below zero.
type SKU struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID int64      `gorm:"column:product_id;not null;index"`
	Value     string     `gorm:"column:value;not null"`
	Price     int64      `gorm:"column:price;not null"`
	Stock     int        `gorm:"column:stock;not null;default:0"`
	Image     string     `gorm:"column:image;not null;default:''"`
	Product   *Product   `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}

func (SKU) TableName() string {
	return "skus"
}
