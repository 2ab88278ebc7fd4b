package models

import "time"

// Product is the catalog entry owned by a shop (CreatedByID).
type Product struct {
	ID           int64                `gorm:"column:id;primaryKey;autoIncrement"`
	CreatedByID  int64                `gorm:"column:created_by_id;not null;index"`
	Name         string               `gorm:"column:name;not null"`
	BasePrice    int64                `gorm:"column:base_price;not null;default:0"`
	PublishedAt  *time.Time           `gorm:"column:published_at"`
	Translations []ProductTranslation `gorm:"foreignKey:ProductID"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    *time.Time           `gorm:"column:deleted_at"`
}

// IsPurchasable reports whether the product is live at the given instant.
func (p Product) IsPurchasable(now time.Time) bool {
	if p.DeletedAt != nil {
		return false
	}
	if p.PublishedAt == nil {
		return false
	}
	return !p.PublishedAt.After(now)
}

// ProductTranslation holds localized copy for a product.
type ProductTranslation struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID   int64      `gorm:"column:product_id;not null;index"`
	LanguageID  string     `gorm:"column:language_id;not null"`
	Name        string     `gorm:"column:name;not null"`
	Description string     `gorm:"column:description;not null;default:''"`
	DeletedAt   *time.Time `gorm:"column:deleted_at"`
}
