package models

import (
	"time"

	"github.com/vendora/vendora-backend/pkg/enums"
)

// Payment is shared by every order created in one checkout request.
type Payment struct {
	ID        int64               `gorm:"column:id;primaryKey;autoIncrement"`
	Status    enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Orders    []Order             `gorm:"foreignKey:PaymentID"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// PaymentTransaction is the append-only ledger of inbound gateway webhooks.
// The primary key is the gateway's own transaction id.
type PaymentTransaction struct {
	ID                 int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Gateway            string    `gorm:"column:gateway;not null"`
	TransactionDate    time.Time `gorm:"column:transaction_date;not null"`
	AccountNumber      *string   `gorm:"column:account_number"`
	SubAccount         *string   `gorm:"column:sub_account"`
	AmountIn           int64     `gorm:"column:amount_in;not null;default:0"`
	AmountOut          int64     `gorm:"column:amount_out;not null;default:0"`
	Accumulated        int64     `gorm:"column:accumulated;not null;default:0"`
	Code               *string   `gorm:"column:code"`
	TransactionContent *string   `gorm:"column:transaction_content"`
	ReferenceNumber    *string   `gorm:"column:reference_number"`
	Body               *string   `gorm:"column:body"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}
