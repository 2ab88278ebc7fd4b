package payloads

import (
	"time"

	"github.com/vendora/vendora-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once per checkout, aggregated on the payment.
type OrderCreatedEvent struct {
	PaymentID   int64     `json:"paymentId"`
	UserID      int64     `json:"userId"`
	OrderIDs    []int64   `json:"orderIds"`
	ShopIDs     []int64   `json:"shopIds"`
	Total       int64     `json:"total"`
	PaymentCode string    `json:"paymentCode"`
	CancelAfter time.Time `json:"cancelAfter"`
}

// OrderPaidEvent is emitted when a bank transfer settles a payment.
type OrderPaidEvent struct {
	PaymentID     int64     `json:"paymentId"`
	OrderIDs      []int64   `json:"orderIds"`
	TransactionID int64     `json:"transactionId"`
	Gateway       string    `json:"gateway"`
	Amount        int64     `json:"amount"`
	PaidAt        time.Time `json:"paidAt"`
}

// Cancellation reasons carried by OrderCanceledEvent.
const (
	CancelReasonPaymentTimeout = "payment_timeout"
	CancelReasonUserRequested  = "user_requested"
)

// OrderCanceledEvent is emitted when an unpaid payment group is voided.
type OrderCanceledEvent struct {
	PaymentID  int64     `json:"paymentId"`
	OrderIDs   []int64   `json:"orderIds"`
	Reason     string    `json:"reason"`
	CanceledAt time.Time `json:"canceledAt"`
}

// OrderAdvancedEvent is emitted on seller/admin driven fulfilment transitions.
type OrderAdvancedEvent struct {
	OrderID    int64             `json:"orderId"`
	ShopID     int64             `json:"shopId"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
	ActorID    int64             `json:"actorId"`
	AdvancedAt time.Time         `json:"advancedAt"`
}
