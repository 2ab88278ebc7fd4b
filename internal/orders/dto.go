package orders

import (
	"time"

	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	"github.com/vendora/vendora-backend/pkg/types"
)

// OrderDTO is the API view of an order and its item snapshots.
type OrderDTO struct {
	ID                    int64              `json:"id"`
	UserID                int64              `json:"userId"`
	ShopID                int64              `json:"shopId"`
	PaymentID             int64              `json:"paymentId"`
	Status                enums.OrderStatus  `json:"status"`
	Receiver              types.Receiver     `json:"receiver"`
	Subtotal              int64              `json:"subtotal"`
	DiscountAmount        int64              `json:"discountAmount"`
	Total                 int64              `json:"total"`
	CommissionRate        string             `json:"commissionRate"`
	AdminCommissionAmount int64              `json:"adminCommissionAmount"`
	ShopPayoutAmount      int64              `json:"shopPayoutAmount"`
	PayoutStatus          enums.PayoutStatus `json:"payoutStatus"`
	DiscountCodeID        *int64             `json:"discountCodeId,omitempty"`
	ShippingMethodID      *int64             `json:"shippingMethodId,omitempty"`
	PaymentMethodID       *int64             `json:"paymentMethodId,omitempty"`
	CreatedByID           int64              `json:"createdById"`
	UpdatedByID           *int64             `json:"updatedById,omitempty"`
	Items                 []OrderItemDTO     `json:"items"`
	CreatedAt             time.Time          `json:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt"`
}

// OrderItemDTO is the frozen catalog snapshot of one purchased SKU.
type OrderItemDTO struct {
	ID                  int64                      `json:"id"`
	ProductID           int64                      `json:"productId"`
	SKUID               int64                      `json:"skuId"`
	ProductName         string                     `json:"productName"`
	SKUValue            string                     `json:"skuValue"`
	SKUPrice            int64                      `json:"skuPrice"`
	Image               string                     `json:"image"`
	Quantity            int                        `json:"quantity"`
	ProductTranslations types.TranslationSnapshots `json:"productTranslations"`
	CreatedAt           time.Time                  `json:"createdAt"`
}

// ListQuery carries the list endpoint inputs.
type ListQuery struct {
	Page   int
	Limit  int
	Status *enums.OrderStatus
	ShopID *int64
}

// ListResult is one page of orders.
type ListResult struct {
	Orders     []OrderDTO
	Page       int
	Limit      int
	TotalItems int64
	TotalPages int
}

// Viewer is the authenticated caller. The role comes from the access token on every request.
type Viewer struct {
	UserID int64
	Role   enums.Role
}

func (v Viewer) canSee(order models.Order) bool {
	switch v.Role {
	case enums.RoleAdmin:
		return true
	case enums.RoleSeller:
		return order.ShopID == v.UserID || order.UserID == v.UserID
	default:
		return order.UserID == v.UserID
	}
}

// ToDTO maps an order model, items included.
func ToDTO(order models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		translations := item.ProductTranslations
		if translations == nil {
			translations = types.TranslationSnapshots{}
		}
		items = append(items, OrderItemDTO{
			ID:                  item.ID,
			ProductID:           item.ProductID,
			SKUID:               item.SKUID,
			ProductName:         item.ProductName,
			SKUValue:            item.SKUValue,
			SKUPrice:            item.SKUPrice,
			Image:               item.Image,
			Quantity:            item.Quantity,
			ProductTranslations: translations,
			CreatedAt:           item.CreatedAt,
		})
	}
	return OrderDTO{
		ID:                    order.ID,
		UserID:                order.UserID,
		ShopID:                order.ShopID,
		PaymentID:             order.PaymentID,
		Status:                order.Status,
		Receiver:              order.Receiver,
		Subtotal:              order.Subtotal,
		DiscountAmount:        order.DiscountAmount,
		Total:                 order.Total,
		CommissionRate:        order.CommissionRate.StringFixed(2),
		AdminCommissionAmount: order.AdminCommissionAmount,
		ShopPayoutAmount:      order.ShopPayoutAmount,
		PayoutStatus:          order.PayoutStatus,
		DiscountCodeID:        order.DiscountCodeID,
		ShippingMethodID:      order.ShippingMethodID,
		PaymentMethodID:       order.PaymentMethodID,
		CreatedByID:           order.CreatedByID,
		UpdatedByID:           order.UpdatedByID,
		Items:                 items,
		CreatedAt:             order.CreatedAt,
		UpdatedAt:             order.UpdatedAt,
	}
}

// ToDTOs maps a slice of orders.
func ToDTOs(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row))
	}
	return out
}
