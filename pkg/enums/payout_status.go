package enums

// PayoutStatus tracks whether the shop share of an order has been paid out.
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "PENDING"
	PayoutStatusPaid    PayoutStatus = "PAID"
)

func (p PayoutStatus) IsValid() bool {
	return p == PayoutStatusPending || p == PayoutStatusPaid
}
