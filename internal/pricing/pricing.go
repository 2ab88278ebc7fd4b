// Package pricing computes order totals and the admin/shop commission split.
// All amounts are minor currency units; rounding is half-up on the decimal value.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Line is a priced quantity.
type Line struct {
	UnitPrice int64
	Quantity  int
}

// Input feeds Compute.
type Input struct {
	Subtotal       int64
	DiscountAmount int64
	CommissionRate decimal.Decimal
}

// Breakdown is the persisted money split of one order.
type Breakdown struct {
	Subtotal              int64
	DiscountAmount        int64
	Total                 int64
	CommissionRate        decimal.Decimal
	AdminCommissionAmount int64
	ShopPayoutAmount      int64
}

// Subtotal returns the sum of unitPrice * quantity.
func Subtotal(lines []Line) int64 {
	var sum int64
	for _, line := range lines {
		sum += line.UnitPrice * int64(line.Quantity)
	}
	return sum
}

// ItemsSubtotal sums the snapshot prices of order items.
func ItemsSubtotal(items []models.OrderItem) int64 {
	var sum int64
	for _, item := range items {
		sum += item.LineTotal()
	}
	return sum
}

// Discount returns the amount a code takes off subtotal, clamped to [0, subtotal].
func Discount(code *models.DiscountCode, subtotal int64) int64 {
	if code == nil || subtotal <= 0 {
		return 0
	}

	var amount int64
	switch code.Type {
	case enums.DiscountTypePercentage:
		amount = roundHalfUp(decimal.NewFromInt(subtotal).Mul(decimal.NewFromInt(code.Value)).Div(hundred))
	case enums.DiscountTypeFixed:
		amount = code.Value
	}

	if amount < 0 {
		return 0
	}
	if amount > subtotal {
		return subtotal
	}
	return amount
}

// Compute derives total, admin commission and shop payout. The commission and
// payout always add up to total exactly.
func Compute(in Input) (Breakdown, error) {
	if in.Subtotal < 0 || in.DiscountAmount < 0 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "amounts must not be negative").
			WithDetails(map[string]any{"subtotal": in.Subtotal, "discountAmount": in.DiscountAmount})
	}
	if in.DiscountAmount > in.Subtotal {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds subtotal").
			WithDetails(map[string]any{"subtotal": in.Subtotal, "discountAmount": in.DiscountAmount})
	}
	if in.CommissionRate.IsNegative() || in.CommissionRate.GreaterThan(hundred) {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 100").
			WithDetails(map[string]any{"commissionRate": in.CommissionRate.String()})
	}

	total := in.Subtotal - in.DiscountAmount
	admin := roundHalfUp(decimal.NewFromInt(total).Mul(in.CommissionRate).Div(hundred))

	return Breakdown{
		Subtotal:              in.Subtotal,
		DiscountAmount:        in.DiscountAmount,
		Total:                 total,
		CommissionRate:        in.CommissionRate,
		AdminCommissionAmount: admin,
		ShopPayoutAmount:      total - admin,
	}, nil
}

// RateFromPercent converts a configured percentage into the two-decimal rate stored on orders.
func RateFromPercent(percent float64) decimal.Decimal {
	return decimal.NewFromFloat(percent).Round(2)
}

func roundHalfUp(d decimal.Decimal) int64 {
	// decimal.Round rounds half away from zero, which is half-up for non-negative values.
	return d.Round(0).IntPart()
}
