package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
)

func TestSubtotal(t *testing.T) {
	assert.Equal(t, int64(0), Subtotal(nil))
	assert.Equal(t, int64(350), Subtotal([]Line{{UnitPrice: 100, Quantity: 2}, {UnitPrice: 150, Quantity: 1}}))
	assert.Equal(t, int64(300), ItemsSubtotal([]models.OrderItem{{SKUPrice: 100, Quantity: 3}}))
}

func TestDiscount(t *testing.T) {
	tests := []struct {
		name     string
		code     *models.DiscountCode
		subtotal int64
		want     int64
	}{
		{name: "no code", subtotal: 1000, want: 0},
		{name: "percentage", code: &models.DiscountCode{Type: enums.DiscountTypePercentage, Value: 10}, subtotal: 1005, want: 101},
		{name: "percentage rounds half up", code: &models.DiscountCode{Type: enums.DiscountTypePercentage, Value: 50}, subtotal: 5, want: 3},
		{name: "fixed", code: &models.DiscountCode{Type: enums.DiscountTypeFixed, Value: 300}, subtotal: 1000, want: 300},
		{name: "fixed capped at subtotal", code: &models.DiscountCode{Type: enums.DiscountTypeFixed, Value: 3000}, subtotal: 1000, want: 1000},
		{name: "negative floored", code: &models.DiscountCode{Type: enums.DiscountTypeFixed, Value: -5}, subtotal: 1000, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Discount(tt.code, tt.subtotal))
		})
	}
}

func TestComputeSplitsCommission(t *testing.T) {
	got, err := Compute(Input{Subtotal: 300000, DiscountAmount: 0, CommissionRate: decimal.RequireFromString("8")})
	require.NoError(t, err)
	assert.Equal(t, int64(300000), got.Total)
	assert.Equal(t, int64(24000), got.AdminCommissionAmount)
	assert.Equal(t, int64(276000), got.ShopPayoutAmount)
}

func TestComputeRoundsHalfUp(t *testing.T) {
	got, err := Compute(Input{Subtotal: 1000, DiscountAmount: 375, CommissionRate: decimal.RequireFromString("8.00")})
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.AdminCommissionAmount)

	// 0.5 rounds up to 1.

	half, err := Compute(Input{Subtotal: 1, CommissionRate: decimal.RequireFromString("50")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), half.AdminCommissionAmount)
	assert.Equal(t, int64(0), half.ShopPayoutAmount)
}

func TestComputeCommissionAlwaysAddsUp(t *testing.T) {
	rates := []string{"0", "0.01", "7.5", "8", "12.35", "33.33", "99.99", "100"}
	for _, rate := range rates {
		r := decimal.RequireFromString(rate)
		for subtotal := int64(0); subtotal < 2000; subtotal += 37 {
			for _, discount := range []int64{0, subtotal / 3, subtotal} {
				got, err := Compute(Input{Subtotal: subtotal, DiscountAmount: discount, CommissionRate: r})
				require.NoError(t, err)
				require.Equal(t, got.Total, got.AdminCommissionAmount+got.ShopPayoutAmount, "rate=%s subtotal=%d", rate, subtotal)
				require.Equal(t, subtotal-discount, got.Total)
				require.GreaterOrEqual(t, got.ShopPayoutAmount, int64(0))
			}
		}
	}
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	cases := []Input{
		{Subtotal: -1, CommissionRate: decimal.NewFromInt(8)},
		{Subtotal: 10, DiscountAmount: -1, CommissionRate: decimal.NewFromInt(8)},
		{Subtotal: 10, DiscountAmount: 11, CommissionRate: decimal.NewFromInt(8)},
		{Subtotal: 10, CommissionRate: decimal.NewFromInt(-1)},
		{Subtotal: 10, CommissionRate: decimal.NewFromInt(101)},
	}
	for _, in := range cases {
		_, err := Compute(in)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v", in)
	}
}

func TestRateFromPercent(t *testing.T) {
	assert.Equal(t, "8", RateFromPercent(8.0).String())
	assert.Equal(t, "12.35", RateFromPercent(12.345).String())
}
