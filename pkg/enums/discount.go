package enums

// DiscountType selects how a discount code value is interpreted.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFixed      DiscountType = "FIXED"
)

func (d DiscountType) IsValid() bool {
	return d == DiscountTypePercentage || d == DiscountTypeFixed
}

// DiscountBearer identifies who funds a discount.
type DiscountBearer string

const (
	DiscountBearerAdmin DiscountBearer = "ADMIN"
	DiscountBearerShop  DiscountBearer = "SHOP"
)

func (d DiscountBearer) IsValid() bool {
	return d == DiscountBearerAdmin || d == DiscountBearerShop
}
