package checkout

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PercentFloor returns floor(amount * percent / 100).
func PercentFloor(amount decimal.Decimal, percent int64) decimal.Decimal {
	if percent <= 0 || amount.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt(percent)).Div(hundred).Floor()
}

// DiscountedPrice applies a whole-percent discount, rounding the discount
// itself down: price - floor(price * discount / 100).
func DiscountedPrice(price decimal.Decimal, discount int) decimal.Decimal {
	if discount <= 0 {
		return price
	}
	return price.Sub(PercentFloor(price, int64(discount)))
}

// SellerShare nets the platform commission out of a line amount:
// amount - floor(amount * commission / 100).
func SellerShare(amount decimal.Decimal, commissionPercent int64) decimal.Decimal {
	return amount.Sub(PercentFloor(amount, commissionPercent))
}

// ToMinorUnits converts a currency amount into integer cents for the payment
// processor. Fractions of a cent are truncated.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Truncate(0).IntPart()
}
