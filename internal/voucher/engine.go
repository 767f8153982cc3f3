package voucher

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-checkout/internal/catalog"
)

var hundred = decimal.NewFromInt(100)

// ErrUnknownCouponType is returned for a coupon whose type is neither fixed
// nor percent.
var ErrUnknownCouponType = errors.New("unknown coupon type")

// Apply returns price after the coupon's discount. The result is not clamped
// and may be negative when a fixed coupon exceeds the price.
func Apply(price decimal.Decimal, c catalog.Coupon) (decimal.Decimal, error) {
	switch c.Type {
	case catalog.CouponFixed:
		return price.Sub(c.Value), nil
	case catalog.CouponPercent:
		return price.Mul(decimal.NewFromInt(1).Sub(c.Value.Div(hundred))), nil
	default:
		return decimal.Zero, fmt.Errorf("coupon %s: %w %q", c.Code, ErrUnknownCouponType, c.Type)
	}
}

// Floor clamps negative prices to zero.
func Floor(price decimal.Decimal) decimal.Decimal {
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}
