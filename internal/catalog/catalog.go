package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by finders when no record matches the lookup key.
var ErrNotFound = errors.New("catalog: record not found")

// CouponType enumerates the supported discount rules.
type CouponType string

const (
	// CouponPercent reduces the price by a percentage of itself.
	CouponPercent CouponType = "percent"
	// CouponFixed subtracts a flat amount from the price.
	CouponFixed CouponType = "fixed"
)

// ParseCouponType normalises a stored coupon type value.
func ParseCouponType(value string) (CouponType, error) {
	switch CouponType(strings.ToLower(strings.TrimSpace(value))) {
	case CouponPercent:
		return CouponPercent, nil
	case CouponFixed:
		return CouponFixed, nil
	default:
		return "", fmt.Errorf("catalog: unknown coupon type %q", value)
	}
}

// Product is a purchasable item with its base price.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Coupon is a named discount rule.
type Coupon struct {
	Code  string          `json:"code"`
	Type  CouponType      `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Tax holds the VAT rate, in percent, configured for a country.
type Tax struct {
	CountryCode string          `json:"countryCode"`
	Rate        decimal.Decimal `json:"rate"`
}

// ProductFinder resolves products by identifier.
type ProductFinder interface {
	FindByID(ctx context.Context, id int64) (Product, error)
}

// CouponFinder resolves coupons by their exact code.
type CouponFinder interface {
	FindByCode(ctx context.Context, code string) (Coupon, error)
}

// TaxFinder resolves tax rates by country code.
type TaxFinder interface {
	FindByCountryCode(ctx context.Context, countryCode string) (Tax, error)
}
