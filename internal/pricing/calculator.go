// Package pricing computes the final, tax-inclusive price of a product.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/obs"
	"github.com/noah-isme/toko-checkout/internal/taxid"
	"github.com/noah-isme/toko-checkout/internal/voucher"
)

var (
	// ErrProductNotFound is returned for an unknown product identifier.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidCoupon is returned when a coupon code was supplied but does not exist.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrTaxRateNotConfigured is returned when no tax is configured for the derived country.
	ErrTaxRateNotConfigured = errors.New("tax rate for this country is not configured")
)

var hundred = decimal.NewFromInt(100)

// Calculator applies coupon, floor and tax rules over three catalog lookups.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	Products catalog.ProductFinder
	Coupons  catalog.CouponFinder
	Taxes    catalog.TaxFinder
}

// Calculate returns the price of productID for the customer identified by
// taxNumber, after the optional coupon and the country's tax, rounded to
// two decimal places. An empty couponCode means no coupon.
func (c *Calculator) Calculate(ctx context.Context, productID int64, taxNumber, couponCode string) (decimal.Decimal, error) {
	if c == nil || c.Products == nil || c.Coupons == nil || c.Taxes == nil {
		return decimal.Zero, errors.New("price calculator not configured")
	}
	ctx, span := otel.Tracer("pricing.Calculator").Start(ctx, "Calculator.Calculate")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product.id", productID),
		attribute.Bool("coupon.present", couponCode != ""),
	)

	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("pricing.result", result))
		if obs.PriceCalculationTotal != nil {
			obs.PriceCalculationTotal.WithLabelValues(result).Inc()
		}
	}()

	price, err := c.calculate(ctx, productID, taxNumber, couponCode)
	if err != nil {
		result = resultLabel(err)
		span.RecordError(err)
		return decimal.Zero, err
	}
	result = "success"
	return price, nil
}

// The order below is fixed: base price, coupon, floor at zero, tax, rounding.
func (c *Calculator) calculate(ctx context.Context, productID int64, taxNumber, couponCode string) (decimal.Decimal, error) {
	product, err := c.Products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return decimal.Zero, ErrProductNotFound
		}
		return decimal.Zero, fmt.Errorf("find product %d: %w", productID, err)
	}
	price := product.Price

	if couponCode != "" {
		coupon, err := c.Coupons.FindByCode(ctx, couponCode)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return decimal.Zero, ErrInvalidCoupon
			}
			return decimal.Zero, fmt.Errorf("find coupon %q: %w", couponCode, err)
		}
		price, err = voucher.Apply(price, coupon)
		if err != nil {
			return decimal.Zero, err
		}
	}

	price = voucher.Floor(price)

	country := taxid.CountryCode(taxNumber)
	tax, err := c.Taxes.FindByCountryCode(ctx, country)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return decimal.Zero, ErrTaxRateNotConfigured
		}
		return decimal.Zero, fmt.Errorf("find tax %q: %w", country, err)
	}

	price = price.Mul(decimal.NewFromInt(1).Add(tax.Rate.Div(hundred)))
	return price.Round(2), nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrInvalidCoupon):
		return "invalid_coupon"
	case errors.Is(err, ErrTaxRateNotConfigured):
		return "tax_not_configured"
	default:
		return "error"
	}
}
