package pricing_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/pricing"
	"github.com/noah-isme/toko-checkout/internal/voucher"
)

type fakeCatalog struct {
	products map[int64]catalog.Product
	coupons  map[string]catalog.Coupon
	taxes    map[string]catalog.Tax
	err      error

	productCalls int
	couponCalls  int
	taxCalls     int
	taxLookups   []string
}

func (f *fakeCatalog) FindByID(_ context.Context, id int64) (catalog.Product, error) {
	f.productCalls++
	if f.err != nil {
		return catalog.Product{}, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) FindByCode(_ context.Context, code string) (catalog.Coupon, error) {
	f.couponCalls++
	c, ok := f.coupons[code]
	if !ok {
		return catalog.Coupon{}, catalog.ErrNotFound
	}
	return c, nil
}

func (f *fakeCatalog) FindByCountryCode(_ context.Context, code string) (catalog.Tax, error) {
	f.taxCalls++
	f.taxLookups = append(f.taxLookups, code)
	t, ok := f.taxes[code]
	if !ok {
		return catalog.Tax{}, catalog.ErrNotFound
	}
	return t, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[int64]catalog.Product{
			1: {ID: 1, Name: "Iphone", Price: dec("100.00")},
			2: {ID: 2, Name: "Наушники", Price: dec("20.00")},
			3: {ID: 3, Name: "Чехол", Price: dec("10.00")},
			4: {ID: 4, Name: "Sticker", Price: dec("5.00")},
			5: {ID: 5, Name: "Cable", Price: dec("1.005")},
		},
		coupons: map[string]catalog.Coupon{
			"D15":  {Code: "D15", Type: catalog.CouponPercent, Value: dec("15")},
			"P6":   {Code: "P6", Type: catalog.CouponPercent, Value: dec("6")},
			"F10":  {Code: "F10", Type: catalog.CouponFixed, Value: dec("10")},
			"P100": {Code: "P100", Type: catalog.CouponPercent, Value: dec("100")},
		},
		taxes: map[string]catalog.Tax{
			"DE": {CountryCode: "DE", Rate: dec("19")},
			"IT": {CountryCode: "IT", Rate: dec("22")},
			"FR": {CountryCode: "FR", Rate: dec("20")},
			"GR": {CountryCode: "GR", Rate: dec("24")},
			"XX": {CountryCode: "XX", Rate: dec("25")},
			"ZZ": {CountryCode: "ZZ", Rate: dec("0")},
		},
	}
}

func newCalculator(f *fakeCatalog) *pricing.Calculator {
	return &pricing.Calculator{Products: f, Coupons: f, Taxes: f}
}

func TestCalculate(t *testing.T) {
	cases := []struct {
		name      string
		productID int64
		taxNumber string
		coupon    string
		want      string
	}{
		{name: "no coupon germany", productID: 1, taxNumber: "DE123456789", want: "119.00"},
		{name: "no coupon italy", productID: 1, taxNumber: "IT12345678900", want: "122.00"},
		{name: "percent coupon germany", productID: 1, taxNumber: "DE123456789", coupon: "D15", want: "101.15"},
		{name: "percent coupon greece", productID: 2, taxNumber: "GR123456789", coupon: "P6", want: "23.31"},
		{name: "fixed coupon france", productID: 2, taxNumber: "FRAB123456789", coupon: "F10", want: "12.00"},
		{name: "fixed coupon equals price", productID: 3, taxNumber: "IT12345678900", coupon: "F10", want: "0.00"},
		{name: "fixed coupon exceeds price is floored before tax", productID: 4, taxNumber: "XX000", coupon: "F10", want: "0.00"},
		{name: "full percent discount", productID: 1, taxNumber: "DE123456789", coupon: "P100", want: "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calc := newCalculator(newFakeCatalog())
			got, err := calc.Calculate(context.Background(), tc.productID, tc.taxNumber, tc.coupon)
			require.NoError(t, err)
			require.Truef(t, got.Equal(dec(tc.want)), "expected %s, got %s", tc.want, got)
			require.False(t, got.IsNegative())
		})
	}
}

func TestCalculateFormulaProperties(t *testing.T) {
	f := newFakeCatalog()
	calc := newCalculator(f)
	ctx := context.Background()
	one := decimal.NewFromInt(1)

	for id, product := range f.products {
		for country, tax := range f.taxes {
			taxNumber := country + "123456789"
			factor := one.Add(tax.Rate.Div(decimal.NewFromInt(100)))

			got, err := calc.Calculate(ctx, id, taxNumber, "")
			require.NoError(t, err)
			require.True(t, got.Equal(product.Price.Mul(factor).Round(2)))

			for code, coupon := range f.coupons {
				discounted := product.Price.Sub(coupon.Value)
				if coupon.Type == catalog.CouponPercent {
					discounted = product.Price.Mul(one.Sub(coupon.Value.Div(decimal.NewFromInt(100))))
				}
				want := decimal.Max(decimal.Zero, discounted).Mul(factor).Round(2)

				got, err := calc.Calculate(ctx, id, taxNumber, code)
				require.NoError(t, err)
				require.Truef(t, got.Equal(want), "product %d coupon %s country %s: expected %s got %s", id, code, country, want, got)
			}
		}
	}
}

func TestCalculateProductNotFound(t *testing.T) {
	f := newFakeCatalog()
	_, err := newCalculator(f).Calculate(context.Background(), 999, "DE123456789", "D15")
	require.ErrorIs(t, err, pricing.ErrProductNotFound)
	require.Zero(t, f.couponCalls)
	require.Zero(t, f.taxCalls)
}

func TestCalculateInvalidCoupon(t *testing.T) {
	f := newFakeCatalog()
	_, err := newCalculator(f).Calculate(context.Background(), 1, "DE123456789", "UNKNOWN")
	require.ErrorIs(t, err, pricing.ErrInvalidCoupon)
	require.Zero(t, f.taxCalls)
}

func TestCalculateTaxRateNotConfigured(t *testing.T) {
	f := newFakeCatalog()
	_, err := newCalculator(f).Calculate(context.Background(), 1, "US123456789", "")
	require.ErrorIs(t, err, pricing.ErrTaxRateNotConfigured)
	require.Equal(t, []string{"US"}, f.taxLookups)
}

func TestCalculateSkipsCouponLookupWhenEmpty(t *testing.T) {
	f := newFakeCatalog()
	_, err := newCalculator(f).Calculate(context.Background(), 1, "DE123456789", "")
	require.NoError(t, err)
	require.Zero(t, f.couponCalls)
	require.Equal(t, []string{"DE"}, f.taxLookups)
}

func TestCalculateWrapsStoreFailures(t *testing.T) {
	f := newFakeCatalog()
	f.err = errors.New("connection reset")
	_, err := newCalculator(f).Calculate(context.Background(), 1, "DE123456789", "")
	require.Error(t, err)
	require.NotErrorIs(t, err, pricing.ErrProductNotFound)
	require.Contains(t, err.Error(), "connection reset")
}

func TestCalculateRejectsCouponWithUnknownType(t *testing.T) {
	f := newFakeCatalog()
	f.coupons["ODD"] = catalog.Coupon{Code: "ODD", Type: "bogo", Value: dec("50")}
	_, err := newCalculator(f).Calculate(context.Background(), 1, "DE123456789", "ODD")
	require.ErrorIs(t, err, voucher.ErrUnknownCouponType)
	require.NotErrorIs(t, err, pricing.ErrInvalidCoupon)
	require.Empty(t, f.taxLookups, "tax is not looked up after a bad coupon")
}

func TestCalculateNotConfigured(t *testing.T) {
	var calc *pricing.Calculator
	_, err := calc.Calculate(context.Background(), 1, "DE123456789", "")
	require.Error(t, err)
}

// Fixed-point rounding diverges from float64 on half-way values that binary
// floating point cannot represent: 1.005 rounds up here but down as a float.
func TestCalculateRoundsHalfUpInFixedPoint(t *testing.T) {
	got, err := newCalculator(newFakeCatalog()).Calculate(context.Background(), 5, "ZZ123", "")
	require.NoError(t, err)
	require.True(t, got.Equal(dec("1.01")), "decimal result %s", got)

	price := 1.005
	asFloat := math.Round(price*100) / 100
	require.Equal(t, 1.0, asFloat)
}
