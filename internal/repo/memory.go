package repo

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-checkout/internal/catalog"
)

// Memory is an in-process catalog used when no database is configured and
// in tests. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	products map[int64]catalog.Product
	coupons  map[string]catalog.Coupon
	taxes    map[string]catalog.Tax
}

// NewMemory returns an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		products: make(map[int64]catalog.Product),
		coupons:  make(map[string]catalog.Coupon),
		taxes:    make(map[string]catalog.Tax),
	}
}

// Fixtures is the demo catalog loaded by the seeder and the in-memory store.
type Fixtures struct {
	Products []catalog.Product
	Coupons  []catalog.Coupon
	Taxes    []catalog.Tax
}

// DefaultFixtures returns the demo catalog.
func DefaultFixtures() Fixtures {
	d := decimal.RequireFromString
	return Fixtures{
		Products: []catalog.Product{
			{ID: 1, Name: "Iphone", Price: d("100.00")},
			{ID: 2, Name: "Наушники", Price: d("20.00")},
			{ID: 3, Name: "Чехол", Price: d("10.00")},
		},
		Coupons: []catalog.Coupon{
			{Code: "D15", Type: catalog.CouponPercent, Value: d("15")},
			{Code: "P6", Type: catalog.CouponPercent, Value: d("6")},
			{Code: "F10", Type: catalog.CouponFixed, Value: d("10")},
		},
		Taxes: []catalog.Tax{
			{CountryCode: "DE", Rate: d("19")},
			{CountryCode: "IT", Rate: d("22")},
			{CountryCode: "FR", Rate: d("20")},
			{CountryCode: "GR", Rate: d("24")},
		},
	}
}

// NewMemoryWithFixtures returns an in-memory catalog preloaded with f.
func NewMemoryWithFixtures(f Fixtures) *Memory {
	m := NewMemory()
	for _, p := range f.Products {
		m.PutProduct(p)
	}
	for _, c := range f.Coupons {
		m.PutCoupon(c)
	}
	for _, t := range f.Taxes {
		m.PutTax(t)
	}
	return m
}

// PutProduct inserts or replaces a product.
func (m *Memory) PutProduct(p catalog.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// PutCoupon inserts or replaces a coupon.
func (m *Memory) PutCoupon(c catalog.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[c.Code] = c
}

// PutTax inserts or replaces a tax rate.
func (m *Memory) PutTax(t catalog.Tax) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taxes[t.CountryCode] = t
}

// FindByID implements catalog.ProductFinder.
func (m *Memory) FindByID(ctx context.Context, id int64) (catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Product{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

// FindByCode implements catalog.CouponFinder.
func (m *Memory) FindByCode(ctx context.Context, code string) (catalog.Coupon, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Coupon{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.coupons[code]
	if !ok {
		return catalog.Coupon{}, catalog.ErrNotFound
	}
	return c, nil
}

// FindByCountryCode implements catalog.TaxFinder.
func (m *Memory) FindByCountryCode(ctx context.Context, countryCode string) (catalog.Tax, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Tax{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.taxes[countryCode]
	if !ok {
		return catalog.Tax{}, catalog.ErrNotFound
	}
	return t, nil
}
