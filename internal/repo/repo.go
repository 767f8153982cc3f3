// Package repo implements the catalog finders on PostgreSQL and in memory.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-checkout/internal/catalog"
)

// Querier is the subset of pgxpool.Pool used by the repositories.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Numeric columns are selected as text so they land in decimal.Decimal
// without passing through float64.
const (
	productByIDSQL  = `SELECT id, name, price::text FROM product WHERE id = $1`
	couponByCodeSQL = `SELECT code, type, value::text FROM coupon WHERE code = $1`
	taxByCountrySQL = `SELECT country_code, rate::text FROM tax WHERE country_code = $1`
)

// ProductsRepo resolves products from the product table.
type ProductsRepo struct {
	Q Querier
}

// FindByID implements catalog.ProductFinder.
func (r ProductsRepo) FindByID(ctx context.Context, id int64) (catalog.Product, error) {
	var (
		p     catalog.Product
		price string
	)
	if err := r.Q.QueryRow(ctx, productByIDSQL, id).Scan(&p.ID, &p.Name, &price); err != nil {
		return catalog.Product{}, mapErr("product", err)
	}
	amount, err := parseNumeric("product.price", price)
	if err != nil {
		return catalog.Product{}, err
	}
	p.Price = amount
	return p, nil
}

// CouponsRepo resolves coupons from the coupon table.
type CouponsRepo struct {
	Q Querier
}

// FindByCode implements catalog.CouponFinder. Codes match exactly.
func (r CouponsRepo) FindByCode(ctx context.Context, code string) (catalog.Coupon, error) {
	var c catalog.Coupon
	var kind, value string
	if err := r.Q.QueryRow(ctx, couponByCodeSQL, code).Scan(&c.Code, &kind, &value); err != nil {
		return catalog.Coupon{}, mapErr("coupon", err)
	}
	t, err := catalog.ParseCouponType(kind)
	if err != nil {
		return catalog.Coupon{}, err
	}
	amount, err := parseNumeric("coupon.value", value)
	if err != nil {
		return catalog.Coupon{}, err
	}
	c.Type = t
	c.Value = amount
	return c, nil
}

// TaxesRepo resolves VAT rates from the tax table.
type TaxesRepo struct {
	Q Querier
}

// FindByCountryCode implements catalog.TaxFinder.
func (r TaxesRepo) FindByCountryCode(ctx context.Context, countryCode string) (catalog.Tax, error) {
	var t catalog.Tax
	var rate string
	if err := r.Q.QueryRow(ctx, taxByCountrySQL, countryCode).Scan(&t.CountryCode, &rate); err != nil {
		return catalog.Tax{}, mapErr("tax", err)
	}
	amount, err := parseNumeric("tax.rate", rate)
	if err != nil {
		return catalog.Tax{}, err
	}
	t.Rate = amount
	return t, nil
}

// Postgres bundles the three repositories over one querier.
type Postgres struct {
	ProductsRepo
	CouponsRepo
	TaxesRepo
}

// NewPostgres returns catalog finders backed by q.
func NewPostgres(q Querier) Postgres {
	return Postgres{
		ProductsRepo: ProductsRepo{Q: q},
		CouponsRepo:  CouponsRepo{Q: q},
		TaxesRepo:    TaxesRepo{Q: q},
	}
}

func mapErr(entity string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.ErrNotFound
	}
	return fmt.Errorf("query %s: %w", entity, err)
}

func parseNumeric(column, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s %q: %w", column, raw, err)
	}
	return d, nil
}
