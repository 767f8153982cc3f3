package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	upsertProductSQL = `INSERT INTO product (id, name, price) VALUES ($1, $2, $3::numeric)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`
	upsertCouponSQL = `INSERT INTO coupon (code, type, value) VALUES ($1, $2, $3::numeric)
ON CONFLICT (code) DO UPDATE SET type = EXCLUDED.type, value = EXCLUDED.value`
	upsertTaxSQL = `INSERT INTO tax (country_code, rate) VALUES ($1, $2::numeric)
ON CONFLICT (country_code) DO UPDATE SET rate = EXCLUDED.rate`
	syncProductSeqSQL = `SELECT setval(pg_get_serial_sequence('product', 'id'), (SELECT COALESCE(MAX(id), 1) FROM product))`
)

// Seed upserts f so it can be rerun against a populated database.
func Seed(ctx context.Context, db Execer, f Fixtures) error {
	for _, p := range f.Products {
		if _, err := db.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price.StringFixed(2)); err != nil {
			return fmt.Errorf("seed product %d: %w", p.ID, err)
		}
	}
	if len(f.Products) > 0 {
		if _, err := db.Exec(ctx, syncProductSeqSQL); err != nil {
			return fmt.Errorf("sync product sequence: %w", err)
		}
	}
	for _, c := range f.Coupons {
		if _, err := db.Exec(ctx, upsertCouponSQL, c.Code, string(c.Type), c.Value.StringFixed(2)); err != nil {
			return fmt.Errorf("seed coupon %s: %w", c.Code, err)
		}
	}
	for _, t := range f.Taxes {
		if _, err := db.Exec(ctx, upsertTaxSQL, t.CountryCode, t.Rate.StringFixed(2)); err != nil {
			return fmt.Errorf("seed tax %s: %w", t.CountryCode, err)
		}
	}
	return nil
}
