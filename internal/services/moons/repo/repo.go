// Package repo provides the moons repository implementation
package repo

import (
	"context"
	_ "embed"
	"time"

	"moonmining/internal/core/valuation"
	"moonmining/internal/modkit/repokit"
	perr "moonmining/internal/platform/errors"
	"moonmining/internal/platform/store"
	"moonmining/internal/services/moons/domain"
)

//go:embed schema.sql
var schema string

// Migrate creates the moons, moon_products and refineries tables when missing
func Migrate(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, schema)
	return perr.FromPostgres(err, "moons migrate")
}

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[domain.StorageRepo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) domain.StorageRepo { return &pg{q: q} }

func (r *pg) UpsertRefinery(ctx context.Context, ownerID, refineryID int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO refineries (id, owner_id) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET owner_id = EXCLUDED.owner_id`, refineryID, ownerID)
	return perr.FromPostgresf(err, "upsert refinery %d", refineryID)
}

func (r *pg) Refinery(ctx context.Context, refineryID int64) (domain.Refinery, bool, error) {
	ref, ok, err := store.Optional(ctx, r.q, func(row store.Row) (domain.Refinery, error) {
		var x domain.Refinery
		err := row.Scan(&x.ID, &x.OwnerID, &x.MoonID)
		return x, err
	}, `SELECT id, owner_id, moon_id FROM refineries WHERE id = $1`, refineryID)
	return ref, ok, perr.FromPostgresf(err, "load refinery %d", refineryID)
}

func (r *pg) SetRefineryMoonIfUnset(ctx context.Context, refineryID, moonID int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE refineries SET moon_id = $2 WHERE id = $1 AND moon_id IS NULL`, refineryID, moonID)
	if err != nil {
		return false, perr.FromPostgresf(err, "assign moon %d to refinery %d", moonID, refineryID)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pg) EnsureMoon(ctx context.Context, moonID int64) error {
	_, err := r.q.Exec(ctx, `INSERT INTO moons (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, moonID)
	return perr.FromPostgresf(err, "ensure moon %d", moonID)
}

func (r *pg) ReplaceProducts(ctx context.Context, moonID int64, products []valuation.MoonProduct, at time.Time) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM moon_products WHERE moon_id = $1`, moonID); err != nil {
		return perr.FromPostgresf(err, "clear products of moon %d", moonID)
	}
	ids := make([]int64, len(products))
	amounts := make([]float64, len(products))
	for i, p := range products {
		ids[i] = p.OreTypeID
		amounts[i] = p.Amount
	}
	if len(products) > 0 {
		_, err := r.q.Exec(ctx, `
			INSERT INTO moon_products (moon_id, ore_type_id, amount)
			SELECT $1, t.ore_type_id, t.amount FROM UNNEST($2::bigint[], $3::float8[]) AS t(ore_type_id, amount)`,
			moonID, ids, amounts)
		if err != nil {
			return perr.FromPostgresf(err, "insert products of moon %d", moonID)
		}
	}
	_, err := r.q.Exec(ctx, `UPDATE moons SET products_updated_at = $2 WHERE id = $1`, moonID, at.UTC())
	return perr.FromPostgresf(err, "stamp products of moon %d", moonID)
}

func (r *pg) SetValuation(ctx context.Context, moonID int64, value *float64, rarity valuation.RarityClass) error {
	_, err := r.q.Exec(ctx, `UPDATE moons SET value = $2, rarity_class = $3 WHERE id = $1`, moonID, value, int(rarity))
	return perr.FromPostgresf(err, "value moon %d", moonID)
}

func (r *pg) Moon(ctx context.Context, moonID int64) (domain.Moon, bool, error) {
	m, ok, err := store.Optional(ctx, r.q, func(row store.Row) (domain.Moon, error) {
		var (
			x      domain.Moon
			rarity int
		)
		err := row.Scan(&x.ID, &x.Value, &rarity, &x.ProductsUpdatedAt)
		x.Rarity = valuation.RarityClass(rarity)
		return x, err
	}, `SELECT id, value, rarity_class, products_updated_at FROM moons WHERE id = $1`, moonID)
	if err != nil || !ok {
		return m, ok, perr.FromPostgresf(err, "load moon %d", moonID)
	}

	m.Products, err = store.Many(ctx, r.q, func(row store.Row) (valuation.MoonProduct, error) {
		var p valuation.MoonProduct
		err := row.Scan(&p.OreTypeID, &p.Amount)
		return p, err
	}, `SELECT ore_type_id, amount FROM moon_products WHERE moon_id = $1 ORDER BY ore_type_id`, moonID)
	if err != nil {
		return m, false, perr.FromPostgresf(err, "load products of moon %d", moonID)
	}
	return m, true, nil
}
