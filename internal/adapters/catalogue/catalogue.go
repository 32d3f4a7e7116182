// Package catalogue serves ore metadata and prices to the valuation code.
// PG reads the ore_types and ore_prices tables; Cached puts redis in front of any catalogue
package catalogue

import (
	"context"
	_ "embed"

	"moonmining/internal/core/valuation"
	"moonmining/internal/modkit/repokit"
	perr "moonmining/internal/platform/errors"
	"moonmining/internal/platform/store"
)

//go:embed schema.sql
var schema string

// Migrate creates the catalogue tables when missing
func Migrate(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, schema)
	return perr.FromPostgres(err, "catalogue migrate")
}

// PG is the postgres backed catalogue
type PG struct{ q repokit.Queryer }

// NewPG binds a catalogue to q
func NewPG(q repokit.Queryer) *PG { return &PG{q: repokit.RequireQueryer(q)} }

var _ valuation.Catalogue = (*PG)(nil)

func scanOreType(r store.Row) (valuation.OreType, error) {
	var (
		o       valuation.OreType
		quality string
	)
	if err := r.Scan(&o.ID, &o.Name, &o.GroupID, &o.UnitVolume, &quality); err != nil {
		return o, err
	}
	o.Quality = valuation.ParseQualityCode(quality)
	return o, nil
}

// OreType implements valuation.Catalogue
func (p *PG) OreType(ctx context.Context, id int64) (valuation.OreType, bool, error) {
	o, ok, err := store.Optional(ctx, p.q, scanOreType,
		`SELECT id, name, group_id, volume, quality FROM ore_types WHERE id = $1`, id)
	return o, ok, perr.FromPostgresf(err, "ore type %d", id)
}

// Price implements valuation.Catalogue; a NULL price is reported as missing
func (p *PG) Price(ctx context.Context, id int64) (float64, bool, error) {
	price, ok, err := store.Optional(ctx, p.q, func(r store.Row) (*float64, error) {
		var v *float64
		err := r.Scan(&v)
		return v, err
	}, `SELECT price FROM ore_prices WHERE ore_type_id = $1`, id)
	if err != nil {
		return 0, false, perr.FromPostgresf(err, "price of ore type %d", id)
	}
	if !ok || price == nil {
		return 0, false, nil
	}
	return *price, true, nil
}

// PutOreType inserts or replaces one ore type
func (p *PG) PutOreType(ctx context.Context, o valuation.OreType) error {
	_, err := p.q.Exec(ctx, `
		INSERT INTO ore_types (id, name, group_id, volume, quality)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, group_id = EXCLUDED.group_id,
			volume = EXCLUDED.volume, quality = EXCLUDED.quality`,
		o.ID, o.Name, o.GroupID, o.UnitVolume, o.Quality.Code())
	return perr.FromPostgresf(err, "put ore type %d", o.ID)
}

// PutPrice stores the current price of an ore type; nil clears it
func (p *PG) PutPrice(ctx context.Context, oreTypeID int64, price *float64) error {
	_, err := p.q.Exec(ctx, `
		INSERT INTO ore_prices (ore_type_id, price, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (ore_type_id) DO UPDATE SET price = EXCLUDED.price, updated_at = now()`,
		oreTypeID, price)
	return perr.FromPostgresf(err, "put price of ore type %d", oreTypeID)
}
