// Package repo provides the extractions repository implementation
package repo

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"moonmining/internal/core/extraction"
	"moonmining/internal/modkit/repokit"
	perr "moonmining/internal/platform/errors"
	"moonmining/internal/platform/store"
	"moonmining/internal/services/extractions/domain"
)

//go:embed schema.sql
var schema string

// Migrate creates the extractions tables when missing
func Migrate(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, schema)
	return perr.FromPostgres(err, "extractions migrate")
}

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[domain.StorageRepo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) domain.StorageRepo { return &pg{q: q} }

const selectRecord = `
	SELECT id, refinery_id, status, started_at, started_at_inferred, chunk_arrival_at,
		auto_fracture_at, canceled_at, fractured_at, started_by, canceled_by, fractured_by,
		value, is_jackpot
	FROM extractions `

func scanRecord(row store.Row) (domain.Record, error) {
	var (
		r      domain.Record
		status string
	)
	err := row.Scan(&r.ID, &r.RefineryID, &status, &r.StartedAt, &r.StartedAtInferred, &r.ChunkArrivalAt,
		&r.AutoFractureAt, &r.CanceledAt, &r.FracturedAt, &r.StartedBy, &r.CanceledBy, &r.FracturedBy,
		&r.Value, &r.IsJackpot)
	r.Status = extraction.ParseStatusCode(status)
	return r, err
}

// one loads a single record and its products
func (p *pg) one(ctx context.Context, what string, where string, args ...any) (domain.Record, bool, error) {
	r, ok, err := store.Optional(ctx, p.q, scanRecord, selectRecord+where, args...)
	if err != nil || !ok {
		return r, ok, perr.FromPostgres(err, what)
	}
	r.Products, err = p.products(ctx, r.ID)
	if err != nil {
		return r, false, err
	}
	return r, true, nil
}

func (p *pg) products(ctx context.Context, id int64) ([]extraction.Product, error) {
	out, err := store.Many(ctx, p.q, func(row store.Row) (extraction.Product, error) {
		var x extraction.Product
		err := row.Scan(&x.OreTypeID, &x.Volume)
		return x, err
	}, `SELECT ore_type_id, volume FROM extraction_products WHERE extraction_id = $1 ORDER BY ore_type_id`, id)
	return out, perr.FromPostgresf(err, "load products of extraction %d", id)
}

// FindByStartedAt locks and returns the record with the natural key
func (p *pg) FindByStartedAt(ctx context.Context, refineryID int64, startedAt time.Time) (domain.Record, bool, error) {
	return p.one(ctx, "find extraction by start",
		`WHERE refinery_id = $1 AND started_at = $2 FOR UPDATE`, refineryID, startedAt.UTC())
}

// FindByChunkArrival locks and returns the newest record with the chunk arrival time
func (p *pg) FindByChunkArrival(ctx context.Context, refineryID int64, chunkArrivalAt time.Time) (domain.Record, bool, error) {
	return p.one(ctx, "find extraction by chunk arrival",
		`WHERE refinery_id = $1 AND chunk_arrival_at = $2 ORDER BY started_at DESC LIMIT 1 FOR UPDATE`,
		refineryID, chunkArrivalAt.UTC())
}

// FindLatestOpen implements domain.StorageRepo
func (p *pg) FindLatestOpen(ctx context.Context, refineryID int64) (domain.Record, bool, error) {
	return p.one(ctx, "find open extraction",
		`WHERE refinery_id = $1 AND status IN ('ST', 'RD') AND canceled_at IS NULL AND fractured_at IS NULL
		ORDER BY chunk_arrival_at DESC LIMIT 1 FOR UPDATE`, refineryID)
}

// Get implements domain.StorageRepo
func (p *pg) Get(ctx context.Context, id int64) (domain.Record, bool, error) {
	return p.one(ctx, "get extraction", `WHERE id = $1`, id)
}

// Insert implements domain.StorageRepo; products are written separately
func (p *pg) Insert(ctx context.Context, r domain.Record) (int64, error) {
	id, err := store.Scalar[int64](ctx, p.q, `
		INSERT INTO extractions
			(refinery_id, status, started_at, started_at_inferred, chunk_arrival_at,
			auto_fracture_at, canceled_at, fractured_at, started_by, canceled_by, fractured_by,
			value, is_jackpot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		r.RefineryID, r.Status.Code(), r.StartedAt.UTC(), r.StartedAtInferred, r.ChunkArrivalAt.UTC(),
		utc(r.AutoFractureAt), utc(r.CanceledAt), utc(r.FracturedAt), r.StartedBy, r.CanceledBy, r.FracturedBy,
		r.Value, r.IsJackpot)
	if err != nil {
		return 0, perr.FromPostgresf(err, "insert extraction for refinery %d", r.RefineryID)
	}
	return id, nil
}

// Update implements domain.StorageRepo; products and valuation are written separately
func (p *pg) Update(ctx context.Context, r domain.Record) error {
	err := store.ExecOne(ctx, p.q, `
		UPDATE extractions SET
			status = $2, started_at = $3, started_at_inferred = $4, chunk_arrival_at = $5,
			auto_fracture_at = $6, canceled_at = $7, fractured_at = $8,
			started_by = $9, canceled_by = $10, fractured_by = $11, updated_at = now()
		WHERE id = $1`,
		r.ID, r.Status.Code(), r.StartedAt.UTC(), r.StartedAtInferred, r.ChunkArrivalAt.UTC(),
		utc(r.AutoFractureAt), utc(r.CanceledAt), utc(r.FracturedAt), r.StartedBy, r.CanceledBy, r.FracturedBy)
	if errors.Is(err, perr.ErrNotFound) {
		return perr.NotFoundf("extraction %d not found", r.ID)
	}
	return perr.FromPostgresf(err, "update extraction %d", r.ID)
}

// ReplaceProducts implements domain.StorageRepo
func (p *pg) ReplaceProducts(ctx context.Context, id int64, products []extraction.Product) error {
	if _, err := p.q.Exec(ctx, `DELETE FROM extraction_products WHERE extraction_id = $1`, id); err != nil {
		return perr.FromPostgresf(err, "clear products of extraction %d", id)
	}
	if len(products) == 0 {
		return nil
	}
	ids := make([]int64, len(products))
	volumes := make([]float64, len(products))
	for i, x := range products {
		ids[i] = x.OreTypeID
		volumes[i] = x.Volume
	}
	_, err := p.q.Exec(ctx, `
		INSERT INTO extraction_products (extraction_id, ore_type_id, volume)
		SELECT $1, t.ore_type_id, t.volume FROM UNNEST($2::bigint[], $3::float8[]) AS t(ore_type_id, volume)`,
		id, ids, volumes)
	return perr.FromPostgresf(err, "insert products of extraction %d", id)
}

// SetValuation implements domain.StorageRepo
func (p *pg) SetValuation(ctx context.Context, id int64, value *float64, isJackpot *bool) error {
	_, err := p.q.Exec(ctx, `UPDATE extractions SET value = $2, is_jackpot = $3, updated_at = now() WHERE id = $1`,
		id, value, isJackpot)
	return perr.FromPostgresf(err, "value extraction %d", id)
}

// IDs implements domain.StorageRepo
func (p *pg) IDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	out, err := store.Many(ctx, p.q, func(row store.Row) (int64, error) {
		var id int64
		err := row.Scan(&id)
		return id, err
	}, `SELECT id FROM extractions WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
	return out, perr.FromPostgres(err, "page extraction ids")
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
