// Package service provides the extractions service: the upsert and merge layer
// and the per-owner processing chain built on top of it
package service

import (
	"context"
	"errors"
	"time"

	"moonmining/internal/core/extraction"
	"moonmining/internal/core/valuation"
	"moonmining/internal/modkit/repokit"
	perr "moonmining/internal/platform/errors"
	"moonmining/internal/platform/logger"
	dom "moonmining/internal/services/extractions/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("moonmining/extractions")

// Config controls concurrency and retry behavior
type Config struct {
	// Workers is the number of owners processed at once
	Workers int
	// UpsertRetries is how often a conflicting upsert is retried before giving up
	UpsertRetries int
	// RecomputeBatch is the page size of RecomputeAll
	RecomputeBatch int
}

// Service wires TxRunner + Binder into the domain operations
type Service struct {
	DB        repokit.TxRunner
	Binder    repokit.Binder[dom.StorageRepo]
	Catalogue valuation.Catalogue
	Cfg       Config

	// Source, Resolver and Products are optional collaborators; ProcessOwner needs Source
	Source   dom.EventSource
	Resolver dom.MoonResolver
	Products dom.MoonProducts
}

// New constructs the extractions service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[dom.StorageRepo],
	cat valuation.Catalogue,
	cfg Config,
) *Service {
	if db == nil {
		panic("extractions.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("extractions.Service requires a non nil Repo binder")
	}
	if cat == nil {
		panic("extractions.Service requires a non nil Catalogue")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.UpsertRetries < 0 {
		cfg.UpsertRetries = 0
	}
	if cfg.RecomputeBatch <= 0 {
		cfg.RecomputeBatch = 500
	}
	return &Service{DB: db, Binder: binder, Catalogue: cat, Cfg: cfg}
}

// Upsert implements domain.ProcessorPort.
// A conflict with a concurrent writer is retried UpsertRetries times, then surfaces as a retryable Conflict
func (s *Service) Upsert(ctx context.Context, x extraction.CalculatedExtraction) (dom.Record, bool, error) {
	out, err := s.upsert(ctx, x)
	return out.Record, out.Created, err
}

func (s *Service) upsert(ctx context.Context, x extraction.CalculatedExtraction) (dom.Outcome, error) {
	ctx, span := tracer.Start(ctx, "extractions.Upsert", trace.WithAttributes(
		attribute.Int64("refinery_id", x.RefineryID),
		attribute.String("status", x.Status.String()),
	))
	defer span.End()

	var lastErr error
	for attempt := 0; attempt <= s.Cfg.UpsertRetries; attempt++ {
		out, err := s.upsertOnce(ctx, x)
		if err == nil {
			span.SetAttributes(
				attribute.Bool("created", out.Created),
				attribute.Bool("changed", out.Changed),
				attribute.Int64("extraction_id", out.Record.ID),
			)
			return out, nil
		}
		if !perr.IsConflict(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return dom.Outcome{Extraction: x}, err
		}
		lastErr = err
		logger.C(ctx).Debug().Err(err).Int("attempt", attempt+1).Str("extraction", x.String()).
			Msg("extractions: upsert conflict")
	}

	err := perr.Wrapf(lastErr, perr.ErrorCodeConflict, "upsert %s", x)
	span.RecordError(err)
	span.SetStatus(codes.Error, "conflict")
	return dom.Outcome{Extraction: x}, err
}

func (s *Service) upsertOnce(ctx context.Context, x extraction.CalculatedExtraction) (dom.Outcome, error) {
	out := dom.Outcome{Extraction: x}
	err := repokit.WithTxBound(ctx, s.DB, s.Binder, func(repo dom.StorageRepo) error {
		stored, found, err := match(ctx, repo, x)
		if err != nil {
			return err
		}

		if !found {
			rec := newRecord(x)
			if len(rec.Products) > 0 {
				if rec.Value, rec.IsJackpot, err = s.valuate(ctx, rec.Products); err != nil {
					return err
				}
			}
			if rec.ID, err = repo.Insert(ctx, rec); err != nil {
				return err
			}
			if len(rec.Products) > 0 {
				if err := repo.ReplaceProducts(ctx, rec.ID, rec.Products); err != nil {
					return err
				}
			}
			out.Record, out.Created, out.Changed = rec, true, true
			return nil
		}

		merged, productsChanged := merge(stored, x)
		if rowChanged(stored, merged) {
			if err := repo.Update(ctx, merged); err != nil {
				return err
			}
			out.Changed = true
		}
		if productsChanged {
			if err := repo.ReplaceProducts(ctx, merged.ID, merged.Products); err != nil {
				return err
			}
			out.Changed = true
		}
		if needsValuation(stored, merged, productsChanged) {
			value, jackpot, err := s.valuate(ctx, merged.Products)
			if err != nil {
				return err
			}
			if !sameFloat(value, stored.Value) || !sameBool(jackpot, stored.IsJackpot) {
				if err := repo.SetValuation(ctx, merged.ID, value, jackpot); err != nil {
					return err
				}
				out.Changed = true
			}
			merged.Value, merged.IsJackpot = value, jackpot
		}
		out.Record = merged
		return nil
	})
	return out, err
}

// match finds the stored record x belongs to: by start time, then by chunk arrival,
// then for extractions seen without their start, the newest open record of the refinery
func match(ctx context.Context, repo dom.StorageRepo, x extraction.CalculatedExtraction) (dom.Record, bool, error) {
	if x.StartedAt != nil {
		if r, ok, err := repo.FindByStartedAt(ctx, x.RefineryID, *x.StartedAt); err != nil || ok {
			return r, ok, err
		}
	}
	if r, ok, err := repo.FindByChunkArrival(ctx, x.RefineryID, x.ChunkArrivalAt); err != nil || ok {
		return r, ok, err
	}
	if x.StartedAt == nil {
		return repo.FindLatestOpen(ctx, x.RefineryID)
	}
	return dom.Record{}, false, nil
}

func (s *Service) valuate(ctx context.Context, products []extraction.Product) (*float64, *bool, error) {
	value, err := valuation.CalcValue(ctx, products, s.Catalogue)
	if err != nil {
		return nil, nil, err
	}
	jackpot, err := valuation.CalcIsJackpot(ctx, products, s.Catalogue)
	if err != nil {
		return nil, nil, err
	}
	return value, jackpot, nil
}

// RecomputeValue implements domain.ProcessorPort
func (s *Service) RecomputeValue(ctx context.Context, extractionID int64) error {
	return repokit.WithTxBound(ctx, s.DB, s.Binder, func(repo dom.StorageRepo) error {
		r, ok, err := repo.Get(ctx, extractionID)
		if err != nil {
			return err
		}
		if !ok {
			return perr.NotFoundf("extraction %d not found", extractionID)
		}
		value, jackpot, err := s.valuate(ctx, r.Products)
		if err != nil {
			return err
		}
		if sameFloat(value, r.Value) && sameBool(jackpot, r.IsJackpot) {
			return nil
		}
		return repo.SetValuation(ctx, r.ID, value, jackpot)
	})
}

// RecomputeAll implements domain.RunnerPort.
// A caching catalogue is refreshed first so current prices are used. Failures are logged and collected; the walk continues until every id was visited or ctx ends
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	l := logger.C(ctx)
	start := time.Now()

	if pc, ok := s.Catalogue.(dom.PriceCache); ok {
		if err := pc.Refresh(ctx); err != nil {
			return 0, perr.Wrap(err, perr.ErrorCodeUnavailable, "refresh price cache")
		}
	}

	var (
		after   int64
		visited int
		errs    []error
	)
	for {
		if err := ctx.Err(); err != nil {
			return visited, err
		}
		ids, err := s.Binder.Bind(s.DB).IDs(ctx, after, s.Cfg.RecomputeBatch)
		if err != nil {
			return visited, err
		}
		for _, id := range ids {
			if err := s.RecomputeValue(ctx, id); err != nil {
				l.Warn().Err(err).Int64("extraction_id", id).Msg("extractions: recompute failed")
				errs = append(errs, err)
			}
			visited++
		}
		if len(ids) < s.Cfg.RecomputeBatch {
			break
		}
		after = ids[len(ids)-1]
	}

	l.Info().Int("visited", visited).Int("failed", len(errs)).Dur("took", time.Since(start)).
		Msg("extractions: recompute done")
	return visited, errors.Join(errs...)
}
