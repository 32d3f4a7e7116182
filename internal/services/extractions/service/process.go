package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moonmining/internal/core/extraction"
	perr "moonmining/internal/platform/errors"
	"moonmining/internal/platform/logger"
	dom "moonmining/internal/services/extractions/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ProcessEventsForRefinery implements domain.ProcessorPort.
// Every extraction is attempted; failures are joined into the returned error next to the outcomes that succeeded
func (s *Service) ProcessEventsForRefinery(ctx context.Context, refineryID int64, events []extraction.Event) ([]dom.Outcome, error) {
	outcomes, _, err := s.processRefinery(ctx, refineryID, events)
	return outcomes, err
}

func (s *Service) processRefinery(
	ctx context.Context,
	refineryID int64,
	events []extraction.Event,
) ([]dom.Outcome, dom.RefinerySummary, error) {
	ctx, span := tracer.Start(ctx, "extractions.ProcessRefinery", trace.WithAttributes(
		attribute.Int64("refinery_id", refineryID),
		attribute.Int("events", len(events)),
	))
	defer span.End()

	l := logger.C(ctx).With().Int64("refinery_id", refineryID).Logger()
	sum := dom.RefinerySummary{RefineryID: refineryID, Events: len(events)}

	res := extraction.Sequence(refineryID, events)
	sum.Ignored = len(res.Ignored)
	sum.Duplicates = res.Duplicates
	for _, st := range res.Ignored {
		l.Debug().
			Str("kind", st.Event.Kind().String()).
			Time("timestamp", st.Event.Timestamp).
			Int64("notification_id", st.Event.NotificationID).
			Str("reason", st.Reason).
			Msg("extractions: event ignored")
	}

	for _, x := range res.Extractions {
		if x.NeedsMoonBackfill {
			sum.Degraded++
		}
	}
	s.syncMoon(ctx, l, res, &sum)

	outcomes := make([]dom.Outcome, 0, len(res.Extractions))
	var errs []error
	for _, x := range res.Extractions {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		o, err := s.upsert(ctx, x)
		if err != nil {
			l.Error().Err(err).Str("extraction", x.String()).Msg("extractions: upsert failed")
			errs = append(errs, err)
			continue
		}
		switch {
		case o.Created:
			sum.Created++
		case o.Changed:
			sum.Updated++
		default:
			sum.Unchanged++
		}
		outcomes = append(outcomes, o)
	}

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refinery failed")
	}
	span.SetAttributes(attribute.Int("created", sum.Created), attribute.Int("updated", sum.Updated))
	l.Info().
		Int("events", sum.Events).
		Int("ignored", sum.Ignored).
		Int("duplicates", sum.Duplicates).
		Int("degraded", sum.Degraded).
		Int("created", sum.Created).
		Int("updated", sum.Updated).
		Int("unchanged", sum.Unchanged).
		Msg("extractions: refinery processed")
	return outcomes, sum, err
}

// syncMoon back-fills the refinery's moon from the first event naming one and refreshes the moon's
// products from the latest composition estimate. Failures are logged; lifecycle tracking never depends on them
func (s *Service) syncMoon(ctx context.Context, l logger.Logger, res extraction.Result, sum *dom.RefinerySummary) {
	if s.Resolver == nil {
		return
	}
	moonID, ok, err := s.Resolver.MoonForRefinery(ctx, res.RefineryID)
	if err != nil {
		l.Warn().Err(err).Msg("extractions: moon lookup failed")
		return
	}
	if !ok && res.MoonID != 0 {
		assigned, err := s.Resolver.AssignMoon(ctx, res.RefineryID, res.MoonID)
		if err != nil {
			l.Warn().Err(err).Int64("moon_id", res.MoonID).Msg("extractions: moon back-fill failed")
			return
		}
		moonID, ok = res.MoonID, true
		sum.MoonBackfilled = assigned
		if assigned && sum.Degraded > 0 {
			l.Info().Int64("moon_id", moonID).Int("degraded", sum.Degraded).
				Msg("extractions: moon back-filled for extractions seen without their start")
		}
	}
	if !ok {
		sum.MoonUnresolved = true
		l.Warn().Err(perr.UnresolvedMoonf("refinery %d has no moon and no event names one", res.RefineryID)).
			Int("degraded", sum.Degraded).
			Msg("extractions: moon unresolved")
		return
	}

	est, has := res.LatestEstimate()
	if !has || s.Products == nil {
		return
	}
	if _, err := s.Products.UpdateProductsFromExtraction(ctx, moonID, est); err != nil {
		l.Warn().Err(err).Int64("moon_id", moonID).Msg("extractions: moon products update failed")
	}
}

// ProcessOwner implements domain.RunnerPort
func (s *Service) ProcessOwner(ctx context.Context, ownerID int64) (dom.OwnerSummary, error) {
	if s.Source == nil {
		return dom.OwnerSummary{}, perr.New(perr.ErrorCodeInvalidArgument, "extractions: no event source configured")
	}
	ctx = logger.WithOwner(ctx, ownerID)
	ctx, span := tracer.Start(ctx, "extractions.ProcessOwner", trace.WithAttributes(attribute.Int64("owner_id", ownerID)))
	defer span.End()

	l := logger.C(ctx)
	start := time.Now()
	sum := dom.OwnerSummary{OwnerID: ownerID, RunID: logger.RunID(ctx), Failed: map[int64]error{}}

	refineries, err := s.Source.Refineries(ctx, ownerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list refineries")
		return sum, err
	}

	for _, refineryID := range refineries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if s.Resolver != nil {
			if err := s.Resolver.EnsureRefinery(ctx, ownerID, refineryID); err != nil {
				l.Warn().Err(err).Int64("refinery_id", refineryID).Msg("extractions: refinery not recorded")
			}
		}
		events, failed, err := s.Source.EventsForRefinery(ctx, ownerID, refineryID)
		if err != nil {
			sum.Failed[refineryID] = err
			l.Error().Err(err).Int64("refinery_id", refineryID).Msg("extractions: events unavailable")
			continue
		}
		_, rs, err := s.processRefinery(ctx, refineryID, events)
		rs.Malformed = len(failed)
		rs.Events += len(failed)
		sum.Refineries = append(sum.Refineries, rs)
		if err != nil {
			sum.Failed[refineryID] = err
		}
	}

	t := sum.Totals()
	l.Info().
		Int("refineries", len(sum.Refineries)).
		Int("failed", len(sum.Failed)).
		Int("events", t.Events).
		Int("malformed", t.Malformed).
		Int("created", t.Created).
		Int("updated", t.Updated).
		Dur("took", time.Since(start)).
		Msg("extractions: owner processed")

	if len(sum.Failed) > 0 {
		err := ownerError(sum)
		span.RecordError(err)
		span.SetStatus(codes.Error, "refineries failed")
		return sum, err
	}
	return sum, nil
}

func ownerError(sum dom.OwnerSummary) error {
	errs := make([]error, 0, len(sum.Failed))
	for id, err := range sum.Failed {
		errs = append(errs, fmt.Errorf("refinery %d: %w", id, err))
	}
	return fmt.Errorf("owner %d: %w", sum.OwnerID, errors.Join(errs...))
}

// RunOwners implements domain.RunnerPort.
// Owners run concurrently up to Workers; one owner's failure does not stop the others.
// The run id on ctx is reused, or a new one is minted
func (s *Service) RunOwners(ctx context.Context, ownerIDs []int64) ([]dom.OwnerSummary, error) {
	if logger.RunID(ctx) == "" {
		ctx = logger.WithRun(ctx, uuid.NewString())
	}

	out := make([]dom.OwnerSummary, len(ownerIDs))
	errs := make([]error, len(ownerIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Cfg.Workers)
	for i, ownerID := range ownerIDs {
		g.Go(func() error {
			sum, err := s.ProcessOwner(gctx, ownerID)
			out[i], errs[i] = sum, err
			// cancellation is the only error that should stop the other owners
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, errors.Join(errs...)
}
