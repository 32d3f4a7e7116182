// Package service provides the moons service implementation
package service

import (
	"context"
	"time"

	"moonmining/internal/core/extraction"
	"moonmining/internal/core/valuation"
	"moonmining/internal/modkit/repokit"
	perr "moonmining/internal/platform/errors"
	"moonmining/internal/platform/logger"
	dom "moonmining/internal/services/moons/domain"
)

// Config for the moons service
type Config struct {
	// VolumePerMonth is the ore volume a moon yields in a month of mining, in m3
	VolumePerMonth float64
}

// Service implements domain.ResolverPort and domain.ProductsPort
type Service struct {
	DB        repokit.TxRunner
	Binder    repokit.Binder[dom.StorageRepo]
	Catalogue valuation.Catalogue
	Cfg       Config

	Now func() time.Time
}

// New constructs the moons service
func New(db repokit.TxRunner, binder repokit.Binder[dom.StorageRepo], cat valuation.Catalogue, cfg Config) *Service {
	if db == nil {
		panic("moons.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("moons.Service requires a non nil Repo binder")
	}
	if cat == nil {
		panic("moons.Service requires a non nil Catalogue")
	}
	if cfg.VolumePerMonth <= 0 {
		cfg.VolumePerMonth = valuation.VolumePerMonth
	}
	return &Service{DB: db, Binder: binder, Catalogue: cat, Cfg: cfg, Now: time.Now}
}

// EnsureRefinery implements domain.ResolverPort
func (s *Service) EnsureRefinery(ctx context.Context, ownerID, refineryID int64) error {
	if ownerID <= 0 || refineryID <= 0 {
		return perr.InvalidArgf("owner %d and refinery %d must be positive", ownerID, refineryID)
	}
	return s.Binder.Bind(s.DB).UpsertRefinery(ctx, ownerID, refineryID)
}

// MoonForRefinery implements domain.ResolverPort
func (s *Service) MoonForRefinery(ctx context.Context, refineryID int64) (int64, bool, error) {
	ref, ok, err := s.Binder.Bind(s.DB).Refinery(ctx, refineryID)
	if err != nil || !ok || ref.MoonID == nil {
		return 0, false, err
	}
	return *ref.MoonID, true, nil
}

// AssignMoon implements domain.ResolverPort
func (s *Service) AssignMoon(ctx context.Context, refineryID, moonID int64) (bool, error) {
	if moonID <= 0 {
		return false, perr.InvalidArgf("moon id must be positive, got %d", moonID)
	}
	var assigned bool
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		if err := repo.EnsureMoon(ctx, moonID); err != nil {
			return err
		}
		var err error
		assigned, err = repo.SetRefineryMoonIfUnset(ctx, refineryID, moonID)
		return err
	})
	if err != nil {
		return false, err
	}
	if assigned {
		logger.C(ctx).Info().Int64("refinery_id", refineryID).Int64("moon_id", moonID).Msg("moons: refinery moon back-filled")
	}
	return assigned, nil
}

// UpdateProductsFromExtraction implements domain.ProductsPort
func (s *Service) UpdateProductsFromExtraction(ctx context.Context, moonID int64, x extraction.CalculatedExtraction) (bool, error) {
	products := valuation.MoonProductsFrom(x)
	if len(products) == 0 {
		return false, nil
	}
	value, err := valuation.CalcMoonValue(ctx, products, s.Catalogue, s.Cfg.VolumePerMonth)
	if err != nil {
		return false, err
	}
	rarity, err := valuation.CalcMoonRarityClass(ctx, products, s.Catalogue)
	if err != nil {
		return false, err
	}

	err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		if err := repo.EnsureMoon(ctx, moonID); err != nil {
			return err
		}
		if err := repo.ReplaceProducts(ctx, moonID, products, s.Now()); err != nil {
			return err
		}
		return repo.SetValuation(ctx, moonID, value, rarity)
	})
	if err != nil {
		return false, err
	}

	ev := logger.C(ctx).Debug().Int64("moon_id", moonID).Int("products", len(products)).Int("rarity", int(rarity))
	if value != nil {
		ev = ev.Float64("value", *value)
	}
	ev.Msg("moons: products updated from extraction")
	return true, nil
}

// Moon implements domain.ProductsPort
func (s *Service) Moon(ctx context.Context, moonID int64) (dom.Moon, bool, error) {
	return s.Binder.Bind(s.DB).Moon(ctx, moonID)
}
