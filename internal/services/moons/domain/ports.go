package domain

import (
	"context"
	"time"

	"moonmining/internal/core/extraction"
	"moonmining/internal/core/valuation"
)

// ResolverPort associates refineries with moons
type ResolverPort interface {
	// EnsureRefinery records a refinery for an owner; existing rows keep their moon
	EnsureRefinery(ctx context.Context, ownerID, refineryID int64) error
	// MoonForRefinery returns the moon of a refinery; ok is false while unknown
	MoonForRefinery(ctx context.Context, refineryID int64) (moonID int64, ok bool, err error)
	// AssignMoon back-fills the moon of a refinery; a moon already set is kept and assigned is false
	AssignMoon(ctx context.Context, refineryID, moonID int64) (assigned bool, err error)
}

// ProductsPort maintains moon compositions
type ProductsPort interface {
	// UpdateProductsFromExtraction replaces the moon's products with the extraction's ore shares and
	// recomputes value and rarity. updated is false when the extraction carries no ore volume
	UpdateProductsFromExtraction(ctx context.Context, moonID int64, x extraction.CalculatedExtraction) (updated bool, err error)
	// Moon loads a moon with its products
	Moon(ctx context.Context, moonID int64) (Moon, bool, error)
}

// StorageRepo is the persistence the service needs
type StorageRepo interface {
	UpsertRefinery(ctx context.Context, ownerID, refineryID int64) error
	Refinery(ctx context.Context, refineryID int64) (Refinery, bool, error)
	SetRefineryMoonIfUnset(ctx context.Context, refineryID, moonID int64) (bool, error)

	EnsureMoon(ctx context.Context, moonID int64) error
	ReplaceProducts(ctx context.Context, moonID int64, products []valuation.MoonProduct, at time.Time) error
	SetValuation(ctx context.Context, moonID int64, value *float64, rarity valuation.RarityClass) error
	Moon(ctx context.Context, moonID int64) (Moon, bool, error)
}
