package domain

import (
	"context"
	"time"

	"moonmining/internal/adapters/esi/notification"
	"moonmining/internal/core/extraction"
)

// ProcessorPort turns one refinery's events into persisted extractions
type ProcessorPort interface {
	// ProcessEventsForRefinery sequences events and upserts every resulting extraction
	ProcessEventsForRefinery(ctx context.Context, refineryID int64, events []extraction.Event) ([]Outcome, error)
	// Upsert persists one calculated extraction, merging into a matching record when there is one
	Upsert(ctx context.Context, x extraction.CalculatedExtraction) (Record, bool, error)
	// RecomputeValue refreshes value and jackpot of one stored extraction from current prices
	RecomputeValue(ctx context.Context, extractionID int64) error
}

// RunnerPort drives whole owners
type RunnerPort interface {
	// ProcessOwner runs the serial chain for one owner: refineries, notifications, sequencing, upserts
	ProcessOwner(ctx context.Context, ownerID int64) (OwnerSummary, error)
	// RunOwners processes owners in parallel, each owner serially
	RunOwners(ctx context.Context, ownerIDs []int64) ([]OwnerSummary, error)
	// RecomputeAll refreshes the valuation of every stored extraction and returns how many were visited
	RecomputeAll(ctx context.Context) (int, error)
}

// EventSource lists an owner's refineries and their parsed events
type EventSource interface {
	Refineries(ctx context.Context, ownerID int64) ([]int64, error)
	EventsForRefinery(ctx context.Context, ownerID, refineryID int64) ([]extraction.Event, []notification.Failure, error)
}

// MoonResolver associates refineries with moons
type MoonResolver interface {
	EnsureRefinery(ctx context.Context, ownerID, refineryID int64) error
	MoonForRefinery(ctx context.Context, refineryID int64) (int64, bool, error)
	AssignMoon(ctx context.Context, refineryID, moonID int64) (bool, error)
}

// MoonProducts updates a moon's composition from an extraction estimate
type MoonProducts interface {
	UpdateProductsFromExtraction(ctx context.Context, moonID int64, x extraction.CalculatedExtraction) (bool, error)
}

// StorageRepo is the persistence the service needs
type StorageRepo interface {
	FindByStartedAt(ctx context.Context, refineryID int64, startedAt time.Time) (Record, bool, error)
	FindByChunkArrival(ctx context.Context, refineryID int64, chunkArrivalAt time.Time) (Record, bool, error)
	// FindLatestOpen returns the newest started or ready record without cancel or fracture time
	FindLatestOpen(ctx context.Context, refineryID int64) (Record, bool, error)
	Get(ctx context.Context, id int64) (Record, bool, error)

	Insert(ctx context.Context, r Record) (int64, error)
	Update(ctx context.Context, r Record) error
	ReplaceProducts(ctx context.Context, id int64, products []extraction.Product) error
	SetValuation(ctx context.Context, id int64, value *float64, isJackpot *bool) error

	// IDs pages through extraction ids greater than afterID
	IDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

// PriceCache is implemented by catalogues that cache prices; RecomputeAll refreshes it first
type PriceCache interface {
	Refresh(ctx context.Context) error
}
