// Package domain defines the types and ports of the extractions service
package domain

import (
	"time"

	"moonmining/internal/core/extraction"
)

// Record is a persisted extraction
type Record struct {
	ID         int64
	RefineryID int64
	Status     extraction.Status

	// StartedAt is part of the natural key (refinery_id, started_at).
	// Extractions first seen without their Started event store the chunk arrival here with StartedAtInferred set
	StartedAt         time.Time
	StartedAtInferred bool
	ChunkArrivalAt    time.Time
	AutoFractureAt    *time.Time
	CanceledAt        *time.Time
	FracturedAt       *time.Time

	StartedBy   *int64
	CanceledBy  *int64
	FracturedBy *int64

	Value     *float64
	IsJackpot *bool

	// Products sorted by ore type id
	Products []extraction.Product
}

// Outcome reports what persisting one calculated extraction did
type Outcome struct {
	Extraction extraction.CalculatedExtraction
	Record     Record
	Created    bool
	// Changed is false when the stored row already matched
	Changed bool
}

// RefinerySummary counts what processing one refinery's events did
type RefinerySummary struct {
	RefineryID int64
	Events     int
	Ignored    int
	Duplicates int
	Malformed  int
	Created    int
	Updated    int
	Unchanged  int
	// Degraded counts extractions seen without their Started event; they rely on the moon back-fill
	Degraded int
	// MoonBackfilled is set when the refinery's moon was assigned from an event
	MoonBackfilled bool
	// MoonUnresolved is set when the refinery has no moon and no event named one
	MoonUnresolved bool
}

// OwnerSummary aggregates the refineries of one owner
type OwnerSummary struct {
	OwnerID    int64
	RunID      string
	Refineries []RefinerySummary
	// Failed lists refineries whose processing returned an error
	Failed map[int64]error
}

// Totals sums the refinery counters
func (s OwnerSummary) Totals() RefinerySummary {
	var t RefinerySummary
	for _, r := range s.Refineries {
		t.Events += r.Events
		t.Ignored += r.Ignored
		t.Duplicates += r.Duplicates
		t.Malformed += r.Malformed
		t.Created += r.Created
		t.Updated += r.Updated
		t.Unchanged += r.Unchanged
		t.Degraded += r.Degraded
	}
	return t
}
