package extraction

import (
	"fmt"
	"time"

	ptime "moonmining/internal/platform/time"
)

// Status of an extraction
type Status uint8

const (
	StatusUndefined Status = iota
	StatusStarted
	StatusCanceled
	StatusReady
	StatusCompleted
)

// IsTerminal reports whether no further event may change the status
func (s Status) IsTerminal() bool { return s == StatusCanceled || s == StatusCompleted }

// IsActive reports whether the extraction is still running or waiting to be fractured
func (s Status) IsActive() bool { return s == StatusStarted || s == StatusReady }

// Code is the two letter code persisted in the store
func (s Status) Code() string {
	switch s {
	case StatusStarted:
		return "ST"
	case StatusCanceled:
		return "CN"
	case StatusReady:
		return "RD"
	case StatusCompleted:
		return "CP"
	}
	return "UN"
}

// ParseStatusCode is the inverse of Code; unknown codes map to StatusUndefined
func ParseStatusCode(code string) Status {
	switch code {
	case "ST":
		return StatusStarted
	case "CN":
		return StatusCanceled
	case "RD":
		return StatusReady
	case "CP":
		return StatusCompleted
	}
	return StatusUndefined
}

func (s Status) String() string {
	switch s {
	case StatusStarted:
		return "started"
	case StatusCanceled:
		return "canceled"
	case StatusReady:
		return "ready"
	case StatusCompleted:
		return "completed"
	}
	return "undefined"
}

// Product is one ore of an extraction with its raw volume
type Product struct {
	OreTypeID int64
	Volume    float64
}

// CalculatedExtraction is the state of one extraction accumulated from events, not yet persisted
type CalculatedExtraction struct {
	RefineryID int64
	Status     Status

	// ChunkArrivalAt is the ready time, always whole seconds
	ChunkArrivalAt time.Time
	// StartedAt is the timestamp of the Started event; nil when only a Finished event was seen
	StartedAt      *time.Time
	AutoFractureAt *time.Time
	CanceledAt     *time.Time
	FracturedAt    *time.Time

	StartedBy   *int64
	CanceledBy  *int64
	FracturedBy *int64

	// Products sorted by ore type id, unique by id
	Products []Product

	// NeedsMoonBackfill marks an extraction created without its Started event
	NeedsMoonBackfill bool
	// MoonID is the moon named by the event that created the extraction, zero if none
	MoonID int64
}

// SetChunkArrivalAt stores t rounded to whole seconds
func (x *CalculatedExtraction) SetChunkArrivalAt(t time.Time) {
	x.ChunkArrivalAt = ptime.RoundSeconds(t.UTC())
}

// TotalVolume is the sum of all product volumes, zero without products
func (x CalculatedExtraction) TotalVolume() float64 {
	var total float64
	for _, p := range x.Products {
		total += p.Volume
	}
	return total
}

// ReplaceProducts discards the current products and rebuilds them from ores
func (x *CalculatedExtraction) ReplaceProducts(ores OreVolumes) {
	ids := ores.IDs()
	x.Products = make([]Product, 0, len(ids))
	for _, id := range ids {
		x.Products = append(x.Products, Product{OreTypeID: id, Volume: ores[id]})
	}
}

// Ores returns the products as a map
func (x CalculatedExtraction) Ores() OreVolumes {
	out := make(OreVolumes, len(x.Products))
	for _, p := range x.Products {
		out[p.OreTypeID] = p.Volume
	}
	return out
}

// Clone returns a deep copy so snapshots handed to callers cannot alias reducer state
func (x CalculatedExtraction) Clone() CalculatedExtraction {
	c := x
	c.StartedAt = cloneTime(x.StartedAt)
	c.AutoFractureAt = cloneTime(x.AutoFractureAt)
	c.CanceledAt = cloneTime(x.CanceledAt)
	c.FracturedAt = cloneTime(x.FracturedAt)
	c.StartedBy = cloneID(x.StartedBy)
	c.CanceledBy = cloneID(x.CanceledBy)
	c.FracturedBy = cloneID(x.FracturedBy)
	if x.Products != nil {
		c.Products = append([]Product(nil), x.Products...)
	}
	return c
}

func (x CalculatedExtraction) String() string {
	return fmt.Sprintf("refinery %d extraction %s (%s)", x.RefineryID, x.ChunkArrivalAt.Format(time.RFC3339), x.Status)
}

// SameProducts reports whether a and b hold the same ores and volumes regardless of order
func SameProducts(a, b []Product) bool {
	if len(a) != len(b) {
		return false
	}
	m := make(map[int64]float64, len(a))
	for _, p := range a {
		m[p.OreTypeID] = p.Volume
	}
	for _, p := range b {
		v, ok := m[p.OreTypeID]
		if !ok || v != p.Volume {
			return false
		}
		delete(m, p.OreTypeID)
	}
	return len(m) == 0
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
