package service

import (
	"time"

	"moonmining/internal/core/extraction"
	ptime "moonmining/internal/platform/time"
	dom "moonmining/internal/services/extractions/domain"
)

// rank orders statuses so a stored record never moves backwards
func rank(s extraction.Status) int {
	switch s {
	case extraction.StatusStarted:
		return 1
	case extraction.StatusReady:
		return 2
	case extraction.StatusCanceled, extraction.StatusCompleted:
		return 3
	}
	return 0
}

// newRecord builds the row for a calculated extraction that matched nothing stored
func newRecord(x extraction.CalculatedExtraction) dom.Record {
	c := x.Clone()
	r := dom.Record{
		RefineryID:     c.RefineryID,
		Status:         c.Status,
		ChunkArrivalAt: c.ChunkArrivalAt,
		AutoFractureAt: c.AutoFractureAt,
		CanceledAt:     c.CanceledAt,
		FracturedAt:    c.FracturedAt,
		StartedBy:      c.StartedBy,
		CanceledBy:     c.CanceledBy,
		FracturedBy:    c.FracturedBy,
		Products:       c.Products,
	}
	if c.StartedAt != nil {
		r.StartedAt = *c.StartedAt
	} else {
		r.StartedAt = c.ChunkArrivalAt
		r.StartedAtInferred = true
	}
	return r
}

// merge folds x into the stored record r.
// Known values are never cleared, a stored terminal status is kept and products are replaced
// only by a ready or later state, or when r has none yet
func merge(r dom.Record, x extraction.CalculatedExtraction) (out dom.Record, productsChanged bool) {
	c := x.Clone()
	out = r
	if r.Status.IsTerminal() && c.Status.IsTerminal() && c.Status != r.Status {
		return out, false
	}

	if !r.Status.IsTerminal() && rank(c.Status) >= rank(r.Status) {
		out.Status = c.Status
	}
	if c.StartedAt != nil {
		out.StartedAt = *c.StartedAt
		out.StartedAtInferred = false
		out.ChunkArrivalAt = c.ChunkArrivalAt
	}
	out.AutoFractureAt = pickTime(c.AutoFractureAt, r.AutoFractureAt)
	out.CanceledAt = pickTime(c.CanceledAt, r.CanceledAt)
	out.FracturedAt = pickTime(c.FracturedAt, r.FracturedAt)
	out.StartedBy = pickID(c.StartedBy, r.StartedBy)
	out.CanceledBy = pickID(c.CanceledBy, r.CanceledBy)
	out.FracturedBy = pickID(c.FracturedBy, r.FracturedBy)

	if len(c.Products) > 0 && (len(r.Products) == 0 || rank(c.Status) >= rank(extraction.StatusReady)) &&
		!extraction.SameProducts(c.Products, r.Products) {
		out.Products = c.Products
		productsChanged = true
	}
	return out, productsChanged
}

// rowChanged reports whether the extraction columns differ; products and valuation are compared elsewhere
func rowChanged(a, b dom.Record) bool {
	return a.Status != b.Status ||
		!a.StartedAt.Equal(b.StartedAt) ||
		a.StartedAtInferred != b.StartedAtInferred ||
		!a.ChunkArrivalAt.Equal(b.ChunkArrivalAt) ||
		!ptime.Equal(a.AutoFractureAt, b.AutoFractureAt) ||
		!ptime.Equal(a.CanceledAt, b.CanceledAt) ||
		!ptime.Equal(a.FracturedAt, b.FracturedAt) ||
		!sameID(a.StartedBy, b.StartedBy) ||
		!sameID(a.CanceledBy, b.CanceledBy) ||
		!sameID(a.FracturedBy, b.FracturedBy)
}

// needsValuation is true when products changed, the record just became ready or completed,
// or it has products but was never valued
func needsValuation(before, after dom.Record, productsChanged bool) bool {
	if productsChanged {
		return true
	}
	if before.Status != after.Status &&
		(after.Status == extraction.StatusReady || after.Status == extraction.StatusCompleted) {
		return true
	}
	return before.Value == nil && len(after.Products) > 0
}

func pickTime(x, fallback *time.Time) *time.Time {
	if x != nil {
		return x
	}
	return fallback
}

func pickID(x, fallback *int64) *int64 {
	if x != nil {
		return x
	}
	return fallback
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
