package extraction

import (
	"sort"
	"time"

	ptime "moonmining/internal/platform/time"
)

// Outcome is what applying one event did to the reducer state
type Outcome uint8

const (
	// OutcomeIgnored means the event did not fit any in-flight extraction
	OutcomeIgnored Outcome = iota
	// OutcomeCreated means a new extraction went in flight
	OutcomeCreated
	// OutcomeTransitioned means an in-flight extraction changed status and stays in flight
	OutcomeTransitioned
	// OutcomeFlushed means an extraction reached a terminal status and left the in-flight set
	OutcomeFlushed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeTransitioned:
		return "transitioned"
	case OutcomeFlushed:
		return "flushed"
	}
	return "ignored"
}

// Reasons an event is ignored
const (
	ReasonOtherRefinery    = "event belongs to another refinery"
	ReasonDuplicateStart   = "extraction with this ready time already tracked"
	ReasonAlreadyClosed    = "extraction with this ready time already terminal"
	ReasonNoStarted        = "no started extraction in flight"
	ReasonNoReady          = "no ready extraction in flight"
	ReasonAlreadyReady     = "finished while an extraction is already ready"
	ReasonUnsupportedEvent = "unsupported event kind"
)

// Step reports the effect of one Apply call
type Step struct {
	Event   Event
	Outcome Outcome
	// Extraction is a snapshot after the event; zero for ignored events
	Extraction CalculatedExtraction
	Reason     string
}

// Reducer folds one refinery's events, in timestamp order, into calculated extractions.
// In-flight extractions are keyed by their ready time so parallel extractions stay independent.
// A Reducer is not safe for concurrent use
type Reducer struct {
	refineryID int64
	inFlight   map[int64]*CalculatedExtraction // unix seconds of chunk arrival
	closed     map[int64]bool
	flushed    []CalculatedExtraction
}

// NewReducer returns an empty reducer for refineryID
func NewReducer(refineryID int64) *Reducer {
	return &Reducer{
		refineryID: refineryID,
		inFlight:   map[int64]*CalculatedExtraction{},
		closed:     map[int64]bool{},
	}
}

// Apply feeds the next event to the state machine
func (r *Reducer) Apply(ev Event) Step {
	if ev.RefineryID != r.refineryID {
		return ignored(ev, ReasonOtherRefinery)
	}
	ts := ev.Timestamp.UTC()

	switch p := ev.Payload.(type) {
	case Started:
		return r.start(ev, ts, p)

	case Cancelled:
		x := r.oldest(StatusStarted)
		if x == nil {
			return ignored(ev, ReasonNoStarted)
		}
		x.Status = StatusCanceled
		x.CanceledAt = &ts
		x.CanceledBy = cloneID(p.CancelledBy)
		return r.flush(ev, x)

	case Finished:
		x := r.forFinished(ts, p)
		if x == nil {
			if r.oldest(StatusReady) != nil {
				return ignored(ev, ReasonAlreadyReady)
			}
			return r.startDegraded(ev, ts, p)
		}
		x.Status = StatusReady
		x.AutoFractureAt = ptime.Ptr(p.AutoFractureTime.UTC())
		x.ReplaceProducts(p.Ores)
		return Step{Event: ev, Outcome: OutcomeTransitioned, Extraction: x.Clone()}

	case LaserFired:
		x := r.oldest(StatusReady)
		if x == nil {
			return ignored(ev, ReasonNoReady)
		}
		r.fracture(x, ts, cloneID(p.FiredBy), p.Ores)
		return r.flush(ev, x)

	case AutomaticFracture:
		x := r.oldest(StatusReady)
		if x == nil {
			return ignored(ev, ReasonNoReady)
		}
		r.fracture(x, ts, nil, p.Ores)
		return r.flush(ev, x)
	}
	return ignored(ev, ReasonUnsupportedEvent)
}

func (r *Reducer) start(ev Event, ts time.Time, p Started) Step {
	x := &CalculatedExtraction{
		RefineryID:     r.refineryID,
		Status:         StatusStarted,
		StartedAt:      &ts,
		AutoFractureAt: ptime.Ptr(p.AutoFractureTime.UTC()),
		StartedBy:      cloneID(p.StartedBy),
		MoonID:         ev.MoonID,
	}
	x.SetChunkArrivalAt(p.ReadyTime)
	key := x.ChunkArrivalAt.Unix()
	if r.closed[key] {
		return ignored(ev, ReasonAlreadyClosed)
	}
	if _, ok := r.inFlight[key]; ok {
		return ignored(ev, ReasonDuplicateStart)
	}
	x.ReplaceProducts(p.Ores)
	r.inFlight[key] = x
	return Step{Event: ev, Outcome: OutcomeCreated, Extraction: x.Clone()}
}

// startDegraded tracks an extraction whose Started event was never seen
func (r *Reducer) startDegraded(ev Event, ts time.Time, p Finished) Step {
	x := &CalculatedExtraction{
		RefineryID:        r.refineryID,
		Status:            StatusReady,
		AutoFractureAt:    ptime.Ptr(p.AutoFractureTime.UTC()),
		NeedsMoonBackfill: true,
		MoonID:            ev.MoonID,
	}
	x.SetChunkArrivalAt(ts)
	key := x.ChunkArrivalAt.Unix()
	if r.closed[key] {
		return ignored(ev, ReasonAlreadyClosed)
	}
	x.ReplaceProducts(p.Ores)
	r.inFlight[key] = x
	return Step{Event: ev, Outcome: OutcomeCreated, Extraction: x.Clone()}
}

func (r *Reducer) fracture(x *CalculatedExtraction, ts time.Time, by *int64, ores OreVolumes) {
	x.Status = StatusCompleted
	x.FracturedAt = &ts
	x.FracturedBy = by
	x.ReplaceProducts(ores)
}

// finishedTolerance is how far a Finished timestamp may be from the chunk arrival it belongs to
const finishedTolerance = time.Hour

// forFinished picks the started extraction a Finished event belongs to: the one sharing its auto
// fracture time, else the one whose chunk arrival is closest to ts within finishedTolerance,
// else the oldest started one
func (r *Reducer) forFinished(ts time.Time, p Finished) *CalculatedExtraction {
	auto := p.AutoFractureTime.UTC()
	var (
		same, near *CalculatedExtraction
		best       time.Duration
	)
	for _, x := range r.inFlight {
		if x.Status != StatusStarted {
			continue
		}
		if x.AutoFractureAt != nil && x.AutoFractureAt.Equal(auto) {
			if same == nil || x.ChunkArrivalAt.Before(same.ChunkArrivalAt) {
				same = x
			}
			continue
		}
		d := x.ChunkArrivalAt.Sub(ts).Abs()
		if d > finishedTolerance {
			continue
		}
		if near == nil || d < best || (d == best && x.ChunkArrivalAt.Before(near.ChunkArrivalAt)) {
			near, best = x, d
		}
	}
	switch {
	case same != nil:
		return same
	case near != nil:
		return near
	}
	return r.oldest(StatusStarted)
}

// oldest returns the in-flight extraction with the earliest ready time in status s
func (r *Reducer) oldest(s Status) *CalculatedExtraction {
	var best *CalculatedExtraction
	for _, x := range r.inFlight {
		if x.Status != s {
			continue
		}
		if best == nil || x.ChunkArrivalAt.Before(best.ChunkArrivalAt) {
			best = x
		}
	}
	return best
}

func (r *Reducer) flush(ev Event, x *CalculatedExtraction) Step {
	key := x.ChunkArrivalAt.Unix()
	delete(r.inFlight, key)
	r.closed[key] = true
	snap := x.Clone()
	r.flushed = append(r.flushed, snap)
	return Step{Event: ev, Outcome: OutcomeFlushed, Extraction: snap.Clone()}
}

// Flushed returns terminal extractions in the order they were flushed
func (r *Reducer) Flushed() []CalculatedExtraction {
	out := make([]CalculatedExtraction, len(r.flushed))
	for i, x := range r.flushed {
		out[i] = x.Clone()
	}
	return out
}

// InFlight is the number of unresolved extractions
func (r *Reducer) InFlight() int { return len(r.inFlight) }

// Drain returns the unresolved extractions ordered by chunk arrival and empties the in-flight set.
// They keep their current status; an unresolved extraction is expected, not an error
func (r *Reducer) Drain() []CalculatedExtraction {
	out := make([]CalculatedExtraction, 0, len(r.inFlight))
	for _, x := range r.inFlight {
		out = append(out, x.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkArrivalAt.Before(out[j].ChunkArrivalAt) })
	r.inFlight = map[int64]*CalculatedExtraction{}
	return out
}

func ignored(ev Event, reason string) Step {
	return Step{Event: ev, Outcome: OutcomeIgnored, Reason: reason}
}
