package extraction

import (
	"sort"
	"time"
)

// Result is everything one refinery's event stream resolved to
type Result struct {
	RefineryID int64
	// Extractions holds flushed extractions first, in flush order, then the unresolved ones by chunk arrival
	Extractions []CalculatedExtraction
	// Estimates are the Started snapshots in event order; each carries the moon composition estimate
	Estimates []CalculatedExtraction
	// MoonID is the moon named by the first event that carried one, zero if none did
	MoonID int64
	// Ignored lists events that did not apply, for forensics
	Ignored []Step
	// Duplicates is the number of events dropped as repeated notifications
	Duplicates int
}

// Sequence sorts one refinery's events by timestamp (stable), drops repeated notifications and
// folds them through a fresh Reducer. Events for other refineries are skipped.
// Without a notification id, a repeat is the same kind at the same instant (and same ready time for starts)
func Sequence(refineryID int64, events []Event) Result {
	res := Result{RefineryID: refineryID}

	evs := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.RefineryID == refineryID && ev.Payload != nil {
			evs = append(evs, ev)
		}
	}
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Timestamp.Before(evs[j].Timestamp) })

	type fallbackKey struct {
		kind  Kind
		at    int64
		ready int64
	}
	seenIDs := map[int64]bool{}
	seenAt := map[fallbackKey]bool{}

	r := NewReducer(refineryID)
	for _, ev := range evs {
		if ev.NotificationID != 0 {
			if seenIDs[ev.NotificationID] {
				res.Duplicates++
				continue
			}
			seenIDs[ev.NotificationID] = true
		} else {
			k := fallbackKey{kind: ev.Kind(), at: ev.Timestamp.UnixNano()}
			if st, ok := ev.Payload.(Started); ok {
				k.ready = st.ReadyTime.Unix()
			}
			if seenAt[k] {
				res.Duplicates++
				continue
			}
			seenAt[k] = true
		}

		if res.MoonID == 0 && ev.MoonID != 0 {
			res.MoonID = ev.MoonID
		}

		step := r.Apply(ev)
		switch {
		case step.Outcome == OutcomeIgnored:
			res.Ignored = append(res.Ignored, step)
		case step.Outcome == OutcomeCreated && ev.Kind() == KindStarted:
			res.Estimates = append(res.Estimates, step.Extraction)
		}
	}

	res.Extractions = append(r.Flushed(), r.Drain()...)
	return res
}

// LatestEstimate returns the most recent Started snapshot, if any
func (r Result) LatestEstimate() (CalculatedExtraction, bool) {
	if len(r.Estimates) == 0 {
		return CalculatedExtraction{}, false
	}
	return r.Estimates[len(r.Estimates)-1], true
}

// GroupByRefinery splits a mixed event list into per refinery slices, preserving input order
func GroupByRefinery(events []Event) map[int64][]Event {
	out := map[int64][]Event{}
	for _, ev := range events {
		out[ev.RefineryID] = append(out[ev.RefineryID], ev)
	}
	return out
}

// Window reports the earliest and latest event timestamps
func Window(events []Event) (from, to time.Time) {
	for i, ev := range events {
		if i == 0 || ev.Timestamp.Before(from) {
			from = ev.Timestamp
		}
		if i == 0 || ev.Timestamp.After(to) {
			to = ev.Timestamp
		}
	}
	return from, to
}
