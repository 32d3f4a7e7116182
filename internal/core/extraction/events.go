// Package extraction reconstructs moon mining extraction lifecycles from refinery notifications.
// It is pure: events in, calculated extractions out, no I/O
package extraction

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	perr "moonmining/internal/platform/errors"
)

// Kind is the closed set of notification kinds relevant to moon mining
type Kind uint8

const (
	// KindUnknown is any notification type that does not concern extractions
	KindUnknown Kind = iota
	KindStarted
	KindCancelled
	KindFinished
	KindLaserFired
	KindAutomaticFracture
)

var kindTypes = map[Kind]string{
	KindStarted:           "MoonminingExtractionStarted",
	KindCancelled:         "MoonminingExtractionCancelled",
	KindFinished:          "MoonminingExtractionFinished",
	KindLaserFired:        "MoonminingLaserFired",
	KindAutomaticFracture: "MoonminingAutomaticFracture",
}

// ParseKind maps a game notification type name to a Kind
// ok is false for types that are not moon mining related
func ParseKind(notificationType string) (Kind, bool) {
	t := strings.TrimRightFunc(notificationType, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' })
	for k, name := range kindTypes {
		if name == t {
			return k, true
		}
	}
	return KindUnknown, false
}

// NotificationType returns the game name of k
func (k Kind) NotificationType() string { return kindTypes[k] }

// NotificationTypes lists the game names of all relevant kinds in a stable order
func NotificationTypes() []string {
	out := make([]string, 0, len(kindTypes))
	for k := KindStarted; k <= KindAutomaticFracture; k++ {
		out = append(out, kindTypes[k])
	}
	return out
}

func (k Kind) String() string {
	switch k {
	case KindStarted:
		return "started"
	case KindCancelled:
		return "cancelled"
	case KindFinished:
		return "finished"
	case KindLaserFired:
		return "laser_fired"
	case KindAutomaticFracture:
		return "automatic_fracture"
	}
	return "unknown"
}

// OreVolumes maps ore type id to volume in m3
type OreVolumes map[int64]float64

// ParseOreVolumes coerces a decoded details mapping into OreVolumes.
// Keys may arrive as strings or integers, values as any number
func ParseOreVolumes(raw any) (OreVolumes, error) {
	out := OreVolumes{}
	put := func(k, v any) error {
		id, err := toInt64(k)
		if err != nil {
			return perr.Malformedf("oreVolumeByType", "ore type id %v: %v", k, err)
		}
		vol, err := toFloat64(v)
		if err != nil {
			return perr.Malformedf("oreVolumeByType", "volume for ore %d: %v", id, err)
		}
		out[id] = vol
		return nil
	}

	switch m := raw.(type) {
	case nil:
		return nil, perr.Malformedf("oreVolumeByType", "missing")
	case OreVolumes:
		for k, v := range m {
			out[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if err := put(k, v); err != nil {
				return nil, err
			}
		}
	case map[any]any:
		for k, v := range m {
			if err := put(k, v); err != nil {
				return nil, err
			}
		}
	case map[int]any:
		for k, v := range m {
			if err := put(k, v); err != nil {
				return nil, err
			}
		}
	case map[string]float64:
		for k, v := range m {
			if err := put(k, v); err != nil {
				return nil, err
			}
		}
	case map[int64]float64:
		for k, v := range m {
			out[k] = v
		}
	default:
		return nil, perr.Malformedf("oreVolumeByType", "unsupported shape %T", raw)
	}
	return out, nil
}

// IDs returns the ore type ids in ascending order
func (o OreVolumes) IDs() []int64 {
	ids := make([]int64, 0, len(o))
	for id := range o {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("out of range")
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(x), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

// Header carries what every event has in common
type Header struct {
	RefineryID     int64
	Timestamp      time.Time
	MoonID         int64 // zero when the notification did not carry one
	NotificationID int64 // zero when unknown
}

// Payload is one of Started, Cancelled, Finished, LaserFired or AutomaticFracture
type Payload interface {
	Kind() Kind
	validate() error
}

// Started opens an extraction; Ores is the composition estimate
type Started struct {
	ReadyTime        time.Time
	AutoFractureTime time.Time
	StartedBy        *int64
	Ores             OreVolumes
}

// Cancelled aborts a started extraction
type Cancelled struct {
	CancelledBy *int64
}

// Finished marks the chunk as arrived and fractureable
type Finished struct {
	AutoFractureTime time.Time
	Ores             OreVolumes
}

// LaserFired is a manual fracture
type LaserFired struct {
	FiredBy *int64
	Ores    OreVolumes
}

// AutomaticFracture is the fracture triggered by the structure itself
type AutomaticFracture struct {
	Ores OreVolumes
}

func (Started) Kind() Kind           { return KindStarted }
func (Cancelled) Kind() Kind         { return KindCancelled }
func (Finished) Kind() Kind          { return KindFinished }
func (LaserFired) Kind() Kind        { return KindLaserFired }
func (AutomaticFracture) Kind() Kind { return KindAutomaticFracture }

func (p Started) validate() error {
	if p.ReadyTime.IsZero() {
		return perr.Malformedf("readyTime", "started event without ready time")
	}
	if p.AutoFractureTime.IsZero() {
		return perr.Malformedf("autoTime", "started event without auto fracture time")
	}
	return requireOres(p.Ores)
}

func (Cancelled) validate() error { return nil }

func (p Finished) validate() error {
	if p.AutoFractureTime.IsZero() {
		return perr.Malformedf("autoTime", "finished event without auto fracture time")
	}
	return requireOres(p.Ores)
}

func (p LaserFired) validate() error        { return requireOres(p.Ores) }
func (p AutomaticFracture) validate() error { return requireOres(p.Ores) }

func requireOres(o OreVolumes) error {
	if o == nil {
		return perr.Malformedf("oreVolumeByType", "missing ore volumes")
	}
	for id, v := range o {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return perr.Malformedf("oreVolumeByType", "invalid volume %v for ore %d", v, id)
		}
	}
	return nil
}

// Event is one typed moon mining notification for a refinery
type Event struct {
	Header
	Payload Payload
}

// Kind of the carried payload
func (e Event) Kind() Kind {
	if e.Payload == nil {
		return KindUnknown
	}
	return e.Payload.Kind()
}

// NewEvent validates h and p and builds an Event
// violations are returned as ErrorCodeMalformedEvent errors naming the offending field
func NewEvent(h Header, p Payload) (Event, error) {
	if h.RefineryID <= 0 {
		return Event{}, perr.Malformedf("structureID", "event without refinery id")
	}
	if h.Timestamp.IsZero() {
		return Event{}, perr.Malformedf("timestamp", "event without timestamp")
	}
	if p == nil {
		return Event{}, perr.Malformedf("type", "event without payload")
	}
	if err := p.validate(); err != nil {
		return Event{}, perr.WithOp(err, "extraction.NewEvent")
	}
	return Event{Header: h, Payload: p}, nil
}
