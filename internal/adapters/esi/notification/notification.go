package notification

import (
	"errors"
	"time"

	"moonmining/internal/core/extraction"
	perr "moonmining/internal/platform/errors"
	ptime "moonmining/internal/platform/time"

	"gopkg.in/yaml.v3"
)

// Raw is a notification as received from the game API
type Raw struct {
	NotificationID int64
	Type           string
	Timestamp      time.Time
	Text           string // YAML details
	SenderID       int64
	SenderType     string
	IsRead         *bool
}

// ErrNotMoonMining marks notifications whose type is not one of the moon mining kinds
var ErrNotMoonMining = perr.New(perr.ErrorCodeInvalidArgument, "not a moon mining notification")

type common struct {
	StructureID int64 `yaml:"structureID" validate:"required,gt=0"`
	MoonID      int64 `yaml:"moonID"`
}

type startedDetails struct {
	common          `yaml:",inline"`
	ReadyTime       int64       `yaml:"readyTime" validate:"required,gt=0"`
	AutoTime        int64       `yaml:"autoTime" validate:"required,gt=0"`
	StartedBy       *int64      `yaml:"startedBy"`
	OreVolumeByType map[any]any `yaml:"oreVolumeByType" validate:"required"`
}

type cancelledDetails struct {
	common      `yaml:",inline"`
	CancelledBy *int64 `yaml:"cancelledBy"`
}

type finishedDetails struct {
	common          `yaml:",inline"`
	AutoTime        int64       `yaml:"autoTime" validate:"required,gt=0"`
	OreVolumeByType map[any]any `yaml:"oreVolumeByType" validate:"required"`
}

type laserFiredDetails struct {
	common          `yaml:",inline"`
	FiredBy         *int64      `yaml:"firedBy"`
	OreVolumeByType map[any]any `yaml:"oreVolumeByType" validate:"required"`
}

type fractureDetails struct {
	common          `yaml:",inline"`
	OreVolumeByType map[any]any `yaml:"oreVolumeByType" validate:"required"`
}

// Parse converts one raw notification into an event.
// Unrelated types yield ErrNotMoonMining; broken details yield ErrorCodeMalformedEvent errors
func Parse(raw Raw) (extraction.Event, error) {
	kind, ok := extraction.ParseKind(raw.Type)
	if !ok {
		return extraction.Event{}, ErrNotMoonMining
	}

	var (
		c   common
		p   extraction.Payload
		err error
	)
	switch kind {
	case extraction.KindStarted:
		var d startedDetails
		if err = decode(raw.Text, &d); err != nil {
			break
		}
		c = d.common
		var ores extraction.OreVolumes
		if ores, err = extraction.ParseOreVolumes(d.OreVolumeByType); err == nil {
			p = extraction.Started{
				ReadyTime:        ptime.FromLDAP(d.ReadyTime),
				AutoFractureTime: ptime.FromLDAP(d.AutoTime),
				StartedBy:        d.StartedBy,
				Ores:             ores,
			}
		}

	case extraction.KindCancelled:
		var d cancelledDetails
		if err = decode(raw.Text, &d); err == nil {
			c = d.common
			p = extraction.Cancelled{CancelledBy: d.CancelledBy}
		}

	case extraction.KindFinished:
		var d finishedDetails
		if err = decode(raw.Text, &d); err != nil {
			break
		}
		c = d.common
		var ores extraction.OreVolumes
		if ores, err = extraction.ParseOreVolumes(d.OreVolumeByType); err == nil {
			p = extraction.Finished{AutoFractureTime: ptime.FromLDAP(d.AutoTime), Ores: ores}
		}

	case extraction.KindLaserFired:
		var d laserFiredDetails
		if err = decode(raw.Text, &d); err != nil {
			break
		}
		c = d.common
		var ores extraction.OreVolumes
		if ores, err = extraction.ParseOreVolumes(d.OreVolumeByType); err == nil {
			p = extraction.LaserFired{FiredBy: d.FiredBy, Ores: ores}
		}

	case extraction.KindAutomaticFracture:
		var d fractureDetails
		if err = decode(raw.Text, &d); err != nil {
			break
		}
		c = d.common
		var ores extraction.OreVolumes
		if ores, err = extraction.ParseOreVolumes(d.OreVolumeByType); err == nil {
			p = extraction.AutomaticFracture{Ores: ores}
		}
	}
	if err != nil {
		return extraction.Event{}, perr.WithOp(err, "notification.Parse")
	}

	return extraction.NewEvent(extraction.Header{
		RefineryID:     c.StructureID,
		Timestamp:      raw.Timestamp.UTC(),
		MoonID:         c.MoonID,
		NotificationID: raw.NotificationID,
	}, p)
}

// decode unmarshals YAML details into d and validates it
func decode(text string, d any) error {
	if err := yaml.Unmarshal([]byte(text), d); err != nil {
		return perr.Malformedf("text", "details are not valid yaml: %v", err)
	}
	return check(d)
}

// Failure is a notification that could not be turned into an event
type Failure struct {
	NotificationID int64
	Type           string
	Err            error
}

// ParseAll converts every moon mining notification in raws, skipping unrelated types.
// Malformed notifications are reported and skipped, never abort the batch
func ParseAll(raws []Raw) ([]extraction.Event, []Failure) {
	events := make([]extraction.Event, 0, len(raws))
	var failed []Failure
	for _, raw := range raws {
		ev, err := Parse(raw)
		switch {
		case err == nil:
			events = append(events, ev)
		case errors.Is(err, ErrNotMoonMining):
		default:
			failed = append(failed, Failure{NotificationID: raw.NotificationID, Type: raw.Type, Err: err})
		}
	}
	return events, failed
}

// StructureID reads only the structureID key of a details text; ok is false when absent or unreadable
func StructureID(text string) (int64, bool) {
	var c common
	if err := yaml.Unmarshal([]byte(text), &c); err != nil || c.StructureID <= 0 {
		return 0, false
	}
	return c.StructureID, true
}
