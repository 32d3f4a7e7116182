package extraction

import (
	"testing"
	"time"
)

const refinery int64 = 1000000000001

var t0 = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

func id(v int64) *int64 { return &v }

func mustEvent(t *testing.T, h Header, p Payload) Event {
	t.Helper()
	if h.RefineryID == 0 {
		h.RefineryID = refinery
	}
	ev, err := NewEvent(h, p)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	return ev
}

func started(t *testing.T, at, ready time.Time, by *int64, ores OreVolumes) Event {
	return mustEvent(t, Header{Timestamp: at, MoonID: 40161708}, Started{
		ReadyTime:        ready,
		AutoFractureTime: ready.Add(3 * time.Hour),
		StartedBy:        by,
		Ores:             ores,
	})
}

func cancelled(t *testing.T, at time.Time, by *int64) Event {
	return mustEvent(t, Header{Timestamp: at}, Cancelled{CancelledBy: by})
}

func finished(t *testing.T, at time.Time, ores OreVolumes) Event {
	return mustEvent(t, Header{Timestamp: at, MoonID: 40161708}, Finished{AutoFractureTime: at.Add(3 * time.Hour), Ores: ores})
}

func laserFired(t *testing.T, at time.Time, by *int64, ores OreVolumes) Event {
	return mustEvent(t, Header{Timestamp: at}, LaserFired{FiredBy: by, Ores: ores})
}

func autoFracture(t *testing.T, at time.Time, ores OreVolumes) Event {
	return mustEvent(t, Header{Timestamp: at}, AutomaticFracture{Ores: ores})
}

func withID(ev Event, n int64) Event {
	ev.NotificationID = n
	return ev
}
