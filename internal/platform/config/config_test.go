package config

import (
	"reflect"
	"testing"
	"time"

	kit "moonmining/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	pg := New().Prefix("SERVICE_").Prefix("PGSQL_")
	if got := pg.key("DBURL"); got != "SERVICE_PGSQL_DBURL" {
		t.Fatalf("key() = %q, want SERVICE_PGSQL_DBURL", got)
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("SERVICE_PGSQL_")
	t.Setenv("SERVICE_PGSQL_DBURL", "  postgres://x ")
	if got := c.MustString("DBURL"); got != "postgres://x" {
		t.Fatalf("MustString = %q", got)
	}
	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestMayScalars(t *testing.T) {
	c := New().Prefix("CORE_EXTRACTIONS_")
	t.Setenv("CORE_EXTRACTIONS_WORKERS", "6")
	t.Setenv("CORE_EXTRACTIONS_BADINT", "six")
	t.Setenv("CORE_EXTRACTIONS_YIELD", "0.82")
	t.Setenv("CORE_EXTRACTIONS_LEASES", "false")
	t.Setenv("CORE_EXTRACTIONS_TTL", "90s")
	t.Setenv("CORE_EXTRACTIONS_BADTTL", "soon")

	if got := c.MayInt("WORKERS", 1); got != 6 {
		t.Fatalf("MayInt = %d, want 6", got)
	}
	if got := c.MayInt("BADINT", 3); got != 3 {
		t.Fatalf("MayInt invalid = %d, want default 3", got)
	}
	if got := c.MayFloat64("YIELD", 0.7); got != 0.82 {
		t.Fatalf("MayFloat64 = %v, want 0.82", got)
	}
	if got := c.MayBool("LEASES", true); got {
		t.Fatalf("MayBool = true, want false")
	}
	if got := c.MayDuration("TTL", time.Second); got != 90*time.Second {
		t.Fatalf("MayDuration = %v, want 90s", got)
	}
	if got := c.MayDuration("BADTTL", time.Minute); got != time.Minute {
		t.Fatalf("MayDuration invalid = %v, want 1m", got)
	}
	if got := c.MayString("UNSET", "fallback"); got != "fallback" {
		t.Fatalf("MayString = %q, want fallback", got)
	}
}

func TestMayInt64s(t *testing.T) {
	c := New().Prefix("CORE_EXTRACTIONS_")
	t.Setenv("CORE_EXTRACTIONS_OWNERS", " 2001, x ,2002,,")
	if got, want := c.MayInt64s("OWNERS", nil), []int64{2001, 2002}; !reflect.DeepEqual(got, want) {
		t.Fatalf("MayInt64s = %v, want %v", got, want)
	}
	t.Setenv("CORE_EXTRACTIONS_NOPE", "a,b")
	if got := c.MayInt64s("NOPE", []int64{9}); !reflect.DeepEqual(got, []int64{9}) {
		t.Fatalf("MayInt64s all-invalid = %v, want default", got)
	}
}
