// Package time contains time related helpers
package time

import (
	"time"
)

// seconds between 1601-01-01 (LDAP/Windows file time origin) and the unix epoch
const ldapToUnixSeconds int64 = 11644473600

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Deref returns *p or the zero time when p is nil
func Deref(p *time.Time) time.Time {
	if p == nil {
		return time.Time{}
	}
	return *p
}

// RoundSeconds drops sub-second precision; 500ms and above rounds up
func RoundSeconds(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	trunc := t.Truncate(time.Second)
	if t.Sub(trunc) >= 500*time.Millisecond {
		return trunc.Add(time.Second)
	}
	return trunc
}

// FromLDAP converts 100ns ticks since 1601-01-01 UTC into a UTC time.
// Zero or negative ticks yield the zero time
func FromLDAP(ticks int64) time.Time {
	if ticks <= 0 {
		return time.Time{}
	}
	secs := ticks/10_000_000 - ldapToUnixSeconds
	nanos := (ticks % 10_000_000) * 100
	return time.Unix(secs, nanos).UTC()
}

// ToLDAP is the inverse of FromLDAP
func ToLDAP(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return (t.Unix()+ldapToUnixSeconds)*10_000_000 + int64(t.Nanosecond()/100)
}

// Equal reports whether two optional times point at the same instant
func Equal(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	}
	return a.Equal(*b)
}
