package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"moonmining/internal/platform/logger"

	"github.com/rs/zerolog"
)

func TestCompact(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"select 1":                                   "select 1",
		"  select   1  ":                             "select 1",
		"SELECT\t*\nFROM\r\textractions WHERE  a = 1": "SELECT * FROM extractions WHERE a = 1",
		"":                                           "",
	}
	for in, want := range cases {
		if got := compact(in); got != want {
			t.Fatalf("compact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTracer_LevelsAndContextFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr := Tracer(zerolog.New(&buf))

	type line struct {
		Level     string  `json:"level"`
		ElapsedMS float64 `json:"elapsed_ms"`
		SQL       string  `json:"sql"`
		RunID     string  `json:"run_id"`
		OwnerID   int64   `json:"owner_id"`
		Component string  `json:"component"`
		Error     string  `json:"error"`
	}
	decode := func() line {
		t.Helper()
		var l line
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &l); err != nil {
			t.Fatalf("decode: %v raw=%s", err, buf.String())
		}
		buf.Reset()
		return l
	}

	ctx := logger.WithOwner(logger.WithRun(context.Background(), "run-1"), 98000001)
	tr.OnQuery(ctx, QueryEvent{SQL: "SELECT 1\n FROM x", ElapsedUS: 1500})
	l := decode()
	if l.Level != "info" || l.SQL != "SELECT 1 FROM x" || l.ElapsedMS != 1.5 {
		t.Fatalf("unexpected info line: %+v", l)
	}
	if l.RunID != "run-1" || l.OwnerID != 98000001 || l.Component != "pg" {
		t.Fatalf("context fields missing: %+v", l)
	}

	tr.OnQuery(context.Background(), QueryEvent{SQL: "x", Slow: true})
	if l := decode(); l.Level != "warn" {
		t.Fatalf("slow query should warn, got %q", l.Level)
	}

	tr.OnQuery(context.Background(), QueryEvent{SQL: "x", Err: errors.New("boom")})
	if l := decode(); l.Level != "warn" || l.Error != "boom" {
		t.Fatalf("failed query should warn with error: %+v", l)
	}
}
