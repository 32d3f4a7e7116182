package main

import (
	"flag"
	"os"
	"strings"
	"testing"

	perr "moonmining/internal/platform/errors"
	"moonmining/internal/platform/testkit"
)

const dumpYAML = `
- owner_id: 98000001
  notifications:
    - notification_id: 1000000001
      type: MoonminingExtractionStarted
      timestamp: 2026-05-01T18:00:00Z
      sender_id: 1000137
      sender_type: corporation
      is_read: true
      text: |
        autoTime: 133960104000000000
        moonID: 40161708
        oreVolumeByType:
          45506: 1288475.0
        readyTime: 133960050000000000
        startedBy: 2112625428
        structureID: 1000000000001
    - notification_id: 1000000002
      type: CorpAllBillMsg
      timestamp: 2026-05-02T18:00:00Z
      text: "amount: 1"
`

func TestDecodeDump(t *testing.T) {
	got, err := decodeDump(strings.NewReader(dumpYAML))
	testkit.MustNoErr(t, err, "decodeDump")
	raws := got[98000001]
	if len(raws) != 2 {
		t.Fatalf("raws=%d", len(raws))
	}
	r := raws[0]
	if r.NotificationID != 1000000001 || r.Type != "MoonminingExtractionStarted" || r.IsRead == nil || !*r.IsRead {
		t.Fatalf("raw=%+v", r)
	}
	if r.Timestamp.Year() != 2026 || !strings.Contains(r.Text, "structureID: 1000000000001") {
		t.Fatalf("raw=%+v", r)
	}
	if raws[1].IsRead != nil {
		t.Fatalf("missing is_read should stay nil")
	}
}

func TestDecodeDump_Errors(t *testing.T) {
	if _, err := decodeDump(strings.NewReader("- notifications: []\n")); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("missing owner: %v", err)
	}
	if _, err := decodeDump(strings.NewReader("owner_id: [")); !perr.IsCode(err, perr.ErrorCodeMalformedEvent) {
		t.Fatalf("bad yaml: %v", err)
	}
	got, err := decodeDump(strings.NewReader(""))
	testkit.MustNoErr(t, err, "empty dump")
	if len(got) != 0 {
		t.Fatalf("got=%v", got)
	}
}

func TestParseOwners(t *testing.T) {
	got, err := parseOwners(" 98000001, ,98000002")
	testkit.MustNoErr(t, err, "parseOwners")
	if len(got) != 2 || got[0] != 98000001 || got[1] != 98000002 {
		t.Fatalf("got=%v", got)
	}
	if _, err := parseOwners("abc"); err == nil {
		t.Fatalf("expected error")
	}
}

func withArgs(t *testing.T, args ...string) {
	testkit.Serial(t)
	testkit.Swap(t, &os.Args, append([]string{"moonmining-extractions"}, args...))
	testkit.Swap(t, &flag.CommandLine, flag.NewFlagSet("moonmining-extractions", flag.ContinueOnError))
}

func TestRun_ExitCodes(t *testing.T) {
	t.Run("version", func(t *testing.T) {
		withArgs(t, "-version")
		if code := run(); code != 0 {
			t.Fatalf("code=%d", code)
		}
	})
	t.Run("missing database url", func(t *testing.T) {
		withArgs(t)
		t.Setenv("SERVICE_PGSQL_DBURL", "")
		t.Setenv("OTEL_STDOUT", "false")
		if code := run(); code != 2 {
			t.Fatalf("code=%d", code)
		}
	})
}
