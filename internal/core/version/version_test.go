package version

import (
	"runtime/debug"
	"testing"
)

func TestInfo(t *testing.T) {
	bi := Info("moonmining-extractions")
	if bi.Service != "moonmining-extractions" || bi.Version == "" || bi.Commit == "" || bi.Date == "" {
		t.Fatalf("info=%+v", bi)
	}
}

func TestFromSettings(t *testing.T) {
	bi := BuildInfo{Commit: "abcd"}
	fromSettings(&bi, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "ffff"},
		{Key: "vcs.time", Value: "2026-10-01T00:00:00Z"},
	})
	if bi.Commit != "abcd" || bi.Date != "2026-10-01T00:00:00Z" {
		t.Fatalf("info=%+v", bi)
	}
}
