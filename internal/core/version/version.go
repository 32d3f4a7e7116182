// Package version reports the build of a moonmining binary
package version

import "runtime/debug"

// BuildInfo identifies one binary build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Set with -ldflags "-X 'moonmining/internal/core/version.version=v0.3.0' -X ..."
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Info returns the build of service. Commit and date fall back to the VCS stamp of the Go toolchain
func Info(service string) BuildInfo {
	bi := BuildInfo{Service: service, Version: version, Commit: commit, Date: date}
	if bi.Commit != "" && bi.Date != "" {
		return bi
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		fromSettings(&bi, info.Settings)
	}
	if bi.Commit == "" {
		bi.Commit = "none"
	}
	if bi.Date == "" {
		bi.Date = "unknown"
	}
	return bi
}

func fromSettings(bi *BuildInfo, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if bi.Commit == "" {
				bi.Commit = s.Value
			}
		case "vcs.time":
			if bi.Date == "" {
				bi.Date = s.Value
			}
		}
	}
}
