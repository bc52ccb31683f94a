package main

import (
	_ "embed"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var releaseVersion string

// Version reports the module version for `go install`ed binaries, and the
// embedded release version with the VCS revision for local builds.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	return versionFrom(strings.TrimSpace(releaseVersion), info, ok)
}

func versionFrom(release string, info *debug.BuildInfo, ok bool) string {
	if !ok {
		return release
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	v := release + "-devel"
	var modified bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) >= 12 {
				v += "+" + s.Value[:12]
			}
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if modified {
		v += ".dirty"
	}
	return v
}
