// Package buildinfo holds version metadata set at link time:
//
//	-ldflags "-X github.com/garyellow/lnmu-portal/internal/buildinfo.Version=v1.2.0"
package buildinfo

import (
	"runtime/debug"
	"strings"
)

// Link-time values. Empty means unknown.
var (
	Version   = ""
	Commit    = ""
	BuildDate = ""
)

// Release returns the version reported to Sentry and printed by the CLI.
// Without link-time values it falls back to the module version recorded by
// the Go toolchain, then to "dev".
func Release() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// String describes the build on one line.
func String() string {
	parts := []string{Release()}
	if Commit != "" {
		c := Commit
		if len(c) > 12 {
			c = c[:12]
		}
		parts = append(parts, "commit "+c)
	}
	if BuildDate != "" {
		parts = append(parts, "built "+BuildDate)
	}
	return strings.Join(parts, ", ")
}
