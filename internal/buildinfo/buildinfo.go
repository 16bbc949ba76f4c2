// Package buildinfo holds build-time variables injected via ldflags.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Populated by -ldflags at build time; defaults used for local dev.
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Summary returns the one-line version string printed by `silsilah version`.
// Without ldflags it falls back to the module version recorded by `go install`.
func Summary() string {
	version := Version
	if version == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			version = bi.Main.Version
		}
	}
	return fmt.Sprintf("silsilah %s (commit %s, built %s)", version, GitCommit, BuildDate)
}
