package buildinfo_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/silsilah/internal/buildinfo"
)

func TestSummary(t *testing.T) {
	c := qt.New(t)
	c.Patch(&buildinfo.Version, "v1.2.3")
	c.Patch(&buildinfo.GitCommit, "abc123")
	c.Patch(&buildinfo.BuildDate, "2026-10-01")
	c.Assert(buildinfo.Summary(), qt.Equals, "silsilah v1.2.3 (commit abc123, built 2026-10-01)")
}
