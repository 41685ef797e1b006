// Command ozone is the reporting-core CLI: schema migrations, aggregate
// recomputes, baseline/limit recalculation, and reconciliation.
package main

import (
	"github.com/mutisyag/ozone-sub000/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	cli.Execute()
}
