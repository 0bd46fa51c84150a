// clashdesk - layered proxy configuration manager.
package main

import (
	"github.com/clashdesk/clashdesk/pkg/cli"
)

// Build-time variables set via ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.BuildDate = buildDate
	cli.Execute()
}
