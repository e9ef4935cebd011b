// Command shipwright is the autonomous software-delivery orchestration
// daemon: it watches an issue tracker, triages and admits candidates,
// drives each admitted job through a fixed stage pipeline in an isolated
// subprocess, and reports back via PR/merge/deploy/validate/monitor.
package main

import (
	"os"

	"github.com/shipwright-run/shipwright/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
