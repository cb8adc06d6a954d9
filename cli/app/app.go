package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/neounit/cli/report"
	"github.com/nspcc-dev/neounit/cli/runner"
	"github.com/nspcc-dev/neounit/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "NeoUnit\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a NeoUnit instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "neounit"
	ctl.Version = config.Version
	ctl.Usage = "Unit test runner for compiled contract packages"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, runner.NewCommands()...)
	ctl.Commands = append(ctl.Commands, report.NewCommands()...)
	return ctl
}
