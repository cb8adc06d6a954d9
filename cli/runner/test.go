package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/nspcc-dev/neounit/cli/options"
	"github.com/nspcc-dev/neounit/cli/report"
	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/config"
	"github.com/nspcc-dev/neounit/pkg/namedaddr"
	"github.com/nspcc-dev/neounit/pkg/unittest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// fs is the file system packages and coverage files are located in.
var fs = afero.NewOsFs()

// NewCommands returns 'test' command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:  "test",
		Usage: "Run unit tests of a compiled package",
		UsageText: "neounit test [--path <dir>] [--address <name=addr>]... [--gas-limit <n>] [--coverage]\n" +
			"\t[--coverage-file <file>] [--merge] [--compress] [--filter <substr>] [--list] [--workers <n>]\n" +
			"\t[--config-file <file>] [--debug]",
		Description: `Runs all test functions of the package in the given directory, each in a
   fresh VM with the given gas limit. Named addresses the package declares
   without a value must be bound with --address (or in the configuration
   file), e.g. --address owner=0xaa. Exits with 1 if any test fails.`,
		Action: runTests,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "path, p",
				Value: ".",
				Usage: "Package directory",
			},
			cli.StringSliceFlag{
				Name:  "address, a",
				Usage: "Named address binding (name=address), can be repeated",
			},
			cli.Int64Flag{
				Name:  "gas-limit, g",
				Usage: fmt.Sprintf("Execution budget of every test (default %d)", unittest.DefaultGasLimit),
			},
			cli.BoolFlag{
				Name:  "coverage",
				Usage: "Collect coverage and save it to the coverage file",
			},
			cli.StringFlag{
				Name:  "coverage-file, c",
				Usage: "Coverage file",
			},
			cli.BoolFlag{
				Name:  "merge",
				Usage: "Merge coverage with the existing coverage file",
			},
			cli.BoolFlag{
				Name:  "compress",
				Usage: "Compress the coverage file",
			},
			cli.StringFlag{
				Name:  "filter, f",
				Usage: "Only run tests with names containing this substring",
			},
			cli.BoolFlag{
				Name:  "list, l",
				Usage: "List tests without running them",
			},
			cli.IntFlag{
				Name:  "workers, w",
				Usage: "Number of tests run concurrently",
			},
			options.ConfigFile,
			options.Debug,
		},
	}}
}

// applyFlags overrides configuration with the flags set.
func applyFlags(ctx *cli.Context, cfg *config.UnitTest) error {
	// Flags replace configured bindings but can't repeat a name.
	seen := make(map[string]struct{})
	for _, s := range ctx.StringSlice("address") {
		b, err := namedaddr.ParseNamedAddress(s)
		if err != nil {
			return err
		}
		if _, ok := seen[b.Name]; ok {
			return fmt.Errorf("%w: %s", namedaddr.ErrDuplicateAddress, b.Name)
		}
		seen[b.Name] = struct{}{}
		if cfg.Addresses == nil {
			cfg.Addresses = make(map[string]string)
		}
		cfg.Addresses[b.Name] = b.Address.StringShort()
	}
	if ctx.IsSet("gas-limit") {
		cfg.GasLimit = ctx.Int64("gas-limit")
	}
	if ctx.IsSet("coverage") {
		cfg.Coverage = ctx.Bool("coverage")
	}
	if ctx.IsSet("coverage-file") {
		cfg.CoverageFile = ctx.String("coverage-file")
	}
	if ctx.IsSet("merge") {
		cfg.MergeCoverage = ctx.Bool("merge")
	}
	if ctx.IsSet("compress") {
		cfg.CompressCoverage = ctx.Bool("compress")
	}
	if ctx.IsSet("filter") {
		cfg.Filter = ctx.String("filter")
	}
	if ctx.IsSet("workers") {
		cfg.Workers = ctx.Int("workers")
	}
	return cfg.Validate()
}

func runTests(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()), 1)
	}
	path := ctx.String("path")
	cfg, err := options.GetConfigFromContext(ctx, fs, path)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := applyFlags(ctx, &cfg.UnitTest); err != nil {
		return cli.NewExitError(err, 1)
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	bindings, err := cfg.UnitTest.Bindings()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	r := unittest.NewRunner(cfg.UnitTest.RunnerConfig(), bytecode.NewLoader(fs, log), fs, log)

	if ctx.Bool("list") {
		tests, err := r.List(path, bindings)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		report.List(ctx.App.Writer, tests)
		return nil
	}

	gctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	rep, err := r.Run(gctx, path, bindings)
	if rep == nil {
		return cli.NewExitError(err, 1)
	}
	report.Results(ctx.App.Writer, rep)
	if rep.Coverage != nil {
		fmt.Fprintln(ctx.App.Writer)
		report.Coverage(ctx.App.Writer, rep.Coverage.Summary(), "")
	}
	if metrics := cfg.ApplicationConfiguration.MetricsFile; metrics != "" {
		if merr := prometheus.WriteToTextfile(metrics, prometheus.DefaultGatherer); merr != nil {
			log.Warn("can't write metrics", zap.String("file", metrics), zap.Error(merr))
		}
	}
	if err := errors.Join(err, rep.Err()); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}
