package report

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neounit/pkg/coverage"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
)

// NewCommands returns 'coverage' command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:  "coverage",
		Usage: "Inspect and combine coverage files",
		Subcommands: []cli.Command{
			{
				Name:      "summary",
				Usage:     "Print coverage summary",
				UsageText: "neounit coverage summary [--coverage-file <file>] [--module <name>]",
				Action:    summary,
				Flags: []cli.Flag{
					cli.StringFlag{
						Name:  "coverage-file, c",
						Value: coverage.DefaultFileName,
						Usage: "Coverage file to read",
					},
					cli.StringFlag{
						Name:  "module, m",
						Usage: "Only print modules containing this substring (0x1::name)",
					},
				},
			},
			{
				Name:      "merge",
				Usage:     "Merge coverage files",
				UsageText: "neounit coverage merge --out <file> [--compress] <file> [<file>...]",
				Action:    merge,
				Flags: []cli.Flag{
					cli.StringFlag{
						Name:  "out, o",
						Usage: "Output file",
					},
					cli.BoolFlag{
						Name:  "compress",
						Usage: "Compress the output file",
					},
				},
			},
			{
				Name:      "diff",
				Usage:     "Show coverage changes between two files",
				UsageText: "neounit coverage diff <old> <new>",
				Action:    diff,
			},
		},
	}}
}

var fs = afero.NewOsFs()

func summary(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()), 1)
	}
	m, err := coverage.LoadFile(fs, ctx.String("coverage-file"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	Coverage(ctx.App.Writer, m.Summary(), ctx.String("module"))
	return nil
}

func merge(ctx *cli.Context) error {
	out := ctx.String("out")
	if out == "" {
		return cli.NewExitError(errors.New("output file is required"), 1)
	}
	if ctx.NArg() == 0 {
		return cli.NewExitError(errors.New("no files to merge"), 1)
	}
	res := coverage.NewMap()
	for _, file := range ctx.Args() {
		m, err := coverage.LoadFile(fs, file)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		res.Merge(m)
	}
	if err := res.SaveFile(fs, out, ctx.Bool("compress")); err != nil {
		return cli.NewExitError(fmt.Errorf("can't save %s: %w", out, err), 1)
	}
	fmt.Fprintf(ctx.App.Writer, "Merged %d files into %s\n", ctx.NArg(), out)
	return nil
}

func diff(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.NewExitError(errors.New("two coverage files are expected"), 1)
	}
	var texts [2]string
	for i, file := range ctx.Args() {
		m, err := coverage.LoadFile(fs, file)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		buf := new(bytes.Buffer)
		Coverage(buf, m.Summary(), "")
		texts[i] = buf.String()
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(texts[0]),
		B:        difflib.SplitLines(texts[1]),
		FromFile: ctx.Args()[0],
		ToFile:   ctx.Args()[1],
		Context:  1,
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if text == "" {
		fmt.Fprintln(ctx.App.Writer, "No coverage changes")
		return nil
	}
	fmt.Fprint(ctx.App.Writer, text)
	return nil
}
