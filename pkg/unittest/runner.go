/*
Package unittest discovers and runs test functions of compiled packages
collecting their outcomes and instruction coverage.
*/
package unittest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/coverage"
	"github.com/nspcc-dev/neounit/pkg/namedaddr"
	"github.com/nspcc-dev/neounit/pkg/vm"
	"github.com/nspcc-dev/neounit/pkg/vm/stackitem"
	"github.com/spf13/afero"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultGasLimit is the default execution budget of a single test.
const DefaultGasLimit = 100_000

// ErrCompilation is returned when the package can't be compiled.
var ErrCompilation = errors.New("compilation failed")

// Compiler turns a package directory into a linked package.
type Compiler interface {
	// Declarations returns named address placeholders of the package.
	Declarations(path string) ([]namedaddr.Declaration, error)
	// Compile builds the package with the given named addresses.
	Compile(path string, res *namedaddr.Resolution) (*bytecode.Package, error)
}

// Config is the test runner configuration.
type Config struct {
	// GasLimit is the execution budget of every test.
	GasLimit int64
	// Coverage enables coverage collection.
	Coverage bool
	// CoverageFile is where coverage is saved to, nothing is saved if
	// it's empty.
	CoverageFile string
	// MergeCoverage makes the runner add its coverage to the existing
	// file contents instead of overwriting it.
	MergeCoverage bool
	// CompressCoverage enables coverage file compression.
	CompressCoverage bool
	// Filter selects tests with names containing it.
	Filter string
	// Workers is the number of tests run concurrently, 0 and 1 mean
	// sequential execution.
	Workers int
}

// Runner runs package tests.
type Runner struct {
	cfg      Config
	compiler Compiler
	fs       afero.Fs
	log      *zap.Logger
}

// NewRunner creates a Runner, fs is used for coverage files.
func NewRunner(cfg Config, compiler Compiler, fs afero.Fs, log *zap.Logger) *Runner {
	if cfg.GasLimit <= 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		compiler: compiler,
		fs:       fs,
		log:      log,
	}
}

// compile resolves named addresses and compiles the package. Configuration
// errors are returned as is, other compiler errors are wrapped into
// ErrCompilation.
func (r *Runner) compile(path string, bindings []namedaddr.NamedAddress) (*bytecode.Package, error) {
	decls, err := r.compiler.Declarations(path)
	if err != nil {
		return nil, err
	}
	res, err := namedaddr.Resolve(decls, bindings)
	if err != nil {
		return nil, err
	}
	pkg, err := r.compiler.Compile(path, res)
	if err != nil {
		if errors.Is(err, namedaddr.ErrUnresolvedAddress) || errors.Is(err, bytecode.ErrPackageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrCompilation, err)
	}
	return pkg, nil
}

// List returns tests of the package without running them.
func (r *Runner) List(path string, bindings []namedaddr.NamedAddress) ([]TestCase, error) {
	pkg, err := r.compile(path, bindings)
	if err != nil {
		return nil, err
	}
	return Discover(pkg, r.cfg.Filter), nil
}

// Run compiles the package and runs all of its tests. An error is only
// returned when tests can't be run at all (or coverage can't be saved),
// failed tests are reported via Report.Err.
func (r *Runner) Run(ctx context.Context, path string, bindings []namedaddr.NamedAddress) (*Report, error) {
	runID := uuid.New()
	log := r.log.With(zap.Stringer("run", runID))

	pkg, err := r.compile(path, bindings)
	if err != nil {
		return nil, err
	}
	report := &Report{
		RunID:   runID,
		Package: pkg.Name,
	}
	tests := Discover(pkg, r.cfg.Filter)
	if len(tests) == 0 {
		log.Info("no tests found", zap.String("package", pkg.Name))
		return report, nil
	}
	log.Info("running tests",
		zap.String("package", pkg.Name),
		zap.Int("tests", len(tests)),
		zap.Int64("gas limit", r.cfg.GasLimit))

	start := time.Now()
	results, cov, err := r.runTests(ctx, pkg, tests, log)
	if err != nil {
		return nil, err
	}
	report.Results = results
	report.Coverage = cov
	log.Info("tests finished",
		zap.Int("passed", len(results)-len(report.Failed())),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("duration", time.Since(start)))

	if cov != nil && r.cfg.CoverageFile != "" {
		if err := r.saveCoverage(pkg, cov, log); err != nil {
			return report, fmt.Errorf("failed to save coverage: %w", err)
		}
	}
	return report, nil
}

// runTests executes tests by the pool of workers, each one with its own VM,
// recorder and coverage map. Maps are merged once all workers finish.
func (r *Runner) runTests(ctx context.Context, pkg *bytecode.Package, tests []TestCase, log *zap.Logger) ([]Result, *coverage.Map, error) {
	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tests) {
		workers = len(tests)
	}
	var (
		results = make([]Result, len(tests))
		maps    = make([]*coverage.Map, workers)
		next    = atomic.NewInt64(-1)
		done    = atomic.NewInt64(0)
		wg      sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		var rec *coverage.Recorder
		if r.cfg.Coverage {
			maps[w] = coverage.NewMap()
			maps[w].AddPackage(pkg)
			rec = coverage.NewRecorder()
		}
		wg.Add(1)
		go func(cov *coverage.Map) {
			defer wg.Done()
			for ctx.Err() == nil {
				i := int(next.Inc())
				if i >= len(tests) {
					return
				}
				results[i] = r.runTest(pkg, tests[i], rec, log)
				if rec != nil {
					cov.Apply(rec.Events())
					rec.Reset()
				}
				updateTestMetrics(results[i])
				log.Debug("test finished",
					zap.Stringer("test", tests[i]),
					zap.Stringer("outcome", results[i].Outcome),
					zap.Int64("gas", results[i].GasConsumed),
					zap.Int64("done", done.Inc()))
			}
		}(maps[w])
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if !r.cfg.Coverage {
		return results, nil, nil
	}
	total := coverage.NewMap()
	for _, m := range maps {
		total.Merge(m)
	}
	return results, total, nil
}

// runTest executes a single test in a fresh VM.
func (r *Runner) runTest(pkg *bytecode.Package, tc TestCase, rec *coverage.Recorder, log *zap.Logger) Result {
	res := Result{Test: tc}
	v := vm.New(pkg)
	v.GasLimit = r.cfg.GasLimit
	if rec != nil {
		v.SetOnExecHook(rec.Hook())
	}
	v.SetOnLogHook(func(m bytecode.ModuleID, fn string, msg string) {
		res.Logs = append(res.Logs, msg)
		log.Debug("runtime log",
			zap.Stringer("test", tc),
			zap.String("function", m.String()+"::"+fn),
			zap.String("message", msg))
	})

	start := time.Now()
	err := execute(v, tc)
	res.Duration = time.Since(start)
	res.GasConsumed = v.GasConsumed()
	res.Outcome = reconcile(tc.Expect, err)
	return res
}

// execute runs the test function, panics are returned as errors.
func execute(v *vm.VM, tc TestCase) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	args := make([]stackitem.Item, 0, len(tc.Args))
	for _, a := range tc.Args {
		args = append(args, stackitem.NewByteArray(a.BytesBE()))
	}
	if err := v.LoadFunction(tc.Module, tc.Function, args...); err != nil {
		return err
	}
	return v.Run()
}

// saveCoverage writes coverage to the configured file, merging it with
// the existing one if needed. Unusable existing files are overwritten.
func (r *Runner) saveCoverage(pkg *bytecode.Package, cov *coverage.Map, log *zap.Logger) error {
	out := cov
	if r.cfg.MergeCoverage {
		old, err := coverage.LoadFile(r.fs, r.cfg.CoverageFile)
		switch {
		case err == nil:
			old.AddPackage(pkg)
			old.Merge(cov)
			out = old
		case errors.Is(err, coverage.ErrNotFound):
		default:
			log.Warn("existing coverage file can't be merged, overwriting it",
				zap.String("file", r.cfg.CoverageFile),
				zap.Error(err))
		}
	}
	if err := out.SaveFile(r.fs, r.cfg.CoverageFile, r.cfg.CompressCoverage); err != nil {
		return err
	}
	log.Info("coverage saved", zap.String("file", r.cfg.CoverageFile))
	return nil
}
