package runner

import (
	"bytes"
	"flag"
	"testing"

	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/config"
	"github.com/nspcc-dev/neounit/pkg/coverage"
	"github.com/nspcc-dev/neounit/pkg/io"
	"github.com/nspcc-dev/neounit/pkg/namedaddr"
	"github.com/nspcc-dev/neounit/pkg/vm/emit"
	"github.com/nspcc-dev/neounit/pkg/vm/opcode"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func prog(t *testing.T, f func(w *io.BinWriter)) []byte {
	buf := io.NewBufBinWriter()
	f(buf.BinWriter)
	require.NoError(t, buf.Err)
	return buf.Bytes()
}

// setup saves a package with a passing test and, optionally, a failing one
// into a fresh in-memory file system.
func setup(t *testing.T, failing bool) {
	fs = afero.NewMemMapFs()
	fns := []bytecode.Function{{
		Name:       "test_ok",
		Attributes: bytecode.AttrTest,
		Code: prog(t, func(w *io.BinWriter) {
			emit.Address(w, 0)
			emit.Opcodes(w, opcode.DROP)
		}),
	}}
	if failing {
		fns = append(fns, bytecode.Function{
			Name:       "test_fail",
			Attributes: bytecode.AttrTest,
			Code:       prog(t, func(w *io.BinWriter) { emit.Abort(w, 13) }),
		})
	}
	m := &bytecode.Manifest{
		Name:      "coins",
		Addresses: map[string]string{"owner": namedaddr.Unassigned},
	}
	require.NoError(t, m.Save(fs, "/coins"))
	require.NoError(t, bytecode.SaveModule(fs, "/coins", &bytecode.Module{
		AddressName: "owner",
		Name:        "coin",
		AddressRefs: []string{"owner"},
		Functions:   fns,
	}))
}

func newApp() (*cli.App, *bytes.Buffer) {
	out := new(bytes.Buffer)
	app := cli.NewApp()
	app.Writer = out
	app.ErrWriter = out
	app.ExitErrHandler = func(*cli.Context, error) {}
	cli.OsExiter = func(int) {}
	app.Commands = NewCommands()
	return app, out
}

func run(args ...string) (string, error) {
	app, out := newApp()
	err := app.Run(append([]string{"neounit", "test"}, args...))
	return out.String(), err
}

func TestRunTests(t *testing.T) {
	t.Run("pass", func(t *testing.T) {
		setup(t, false)
		out, err := run("--path", "/coins", "--address", "owner=0xaa")
		require.NoError(t, err)
		require.Contains(t, out, "[ PASS ] 0xaa::coin::test_ok")
		require.Contains(t, out, "Test result: OK. Total tests: 1; passed: 1; failed: 0")
	})
	t.Run("fail", func(t *testing.T) {
		setup(t, true)
		out, err := run("--path", "/coins", "-a", "owner=0xaa")
		require.Error(t, err)
		require.Contains(t, err.Error(), "0xaa::coin::test_fail: ABORTED (code 13)")
		var ec cli.ExitCoder
		require.ErrorAs(t, err, &ec)
		require.Equal(t, 1, ec.ExitCode())
		require.Contains(t, out, "[ FAIL ] 0xaa::coin::test_fail")
		require.Contains(t, out, "failed: 1")
	})
	t.Run("list", func(t *testing.T) {
		setup(t, true)
		out, err := run("--path", "/coins", "-a", "owner=0xaa", "--list", "--filter", "fail")
		require.NoError(t, err)
		require.Equal(t, "0xaa::coin::test_fail\n", out)
	})
	t.Run("unresolved", func(t *testing.T) {
		setup(t, false)
		_, err := run("--path", "/coins")
		require.ErrorContains(t, err, namedaddr.ErrUnresolvedAddress.Error())
	})
	t.Run("bad binding", func(t *testing.T) {
		setup(t, false)
		_, err := run("--path", "/coins", "-a", "owner")
		require.ErrorContains(t, err, namedaddr.ErrInvalidBinding.Error())
	})
	t.Run("repeated binding", func(t *testing.T) {
		setup(t, false)
		_, err := run("--path", "/coins", "-a", "owner=0xaa", "-a", "owner=0xbb")
		require.ErrorContains(t, err, namedaddr.ErrDuplicateAddress.Error())
	})
	t.Run("bad gas limit", func(t *testing.T) {
		setup(t, false)
		_, err := run("--path", "/coins", "-a", "owner=0xaa", "--gas-limit", "0")
		require.Error(t, err)
	})
	t.Run("extra arguments", func(t *testing.T) {
		setup(t, false)
		_, err := run("--path", "/coins", "something")
		require.Error(t, err)
	})
}

func TestRunTestsConfig(t *testing.T) {
	setup(t, false)
	cfg := "UnitTest:\n  Coverage: true\n  CoverageFile: /out/cov.nvcov\n  Addresses:\n    owner: \"0xaa\"\n"
	require.NoError(t, afero.WriteFile(fs, "/coins/neounit.yml", []byte(cfg), 0644))

	out, err := run("--path", "/coins", "--compress")
	require.NoError(t, err)
	require.Contains(t, out, "Coverage:")
	require.Contains(t, out, "test_ok 100.00% (2/2)")

	m, err := coverage.LoadFile(fs, "/out/cov.nvcov")
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())

	t.Run("flags override", func(t *testing.T) {
		_, err := run("--path", "/coins", "--coverage-file", "/out/other.nvcov", "-a", "owner=0xbb")
		require.NoError(t, err)
		m, err := coverage.LoadFile(fs, "/out/other.nvcov")
		require.NoError(t, err)
		require.Equal(t, "0xbb::coin", m.Modules()[0].String())
	})
	t.Run("explicit config", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "/bad.yml", []byte("UnitTest:\n  Unknown: 1\n"), 0644))
		_, err := run("--path", "/coins", "--config-file", "/bad.yml")
		require.Error(t, err)
	})
}

func TestApplyFlags(t *testing.T) {
	set := flag.NewFlagSet("flagSet", flag.ExitOnError)
	set.Int64("gas-limit", 0, "")
	set.Int("workers", 0, "")
	set.String("filter", "", "")
	require.NoError(t, set.Parse([]string{"--gas-limit", "77", "--workers", "3"}))
	ctx := cli.NewContext(cli.NewApp(), set, nil)

	cfg := config.Default().UnitTest
	cfg.Filter = "keep"
	require.NoError(t, applyFlags(ctx, &cfg))
	require.Equal(t, int64(77), cfg.GasLimit)
	require.Equal(t, 3, cfg.Workers)
	require.Equal(t, "keep", cfg.Filter)

	addrs := cli.StringSlice{}
	set = flag.NewFlagSet("flagSet", flag.ExitOnError)
	set.Var(&addrs, "address", "")
	require.NoError(t, set.Parse([]string{"--address", "owner=0xbb", "--address", "std=0x1"}))
	ctx = cli.NewContext(cli.NewApp(), set, nil)

	cfg = config.Default().UnitTest
	cfg.Addresses = map[string]string{"owner": "0xaa"}
	require.NoError(t, applyFlags(ctx, &cfg))
	require.Equal(t, map[string]string{"owner": "0xbb", "std": "0x1"}, cfg.Addresses)

	require.NoError(t, set.Parse([]string{"--address", "std=0x2"}))
	require.ErrorIs(t, applyFlags(ctx, &cfg), namedaddr.ErrDuplicateAddress)
}
