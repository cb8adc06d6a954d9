package config

import (
	"testing"

	"github.com/nspcc-dev/neounit/pkg/coverage"
	"github.com/nspcc-dev/neounit/pkg/namedaddr"
	"github.com/nspcc-dev/neounit/pkg/unittest"
	"github.com/nspcc-dev/neounit/pkg/util"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testConfig = `ApplicationConfiguration:
  LogLevel: debug
UnitTest:
  GasLimit: 5000
  Coverage: true
  Workers: 4
  Addresses:
    std: "0x1"
    owner: "0xaa"
`

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/neounit.yml", []byte(testConfig), 0644))

	cfg, err := Load(fs, "/neounit.yml")
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.ApplicationConfiguration.LogLevel)
	require.Equal(t, int64(5000), cfg.UnitTest.GasLimit)
	require.Equal(t, coverage.DefaultFileName, cfg.UnitTest.CoverageFile)

	bindings, err := cfg.UnitTest.Bindings()
	require.NoError(t, err)
	require.Equal(t, []namedaddr.NamedAddress{
		{Name: "owner", Address: util.Uint160{19: 0xaa}},
		{Name: "std", Address: util.Uint160{19: 1}},
	}, bindings)

	require.Equal(t, unittest.Config{
		GasLimit:     5000,
		Coverage:     true,
		CoverageFile: coverage.DefaultFileName,
		Workers:      4,
	}, cfg.UnitTest.RunnerConfig())
}

func TestLoadEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/empty.yml", nil, 0644))

	cfg, err := Load(fs, "/empty.yml")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, int64(unittest.DefaultGasLimit), cfg.UnitTest.GasLimit)
}

func TestLoadErrors(t *testing.T) {
	testCases := map[string]string{
		"unknown field": "UnitTest:\n  Gas: 1\n",
		"bad yaml":      "UnitTest: [\n",
		"zero gas":      "UnitTest:\n  GasLimit: 0\n",
		"workers":       "UnitTest:\n  Workers: -1\n",
		"no file":       "UnitTest:\n  Coverage: true\n  CoverageFile: \"\"\n",
		"bad address":   "UnitTest:\n  Addresses:\n    a: \"0xzz\"\n",
		"bad log level": "ApplicationConfiguration:\n  LogLevel: loud\n",
	}
	for name, data := range testCases {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/cfg.yml", []byte(data), 0644))
			_, err := Load(fs, "/cfg.yml")
			require.Error(t, err)
		})
	}

	t.Run("missing", func(t *testing.T) {
		_, err := Load(afero.NewMemMapFs(), "/nowhere.yml")
		require.Error(t, err)
	})
}
