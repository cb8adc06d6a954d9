package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nspcc-dev/neounit/pkg/coverage"
	"github.com/nspcc-dev/neounit/pkg/unittest"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Version is the version of the tool, set at build time.
var Version string

// DefaultConfigFile is the configuration file looked up in the package
// directory when none is given explicitly.
const DefaultConfigFile = "neounit.yml"

// Config is the top level configuration structure.
type Config struct {
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
	UnitTest                 UnitTest                 `yaml:"UnitTest"`
}

// Default returns the configuration used when there is no file.
func Default() Config {
	return Config{
		UnitTest: UnitTest{
			GasLimit:     unittest.DefaultGasLimit,
			CoverageFile: coverage.DefaultFileName,
			Workers:      1,
		},
	}
}

// Load attempts to load the config from the given file. Missing fields
// keep their default values.
func Load(fs afero.Fs, path string) (Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config '%s' doesn't exist", path)
		}
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err = decoder.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("config is invalid: %w", err)
	}
	return cfg, nil
}

// Validate checks Config for internal consistency.
func (c Config) Validate() error {
	if err := c.ApplicationConfiguration.Validate(); err != nil {
		return err
	}
	return c.UnitTest.Validate()
}
