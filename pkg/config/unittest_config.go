package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nspcc-dev/neounit/pkg/namedaddr"
	"github.com/nspcc-dev/neounit/pkg/unittest"
)

// UnitTest contains test runner settings.
type UnitTest struct {
	GasLimit         int64  `yaml:"GasLimit"`
	Coverage         bool   `yaml:"Coverage"`
	CoverageFile     string `yaml:"CoverageFile"`
	MergeCoverage    bool   `yaml:"MergeCoverage"`
	CompressCoverage bool   `yaml:"CompressCoverage"`
	Filter           string `yaml:"Filter"`
	Workers          int    `yaml:"Workers"`
	// Addresses are named address bindings, name to address.
	Addresses map[string]string `yaml:"Addresses"`
}

// Validate checks UnitTest for internal consistency.
func (u UnitTest) Validate() error {
	if u.GasLimit <= 0 {
		return fmt.Errorf("GasLimit must be positive, got %d", u.GasLimit)
	}
	if u.Workers < 0 {
		return fmt.Errorf("Workers can't be negative, got %d", u.Workers)
	}
	if u.Coverage && u.CoverageFile == "" {
		return errors.New("CoverageFile is required for Coverage")
	}
	_, err := u.Bindings()
	return err
}

// Bindings returns parsed named address bindings sorted by name.
func (u UnitTest) Bindings() ([]namedaddr.NamedAddress, error) {
	names := make([]string, 0, len(u.Addresses))
	for name := range u.Addresses {
		names = append(names, name)
	}
	sort.Strings(names)

	res := make([]namedaddr.NamedAddress, 0, len(names))
	for _, name := range names {
		addr, err := namedaddr.ParseAddress(u.Addresses[name])
		if err != nil {
			return nil, fmt.Errorf("address %s: %w", name, err)
		}
		res = append(res, namedaddr.NamedAddress{Name: name, Address: addr})
	}
	return res, nil
}

// RunnerConfig converts UnitTest into the test runner configuration.
func (u UnitTest) RunnerConfig() unittest.Config {
	return unittest.Config{
		GasLimit:         u.GasLimit,
		Coverage:         u.Coverage,
		CoverageFile:     u.CoverageFile,
		MergeCoverage:    u.MergeCoverage,
		CompressCoverage: u.CompressCoverage,
		Filter:           u.Filter,
		Workers:          u.Workers,
	}
}
