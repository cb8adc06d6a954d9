package bytecode

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/nspcc-dev/neounit/pkg/namedaddr"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	// ManifestFile is the package manifest file name.
	ManifestFile = "package.yml"
	// ModulesDir is the directory of compiled modules relative to the
	// package root.
	ModulesDir = "build/modules"
	// ModuleExt is the compiled module file extension.
	ModuleExt = ".nvm"
)

// ErrPackageNotFound is returned when there is no manifest in the given
// directory.
var ErrPackageNotFound = errors.New("package not found")

// Manifest is the package description file.
type Manifest struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
	// Addresses maps named address placeholders to their values, either an
	// address or namedaddr.Unassigned.
	Addresses map[string]string `yaml:"addresses"`
}

// ReadManifest reads and decodes the package manifest in dir.
func ReadManifest(fs afero.Fs, dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, dir)
		}
		return nil, err
	}
	m := new(Manifest)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%s: package name is missing", path)
	}
	return m, nil
}

// Save writes the manifest into dir.
func (m *Manifest) Save(fs afero.Fs, dir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	return afero.WriteFile(fs, filepath.Join(dir, ManifestFile), data, 0644)
}

// Declarations returns named address placeholders of the package sorted by
// name.
func (m *Manifest) Declarations() ([]namedaddr.Declaration, error) {
	names := make([]string, 0, len(m.Addresses))
	for name := range m.Addresses {
		names = append(names, name)
	}
	sort.Strings(names)

	decls := make([]namedaddr.Declaration, 0, len(names))
	for _, name := range names {
		d, err := namedaddr.ParseDeclaration(name, m.Addresses[name])
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return decls, nil
}
