package bytecode

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/neounit/pkg/namedaddr"
	"github.com/nspcc-dev/neounit/pkg/util"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultCacheSize is the number of decoded modules kept by the Loader.
const DefaultCacheSize = 256

// Loader reads compiled packages from the file system and links them. It
// caches decoded modules by the hash of their content, so repeated runs over
// the same package only link.
type Loader struct {
	fs    afero.Fs
	log   *zap.Logger
	cache *lru.Cache
}

// NewLoader creates a Loader working on the given file system.
func NewLoader(fs afero.Fs, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	cache, err := lru.New(DefaultCacheSize)
	if err != nil {
		panic(err)
	}
	return &Loader{fs: fs, log: log, cache: cache}
}

// Declarations returns named address placeholders of the package in dir.
func (l *Loader) Declarations(dir string) ([]namedaddr.Declaration, error) {
	m, err := ReadManifest(l.fs, dir)
	if err != nil {
		return nil, err
	}
	return m.Declarations()
}

// Compile loads all modules of the package in dir and links them with the
// given resolution.
func (l *Loader) Compile(dir string, res *namedaddr.Resolution) (*Package, error) {
	manifest, err := ReadManifest(l.fs, dir)
	if err != nil {
		return nil, err
	}
	files, err := l.moduleFiles(dir)
	if err != nil {
		return nil, err
	}
	modules := make([]*Module, 0, len(files))
	for _, file := range files {
		m, err := l.loadModule(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		linked, err := m.Link(res)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		modules = append(modules, linked)
	}
	p, err := NewPackage(manifest.Name, res, modules)
	if err != nil {
		return nil, err
	}
	l.log.Debug("package compiled",
		zap.String("name", p.Name),
		zap.Int("modules", len(modules)))
	return p, nil
}

func (l *Loader) moduleFiles(dir string) ([]string, error) {
	mdir := filepath.Join(dir, ModulesDir)
	infos, err := afero.ReadDir(l.fs, mdir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("can't read modules: %w", err)
	}
	var files []string
	for _, fi := range infos {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), ModuleExt) {
			continue
		}
		files = append(files, filepath.Join(mdir, fi.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (l *Loader) loadModule(file string) (*Module, error) {
	data, err := afero.ReadFile(l.fs, file)
	if err != nil {
		return nil, err
	}
	h := util.Uint160FromScript(data)
	if m, ok := l.cache.Get(h); ok {
		l.log.Debug("module cache hit", zap.String("file", file))
		return m.(*Module), nil
	}
	m, err := ModuleFromBytes(data)
	if err != nil {
		return nil, err
	}
	l.cache.Add(h, m)
	return m, nil
}

// SaveModule writes the module into the package in dir.
func SaveModule(fs afero.Fs, dir string, m *Module) error {
	data, err := m.Bytes()
	if err != nil {
		return err
	}
	mdir := filepath.Join(dir, ModulesDir)
	if err := fs.MkdirAll(mdir, os.ModePerm); err != nil {
		return err
	}
	return afero.WriteFile(fs, filepath.Join(mdir, m.Name+ModuleExt), data, 0644)
}
