package coverage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/io"
	"github.com/nspcc-dev/neounit/pkg/util"
	"github.com/nspcc-dev/neounit/pkg/util/bitfield"
	"github.com/spf13/afero"
)

const (
	// DefaultFileName is the coverage file name used when nothing else is
	// specified.
	DefaultFileName = ".coverage_map.nvcov"

	// FileVersion is the current coverage file format version.
	FileVersion byte = 1

	fileMagic  = "NCOV"
	headerSize = len(fileMagic) + 2

	flagZstd byte = 1 << 0

	maxDecompressedSize = 64 << 20
	maxWords            = (bytecode.MaxCodeSize + 63) / 64
)

var (
	// ErrNotFound is returned when the coverage file doesn't exist.
	ErrNotFound = fmt.Errorf("coverage file not found: %w", os.ErrNotExist)
	// ErrCorruptFile is returned for files that can't be decoded.
	ErrCorruptFile = errors.New("corrupt coverage file")
	// ErrUnsupportedVersion is returned for files of unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported coverage file version")
)

// EncodeBinary implements io.Serializable. Modules and functions are
// written in ascending order, so equal maps produce equal bytes.
func (m *Map) EncodeBinary(w *io.BinWriter) {
	ids := m.Modules()
	w.WriteVarUint(uint64(len(ids)))
	for _, id := range ids {
		w.WriteBytes(id.Address.BytesBE())
		w.WriteString(id.Name)
		names := m.Functions(id)
		w.WriteVarUint(uint64(len(names)))
		for _, name := range names {
			f := m.modules[id][name]
			w.WriteString(name)
			w.WriteVarUint(uint64(f.Size))
			writeWords(w, f.Instructions)
			writeWords(w, f.Covered)
		}
	}
}

// DecodeBinary implements io.Serializable.
func (m *Map) DecodeBinary(r *io.BinReader) {
	m.modules = make(map[bytecode.ModuleID]map[string]*FunctionCoverage)
	n := r.ReadLen()
	var (
		prev    bytecode.ModuleID
		addrBuf = make([]byte, util.Uint160Size)
	)
	for i := 0; i < n && r.Err == nil; i++ {
		r.ReadBytes(addrBuf)
		name := r.ReadString(bytecode.MaxNameLen)
		if r.Err != nil {
			return
		}
		addr, err := util.Uint160DecodeBytesBE(addrBuf)
		if err != nil {
			r.Err = err
			return
		}
		id := bytecode.ModuleID{Address: addr, Name: name}
		if i > 0 && prev.Compare(id) >= 0 {
			r.Err = fmt.Errorf("%w: module %s is out of order", ErrCorruptFile, id)
			return
		}
		prev = id
		fns := decodeFunctions(r, id)
		if r.Err != nil {
			return
		}
		m.modules[id] = fns
	}
}

func decodeFunctions(r *io.BinReader, id bytecode.ModuleID) map[string]*FunctionCoverage {
	n := r.ReadLen(bytecode.MaxFunctions)
	fns := make(map[string]*FunctionCoverage, n)
	var prev string
	for i := 0; i < n; i++ {
		name := r.ReadString(bytecode.MaxNameLen)
		size := r.ReadVarUint()
		if r.Err != nil {
			return nil
		}
		if i > 0 && prev >= name {
			r.Err = fmt.Errorf("%w: %s::%s is out of order", ErrCorruptFile, id, name)
			return nil
		}
		prev = name
		if size > bytecode.MaxCodeSize {
			r.Err = fmt.Errorf("%w: %s::%s is too big", ErrCorruptFile, id, name)
			return nil
		}
		f := &FunctionCoverage{
			Size:         int(size),
			Instructions: readWords(r, int(size)),
			Covered:      readWords(r, int(size)),
		}
		if r.Err != nil {
			return nil
		}
		if !f.Covered.IsSubset(f.Instructions) {
			r.Err = fmt.Errorf("%w: %s::%s covers non-instructions", ErrCorruptFile, id, name)
			return nil
		}
		beyond := false
		f.Instructions.ForEach(func(off int) {
			if off >= f.Size {
				beyond = true
			}
		})
		if beyond {
			r.Err = fmt.Errorf("%w: %s::%s has instructions beyond its size", ErrCorruptFile, id, name)
			return nil
		}
		fns[name] = f
	}
	return fns
}

func writeWords(w *io.BinWriter, f bitfield.Field) {
	w.WriteVarUint(uint64(len(f)))
	for _, word := range f {
		w.WriteU64LE(word)
	}
}

func readWords(r *io.BinReader, size int) bitfield.Field {
	n := r.ReadLen(maxWords)
	if r.Err != nil {
		return nil
	}
	if n != bitfield.Words(size) {
		r.Err = fmt.Errorf("%w: %d words for %d bits", ErrCorruptFile, n, size)
		return nil
	}
	f := bitfield.New(size)
	for i := range f {
		f[i] = r.ReadU64LE()
	}
	return f
}

// Bytes returns the file representation of the map.
func (m *Map) Bytes(compress bool) ([]byte, error) {
	w := io.NewBufBinWriter()
	m.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	body := w.Bytes()

	var flags byte
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		body = enc.EncodeAll(body, nil)
		if err := enc.Close(); err != nil {
			return nil, err
		}
		flags |= flagZstd
	}

	res := make([]byte, 0, headerSize+len(body))
	res = append(res, fileMagic...)
	res = append(res, FileVersion, flags)
	return append(res, body...), nil
}

// FromBytes decodes the file representation of a map.
func FromBytes(b []byte) (*Map, error) {
	if len(b) < headerSize || string(b[:len(fileMagic)]) != fileMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptFile)
	}
	if v := b[len(fileMagic)]; v != FileVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	flags := b[len(fileMagic)+1]
	if flags&^flagZstd != 0 {
		return nil, fmt.Errorf("%w: unknown flags %08b", ErrCorruptFile, flags)
	}
	body := b[headerSize:]
	if flags&flagZstd != 0 {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxDecompressedSize))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		body, err = dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
		}
	}

	m := NewMap()
	r := io.NewBinReaderFromBuf(body)
	m.DecodeBinary(r)
	if r.Err != nil {
		if errors.Is(r.Err, ErrCorruptFile) {
			return nil, r.Err
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, r.Err)
	}
	r.ReadB()
	if r.Err == nil {
		return nil, fmt.Errorf("%w: trailing data", ErrCorruptFile)
	}
	return m, nil
}

// LoadFile reads the map from the file.
func LoadFile(fs afero.Fs, path string) (*Map, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	m, err := FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// SaveFile writes the map to the file replacing it atomically.
func (m *Map) SaveFile(fs afero.Fs, path string, compress bool) error {
	data, err := m.Bytes(compress)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := fs.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		return err
	}
	return fs.Rename(tmp, path)
}
