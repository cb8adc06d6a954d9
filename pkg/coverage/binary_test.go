package coverage

import (
	"math/rand"
	"os"
	"testing"

	"github.com/nspcc-dev/neounit/pkg/bytecode"
	"github.com/nspcc-dev/neounit/pkg/io"
	"github.com/nspcc-dev/neounit/pkg/util"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestBinaryRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	maps := []*Map{NewMap()}
	for i := 0; i < 20; i++ {
		maps = append(maps, randMap(r))
	}
	for _, m := range maps {
		for _, compress := range []bool{false, true} {
			data, err := m.Bytes(compress)
			require.NoError(t, err)
			actual, err := FromBytes(data)
			require.NoError(t, err)
			require.Equal(t, m, actual)

			again, err := actual.Bytes(compress)
			require.NoError(t, err)
			require.Equal(t, data, again)
		}
	}
}

func TestBinaryDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	a, b := randMap(r), randMap(r)
	ab, err := merged(a, b).Bytes(true)
	require.NoError(t, err)
	ba, err := merged(b, a).Bytes(true)
	require.NoError(t, err)
	require.Equal(t, ab, ba)
}

// rawFile makes a file with the given body.
func rawFile(t *testing.T, f func(w *io.BinWriter)) []byte {
	buf := io.NewBufBinWriter()
	buf.WriteBytes([]byte(fileMagic))
	buf.WriteB(FileVersion)
	buf.WriteB(0)
	f(buf.BinWriter)
	require.NoError(t, buf.Err)
	return buf.Bytes()
}

func writeFunction(w *io.BinWriter, name string, size int, instr, covered []uint64) {
	w.WriteString(name)
	w.WriteVarUint(uint64(size))
	w.WriteVarUint(uint64(len(instr)))
	for _, word := range instr {
		w.WriteU64LE(word)
	}
	w.WriteVarUint(uint64(len(covered)))
	for _, word := range covered {
		w.WriteU64LE(word)
	}
}

func TestBinaryCorrupt(t *testing.T) {
	good, err := NewMap().Bytes(false)
	require.NoError(t, err)

	module := func(w *io.BinWriter, addr byte, name string) {
		w.WriteBytes(util.Uint160{19: addr}.BytesBE())
		w.WriteString(name)
	}
	testCases := map[string][]byte{
		"empty":     {},
		"bad magic": append([]byte("NCOX"), good[4:]...),
		"short":     good[:5],
		"flags":     append(append([]byte{}, good[:5]...), 0x80, 0),
		"trailing":  append(append([]byte{}, good...), 0),
		"truncated": rawFile(t, func(w *io.BinWriter) { w.WriteVarUint(1) }),
		"bad zstd":  append(append([]byte{}, good[:5]...), flagZstd, 1, 2, 3),
		"unsorted modules": rawFile(t, func(w *io.BinWriter) {
			w.WriteVarUint(2)
			module(w, 2, "a")
			w.WriteVarUint(0)
			module(w, 1, "b")
			w.WriteVarUint(0)
		}),
		"duplicate modules": rawFile(t, func(w *io.BinWriter) {
			w.WriteVarUint(2)
			module(w, 1, "a")
			w.WriteVarUint(0)
			module(w, 1, "a")
			w.WriteVarUint(0)
		}),
		"unsorted functions": rawFile(t, func(w *io.BinWriter) {
			w.WriteVarUint(1)
			module(w, 1, "a")
			w.WriteVarUint(2)
			writeFunction(w, "g", 1, []uint64{1}, []uint64{0})
			writeFunction(w, "f", 1, []uint64{1}, []uint64{0})
		}),
		"word count": rawFile(t, func(w *io.BinWriter) {
			w.WriteVarUint(1)
			module(w, 1, "a")
			w.WriteVarUint(1)
			writeFunction(w, "f", 65, []uint64{1}, []uint64{0})
		}),
		"not a subset": rawFile(t, func(w *io.BinWriter) {
			w.WriteVarUint(1)
			module(w, 1, "a")
			w.WriteVarUint(1)
			writeFunction(w, "f", 3, []uint64{1}, []uint64{2})
		}),
		"long module count": rawFile(t, func(w *io.BinWriter) {
			w.WriteBytes([]byte{0xfd, 0x00, 0x00})
		}),
		"long function size": rawFile(t, func(w *io.BinWriter) {
			w.WriteVarUint(1)
			module(w, 1, "a")
			w.WriteVarUint(1)
			w.WriteString("f")
			w.WriteBytes([]byte{0xfe, 0x03, 0x00, 0x00, 0x00})
		}),
		"beyond size": rawFile(t, func(w *io.BinWriter) {
			w.WriteVarUint(1)
			module(w, 1, "a")
			w.WriteVarUint(1)
			writeFunction(w, "f", 3, []uint64{8}, []uint64{0})
		}),
	}
	for name, data := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := FromBytes(data)
			require.ErrorIs(t, err, ErrCorruptFile)
		})
	}

	t.Run("version", func(t *testing.T) {
		bad := append([]byte{}, good...)
		bad[4] = FileVersion + 1
		_, err := FromBytes(bad)
		require.ErrorIs(t, err, ErrUnsupportedVersion)
	})
	t.Run("valid raw", func(t *testing.T) {
		m, err := FromBytes(rawFile(t, func(w *io.BinWriter) {
			w.WriteVarUint(1)
			module(w, 1, "a")
			w.WriteVarUint(1)
			writeFunction(w, "f", 3, []uint64{5}, []uint64{4})
		}))
		require.NoError(t, err)
		c, total, ok := m.Ratio(bytecode.ModuleID{Address: util.Uint160{19: 1}, Name: "a"}, "f")
		require.True(t, ok)
		require.Equal(t, 1, c)
		require.Equal(t, 2, total)
	})
}

func TestFiles(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := LoadFile(fs, "/cov/"+DefaultFileName)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, os.ErrNotExist)

	m := NewMap()
	m.AddPackage(testPackage(t))
	m.Apply([]Event{{Module: testID, Function: "main", Offset: 1}})
	require.NoError(t, m.SaveFile(fs, "/cov/"+DefaultFileName, true))

	actual, err := LoadFile(fs, "/cov/"+DefaultFileName)
	require.NoError(t, err)
	require.Equal(t, m, actual)

	ok, err := afero.Exists(fs, "/cov/"+DefaultFileName+".tmp")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, afero.WriteFile(fs, "/cov/bad", []byte("garbage"), 0644))
	_, err = LoadFile(fs, "/cov/bad")
	require.ErrorIs(t, err, ErrCorruptFile)
}
