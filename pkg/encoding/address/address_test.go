package address

import (
	"testing"

	"github.com/nspcc-dev/neounit/pkg/encoding/base58"
	"github.com/nspcc-dev/neounit/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint160DecodeEncodeAddress(t *testing.T) {
	hashes := []util.Uint160{
		{},
		{19: 1},
		util.Uint160FromScript([]byte("hippo-swap")),
	}
	for _, h := range hashes {
		s := Uint160ToString(h)
		require.Equal(t, byte('N'), s[0])
		val, err := StringToUint160(s)
		require.NoError(t, err)
		assert.Equal(t, h, val)
	}
}

func TestStringToUint160Failures(t *testing.T) {
	_, err := StringToUint160("NZ@@")
	require.Error(t, err)

	_, err = StringToUint160(base58.CheckEncode([]byte{Prefix, 1, 2, 3}))
	require.Error(t, err)

	var wrongPrefix = make([]byte, util.Uint160Size+1)
	wrongPrefix[0] = 0x17
	_, err = StringToUint160(base58.CheckEncode(wrongPrefix))
	require.Error(t, err)
}
