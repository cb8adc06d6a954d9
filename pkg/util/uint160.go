package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // hash160 is sha256+ripemd160 by definition.
)

// Uint160Size is the size of Uint160 in bytes.
const Uint160Size = 20

// Uint160 is a 20 byte long unsigned integer. It's used as an account
// identifier that named addresses are resolved to.
type Uint160 [Uint160Size]uint8

// Uint160DecodeStringBE attempts to decode the given string (in BE
// representation) into a Uint160.
func Uint160DecodeStringBE(s string) (Uint160, error) {
	var u Uint160
	if len(s) != Uint160Size*2 {
		return u, fmt.Errorf("expected string size of %d got %d", Uint160Size*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint160DecodeBytesBE(b)
}

// Uint160DecodeHex decodes a 0x-prefixed (or bare) hex number into a Uint160,
// left-padding it with zeroes, so "0x1" is the same as
// "0x0000000000000000000000000000000000000001".
func Uint160DecodeHex(s string) (Uint160, error) {
	var u Uint160
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) == 0 {
		return u, fmt.Errorf("empty hex string")
	}
	if len(s) > Uint160Size*2 {
		return u, fmt.Errorf("hex string is too long: %d > %d", len(s), Uint160Size*2)
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	copy(u[Uint160Size-len(b):], b)
	return u, nil
}

// Uint160DecodeBytesBE attempts to decode the given bytes (in BE
// representation) into a Uint160.
func Uint160DecodeBytesBE(b []byte) (u Uint160, err error) {
	if len(b) != Uint160Size {
		return u, fmt.Errorf("expected byte size of %d got %d", Uint160Size, len(b))
	}
	copy(u[:], b)
	return
}

// Uint160FromScript returns a Uint160 (hash160: ripemd160 over sha256) of
// the given script.
func Uint160FromScript(script []byte) Uint160 {
	sha := sha256.Sum256(script)
	ripemd := ripemd160.New()
	_, _ = ripemd.Write(sha[:])
	var u Uint160
	copy(u[:], ripemd.Sum(nil))
	return u
}

// BytesBE returns a big-endian byte representation of u.
func (u Uint160) BytesBE() []byte {
	return u[:]
}

// BytesLE returns a little-endian byte representation of u.
func (u Uint160) BytesLE() []byte {
	return ArrayReverse(bytes.Clone(u[:]))
}

// String implements the stringer interface.
func (u Uint160) String() string {
	return hex.EncodeToString(u.BytesBE())
}

// StringShort returns a 0x-prefixed hex with leading zeroes trimmed, the
// form named addresses are usually written in.
func (u Uint160) StringShort() string {
	s := strings.TrimLeft(u.String(), "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s
}

// Equals returns true if both Uint160 values are the same.
func (u Uint160) Equals(other Uint160) bool {
	return u == other
}

// Compare performs three-way comparison of two Uint160s.
func (u Uint160) Compare(other Uint160) int {
	return bytes.Compare(u[:], other[:])
}

// Less returns true if u is less than other.
func (u Uint160) Less(other Uint160) bool {
	return u.Compare(other) < 0
}
