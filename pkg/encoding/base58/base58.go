// Package base58 wraps generic base58 encoder with additional checksum
// functions.
package base58

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
)

// ErrChecksum is returned when the checksum of the decoded data doesn't match.
var ErrChecksum = errors.New("checksum mismatch")

// CheckDecode implements base58-encoded string decoding with a hash-based
// checksum check.
func CheckDecode(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}

	if len(b) < 5 {
		return nil, errors.New("invalid base-58 check string: missing checksum")
	}

	if !bytes.Equal(checksum(b[:len(b)-4]), b[len(b)-4:]) {
		return nil, ErrChecksum
	}

	return b[:len(b)-4], nil
}

// CheckEncode encodes the given byte slice into a base58 string, appending
// a four-byte checksum to it.
func CheckEncode(b []byte) string {
	b = append(bytes.Clone(b), checksum(b)...)
	return base58.Encode(b)
}

func checksum(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:4]
}
