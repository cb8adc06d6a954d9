package opcode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// ErrTruncated is returned when an instruction operand runs past the end of
// the code.
var ErrTruncated = errors.New("truncated instruction")

// Decode returns the opcode at the given offset of code, its operand and the
// offset of the next instruction.
func Decode(code []byte, offset int) (Opcode, []byte, int, error) {
	if offset < 0 || offset >= len(code) {
		return 0, nil, 0, fmt.Errorf("offset %d is out of code bounds", offset)
	}
	op := Opcode(code[offset])
	if !IsValid(op) {
		return op, nil, 0, fmt.Errorf("invalid opcode %s at %d", op, offset)
	}
	next := offset + 1
	n := OperandSize(op)
	if next+n > len(code) {
		return op, nil, 0, fmt.Errorf("%w: %s at %d", ErrTruncated, op, offset)
	}
	if op == PUSHDATA1 {
		n += int(code[next])
		if next+n > len(code) {
			return op, nil, 0, fmt.Errorf("%w: %s at %d", ErrTruncated, op, offset)
		}
		return op, code[next+1 : next+n], next + n, nil
	}
	return op, code[next : next+n], next + n, nil
}

// Offsets returns the offsets of all instructions in the code in ascending
// order. It fails if code can't be decoded completely or if a jump refers to
// something that is not an instruction.
func Offsets(code []byte) ([]int, error) {
	var (
		offsets []int
		targets []int
	)
	for ip := 0; ip < len(code); {
		op, param, next, err := Decode(code, ip)
		if err != nil {
			return nil, err
		}
		if IsJump(op) {
			targets = append(targets, int(binary.LittleEndian.Uint16(param)))
		}
		offsets = append(offsets, ip)
		ip = next
	}
	for _, t := range targets {
		if !contains(offsets, t) {
			return nil, fmt.Errorf("jump to %d is not an instruction boundary", t)
		}
	}
	return offsets, nil
}

func contains(sorted []int, v int) bool {
	i := sort.SearchInts(sorted, v)
	return i < len(sorted) && sorted[i] == v
}
