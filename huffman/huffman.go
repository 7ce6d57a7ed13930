// Package huffman implements the canonical Huffman decode table shared by
// DEFLATE (dynamic and fixed blocks) and CONTAINER-J (DC/AC coefficient
// tables): build a table from a per-symbol code-length array, then decode
// one symbol at a time from any bit source using the classic first/index
// walk, independent of whether the underlying bits are LSB- or MSB-first
// packed — that distinction lives entirely in the bit reader.
package huffman

import "errors"

var (
	// ErrCodeLength is returned when a code length falls outside [0,16].
	ErrCodeLength = errors.New("huffman: code length out of range")

	// ErrInvalidCode is returned when a decode walk exhausts all 16 levels
	// without matching a symbol — a bit pattern no code is assigned to, in
	// an incomplete or empty table.
	ErrInvalidCode = errors.New("huffman: invalid code")
)

// maxCodeLength is the longest code length either consumer (DEFLATE,
// CONTAINER-J) ever transmits.
const maxCodeLength = 16

// BitSource supplies one bit at a time. Both bitio.LSBReader and
// bitio.MSBReader satisfy it.
type BitSource interface {
	ReadBit() (int, error)
}

// Table is a canonical Huffman decode table built from per-symbol code
// lengths: counts of codes at each length, and symbols sorted first by
// length then by original index — exactly the layout the first/index walk
// needs.
type Table struct {
	counts  [maxCodeLength + 1]int
	symbols []int
}

// New builds a Table from lengths, where lengths[sym] is the code length
// assigned to symbol sym, or 0 if sym is unused. A table built from an
// all-zero lengths slice decodes nothing and always returns ErrInvalidCode,
// which is the desired behavior for an as-yet-unused Huffman table slot.
func New(lengths []int) (*Table, error) {
	t := &Table{}
	for _, l := range lengths {
		if l < 0 || l > maxCodeLength {
			return nil, ErrCodeLength
		}
		if l > 0 {
			t.counts[l]++
		}
	}
	for l := 1; l <= maxCodeLength; l++ {
		for sym, slen := range lengths {
			if slen == l {
				t.symbols = append(t.symbols, sym)
			}
		}
	}
	return t, nil
}

// Decode reads bits from bs one at a time and returns the next symbol.
func (t *Table) Decode(bs BitSource) (int, error) {
	code, first, index := 0, 0, 0
	for l := 1; l <= maxCodeLength; l++ {
		bit, err := bs.ReadBit()
		if err != nil {
			return 0, err
		}
		code |= bit
		count := t.counts[l]
		if code-first < count {
			return t.symbols[index+(code-first)], nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	return 0, ErrInvalidCode
}
