// Package deflate implements a from-scratch DEFLATE/zlib decoder (dynamic
// canonical Huffman plus LZ77 back-references) and a stored-blocks-only
// encoder, grounded on the reference decoder/encoder this module's spec
// was distilled from — see DESIGN.md.
package deflate

import (
	"errors"
	"fmt"

	"github.com/rastertools/rastercodec/bitio"
	"github.com/rastertools/rastercodec/huffman"
)

var (
	// ErrBadHeader covers every zlib 2-byte-header validation failure: bad
	// compression method, window size, header checksum, or preset
	// dictionary.
	ErrBadHeader = errors.New("deflate: invalid zlib header")

	// ErrBlockType is returned for a reserved (11) BTYPE value.
	ErrBlockType = errors.New("deflate: invalid block type")

	// ErrStoredLength is returned when a stored block's NLEN does not
	// complement its LEN.
	ErrStoredLength = errors.New("deflate: NLEN does not complement LEN")

	// ErrLengthCode is returned for a length symbol outside the defined
	// length-code table.
	ErrLengthCode = errors.New("deflate: invalid length code")

	// ErrDistanceCode is returned for a distance symbol outside the
	// defined distance-code table.
	ErrDistanceCode = errors.New("deflate: invalid distance code")

	// ErrDistanceTooFar is returned when a back-reference distance exceeds
	// the amount of output produced so far.
	ErrDistanceTooFar = errors.New("deflate: back-reference distance exceeds output size")

	// ErrHuffmanTable is returned when a dynamic block's transmitted
	// code-length table is itself malformed (e.g. a repeat code with no
	// preceding length to repeat).
	ErrHuffmanTable = errors.New("deflate: malformed huffman table")
)

var (
	fixedLitLen *huffman.Table
	fixedDist   *huffman.Table
)

func init() {
	var err error
	fixedLitLen, err = huffman.New(fixedLiteralLengths())
	if err != nil {
		panic("deflate: building fixed literal/length table: " + err.Error())
	}
	fixedDist, err = huffman.New(fixedDistanceLengths())
	if err != nil {
		panic("deflate: building fixed distance table: " + err.Error())
	}
}

// Inflate decompresses a complete zlib stream (2-byte header, one or more
// DEFLATE blocks, 4-byte big-endian Adler-32 trailer). It does not verify
// the trailer against the decompressed data — callers that need that
// should use checksum.Adler32 on the result.
func Inflate(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: stream shorter than the 2-byte header", ErrBadHeader)
	}
	cmf, flg := data[0], data[1]
	if cmf&0x0F != 8 {
		return nil, fmt.Errorf("%w: compression method %d", ErrBadHeader, cmf&0x0F)
	}
	if cmf>>4 > 7 {
		return nil, fmt.Errorf("%w: window size nibble %d", ErrBadHeader, cmf>>4)
	}
	if (uint16(cmf)*256+uint16(flg))%31 != 0 {
		return nil, fmt.Errorf("%w: header checksum", ErrBadHeader)
	}
	if flg&0x20 != 0 {
		return nil, fmt.Errorf("%w: preset dictionary not supported", ErrBadHeader)
	}

	r := bitio.NewLSBReader(data[2:])
	out := make([]byte, 0, len(data)*3)

	for {
		bfinal, err := r.ReadBits(1)
		if err != nil {
			return nil, fmt.Errorf("deflate: reading BFINAL: %w", err)
		}
		btype, err := r.ReadBits(2)
		if err != nil {
			return nil, fmt.Errorf("deflate: reading BTYPE: %w", err)
		}

		switch btype {
		case 0:
			if err := inflateStored(r, &out); err != nil {
				return nil, err
			}
		case 1:
			if err := inflateHuffmanBlock(r, &out, fixedLitLen, fixedDist); err != nil {
				return nil, err
			}
		case 2:
			litLen, dist, err := readDynamicTables(r)
			if err != nil {
				return nil, err
			}
			if err := inflateHuffmanBlock(r, &out, litLen, dist); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %d", ErrBlockType, btype)
		}

		if bfinal == 1 {
			break
		}
	}

	return out, nil
}

func inflateStored(r *bitio.LSBReader, out *[]byte) error {
	r.AlignToByte()
	lenLo, err := r.ReadBits(8)
	if err != nil {
		return fmt.Errorf("deflate: reading LEN: %w", err)
	}
	lenHi, err := r.ReadBits(8)
	if err != nil {
		return fmt.Errorf("deflate: reading LEN: %w", err)
	}
	nlenLo, err := r.ReadBits(8)
	if err != nil {
		return fmt.Errorf("deflate: reading NLEN: %w", err)
	}
	nlenHi, err := r.ReadBits(8)
	if err != nil {
		return fmt.Errorf("deflate: reading NLEN: %w", err)
	}
	length := uint16(lenLo) | uint16(lenHi)<<8
	nlen := uint16(nlenLo) | uint16(nlenHi)<<8
	if nlen != ^length {
		return ErrStoredLength
	}
	for i := 0; i < int(length); i++ {
		b, err := r.ReadBits(8)
		if err != nil {
			return fmt.Errorf("deflate: reading stored byte %d: %w", i, err)
		}
		*out = append(*out, byte(b))
	}
	return nil
}

func inflateHuffmanBlock(r *bitio.LSBReader, out *[]byte, litLen, dist *huffman.Table) error {
	for {
		sym, err := litLen.Decode(r)
		if err != nil {
			return fmt.Errorf("deflate: literal/length huffman: %w", err)
		}
		switch {
		case sym < 256:
			*out = append(*out, byte(sym))
		case sym == 256:
			return nil
		default:
			lenCode := sym - 257
			if lenCode < 0 || lenCode >= len(lengthBase) {
				return fmt.Errorf("%w: symbol %d", ErrLengthCode, sym)
			}
			length := lengthBase[lenCode]
			if lengthExtra[lenCode] > 0 {
				extra, err := r.ReadBits(lengthExtra[lenCode])
				if err != nil {
					return fmt.Errorf("deflate: reading length extra bits: %w", err)
				}
				length += int(extra)
			}

			distSym, err := dist.Decode(r)
			if err != nil {
				return fmt.Errorf("deflate: distance huffman: %w", err)
			}
			if distSym < 0 || distSym >= len(distanceBase) {
				return fmt.Errorf("%w: symbol %d", ErrDistanceCode, distSym)
			}
			distance := distanceBase[distSym]
			if distanceExtra[distSym] > 0 {
				extra, err := r.ReadBits(distanceExtra[distSym])
				if err != nil {
					return fmt.Errorf("deflate: reading distance extra bits: %w", err)
				}
				distance += int(extra)
			}

			if distance > len(*out) {
				return fmt.Errorf("%w: distance %d, output so far %d", ErrDistanceTooFar, distance, len(*out))
			}
			start := len(*out) - distance
			// Forward, byte-at-a-time copy: length can exceed distance
			// (run-length expansion), so this must never become a bulk
			// slice copy of the source region.
			for i := 0; i < length; i++ {
				*out = append(*out, (*out)[start+i])
			}
		}
	}
}

func readDynamicTables(r *bitio.LSBReader) (litLen, dist *huffman.Table, err error) {
	hlit, err := r.ReadBits(5)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: reading HLIT: %w", err)
	}
	hdist, err := r.ReadBits(5)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: reading HDIST: %w", err)
	}
	hclen, err := r.ReadBits(4)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: reading HCLEN: %w", err)
	}

	numLitLen := int(hlit) + 257
	numDist := int(hdist) + 1
	numClen := int(hclen) + 4

	clenLengths := make([]int, 19)
	for i := 0; i < numClen; i++ {
		l, err := r.ReadBits(3)
		if err != nil {
			return nil, nil, fmt.Errorf("deflate: reading code-length code %d: %w", i, err)
		}
		clenLengths[clenOrder[i]] = int(l)
	}

	clenTable, err := huffman.New(clenLengths)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: building code-length table: %w", err)
	}

	allLengths, err := decodeCodeLengths(r, clenTable, numLitLen+numDist)
	if err != nil {
		return nil, nil, err
	}

	litLen, err = huffman.New(allLengths[:numLitLen])
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: building literal/length table: %w", err)
	}
	dist, err = huffman.New(allLengths[numLitLen:])
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: building distance table: %w", err)
	}
	return litLen, dist, nil
}

// decodeCodeLengths reads total code lengths from the code-length alphabet,
// expanding the 16/17/18 repeat symbols. Factored out of readDynamicTables
// so the repeat-code logic can be unit tested on its own, over a
// hand-built LSBReader stream.
func decodeCodeLengths(r *bitio.LSBReader, clenTable *huffman.Table, total int) ([]int, error) {
	lengths := make([]int, 0, total)
	prev := 0
	for len(lengths) < total {
		sym, err := clenTable.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("deflate: code-length huffman: %w", err)
		}
		switch {
		case sym <= 15:
			lengths = append(lengths, sym)
			prev = sym
		case sym == 16:
			if len(lengths) == 0 {
				return nil, fmt.Errorf("%w: repeat code 16 with no preceding length", ErrHuffmanTable)
			}
			extra, err := r.ReadBits(2)
			if err != nil {
				return nil, fmt.Errorf("deflate: reading repeat-16 extra bits: %w", err)
			}
			for i := 0; i < int(extra)+3; i++ {
				lengths = append(lengths, prev)
			}
		case sym == 17:
			extra, err := r.ReadBits(3)
			if err != nil {
				return nil, fmt.Errorf("deflate: reading repeat-17 extra bits: %w", err)
			}
			for i := 0; i < int(extra)+3; i++ {
				lengths = append(lengths, 0)
			}
			prev = 0
		case sym == 18:
			extra, err := r.ReadBits(7)
			if err != nil {
				return nil, fmt.Errorf("deflate: reading repeat-18 extra bits: %w", err)
			}
			for i := 0; i < int(extra)+11; i++ {
				lengths = append(lengths, 0)
			}
			prev = 0
		default:
			return nil, fmt.Errorf("%w: code-length symbol %d", ErrHuffmanTable, sym)
		}
	}
	if len(lengths) > total {
		lengths = lengths[:total]
	}
	return lengths, nil
}
