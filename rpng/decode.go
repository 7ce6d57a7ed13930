// Package rpng implements the CONTAINER-L (PNG-shaped) decoder and
// encoder: signature and chunk framing, IHDR validation, scanline
// filtering, and the zlib wrapping of the pixel data — grounded on this
// module's spec and on the teacher's chunk/framing conventions (see
// DESIGN.md).
package rpng

import (
	"errors"
	"fmt"

	"github.com/rastertools/rastercodec/checksum"
	"github.com/rastertools/rastercodec/deflate"
	"github.com/rastertools/rastercodec/internal/xdr"
	"github.com/rastertools/rastercodec/pixel"
)

var (
	// ErrFormatSignature is returned when the stream does not begin with
	// the 8-byte CONTAINER-L signature.
	ErrFormatSignature = errors.New("rpng: invalid signature")

	// ErrUnsupportedFeature is returned for any IHDR combination outside
	// the supported subset (8-bit depth, color type 2 or 6, no
	// compression/filter/interlace variation).
	ErrUnsupportedFeature = errors.New("rpng: unsupported feature")

	// ErrMalformedStream covers chunk framing and pixel-data corruption:
	// truncation, bad chunk length, CRC mismatch, invalid filter type.
	ErrMalformedStream = errors.New("rpng: malformed stream")
)

var signature = [8]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

const (
	chunkIHDR = "IHDR"
	chunkIDAT = "IDAT"
	chunkIEND = "IEND"
)

// Decode parses a complete CONTAINER-L byte stream into a pixel.Buffer.
func Decode(data []byte) (*pixel.Buffer, error) {
	if len(data) < 8 || [8]byte(data[:8]) != signature {
		return nil, ErrFormatSignature
	}

	r := xdr.NewReader(data[8:])

	var width, height int
	var channels int
	haveIHDR := false
	var idat []byte
	haveIDAT := false

	for {
		length, typ, payload, err := readChunk(r)
		if err != nil {
			return nil, err
		}
		_ = length

		switch typ {
		case chunkIHDR:
			if haveIHDR {
				return nil, fmt.Errorf("%w: duplicate IHDR", ErrMalformedStream)
			}
			width, height, channels, err = parseIHDR(payload)
			if err != nil {
				return nil, err
			}
			haveIHDR = true
		case chunkIDAT:
			if !haveIHDR {
				return nil, fmt.Errorf("%w: IDAT before IHDR", ErrMalformedStream)
			}
			idat = append(idat, payload...)
			haveIDAT = true
		case chunkIEND:
			goto done
		}
	}

done:
	if !haveIHDR {
		return nil, fmt.Errorf("%w: no IHDR chunk", ErrMalformedStream)
	}
	if !haveIDAT {
		return nil, fmt.Errorf("%w: no IDAT chunk", ErrMalformedStream)
	}

	raw, err := deflate.Inflate(idat)
	if err != nil {
		return nil, fmt.Errorf("rpng: inflating IDAT: %w", err)
	}

	pixels, err := unfilter(raw, width, height, channels)
	if err != nil {
		return nil, err
	}
	return pixel.New(width, height, channels, pixels)
}

// readChunk reads one chunk's length, type, and payload, verifying its
// CRC-32 over type+payload.
func readChunk(r *xdr.Reader) (length uint32, typ string, payload []byte, err error) {
	if r.Len() < 8 {
		return 0, "", nil, fmt.Errorf("%w: truncated chunk header", ErrMalformedStream)
	}
	length, err = r.ReadUint32()
	if err != nil {
		return 0, "", nil, fmt.Errorf("%w: reading chunk length: %v", ErrMalformedStream, err)
	}
	typeBytes, err := r.ReadBytes(4)
	if err != nil {
		return 0, "", nil, fmt.Errorf("%w: reading chunk type: %v", ErrMalformedStream, err)
	}
	if r.Len() < int(length)+4 {
		return 0, "", nil, fmt.Errorf("%w: chunk length %d exceeds remaining stream", ErrMalformedStream, length)
	}
	payload, err = r.ReadBytes(int(length))
	if err != nil {
		return 0, "", nil, fmt.Errorf("%w: reading chunk payload: %v", ErrMalformedStream, err)
	}
	crc, err := r.ReadUint32()
	if err != nil {
		return 0, "", nil, fmt.Errorf("%w: reading chunk CRC: %v", ErrMalformedStream, err)
	}
	want := checksum.CRC32(append(append([]byte{}, typeBytes...), payload...))
	if crc != want {
		return 0, "", nil, fmt.Errorf("%w: CRC mismatch in %q chunk", ErrMalformedStream, typeBytes)
	}
	return length, string(typeBytes), payload, nil
}

func parseIHDR(payload []byte) (width, height, channels int, err error) {
	if len(payload) != 13 {
		return 0, 0, 0, fmt.Errorf("%w: IHDR length %d, want 13", ErrMalformedStream, len(payload))
	}
	w := xdr.ByteOrder.Uint32(payload[0:4])
	h := xdr.ByteOrder.Uint32(payload[4:8])
	depth := payload[8]
	colorType := payload[9]
	compression := payload[10]
	filter := payload[11]
	interlace := payload[12]

	if depth != 8 {
		return 0, 0, 0, fmt.Errorf("%w: bit depth %d", ErrUnsupportedFeature, depth)
	}
	switch colorType {
	case 2:
		channels = 3
	case 6:
		channels = 4
	default:
		return 0, 0, 0, fmt.Errorf("%w: color type %d", ErrUnsupportedFeature, colorType)
	}
	if compression != 0 {
		return 0, 0, 0, fmt.Errorf("%w: compression method %d", ErrUnsupportedFeature, compression)
	}
	if filter != 0 {
		return 0, 0, 0, fmt.Errorf("%w: filter method %d", ErrUnsupportedFeature, filter)
	}
	if interlace != 0 {
		return 0, 0, 0, fmt.Errorf("%w: interlacing", ErrUnsupportedFeature)
	}
	if w == 0 || h == 0 {
		return 0, 0, 0, fmt.Errorf("%w: zero width or height", ErrMalformedStream)
	}
	return int(w), int(h), channels, nil
}

// unfilter reconstructs raw's per-scanline filtering into a flat,
// interleaved pixel buffer.
func unfilter(raw []byte, width, height, channels int) ([]byte, error) {
	bpp := channels
	stride := width * bpp
	want := height * (1 + stride)
	if len(raw) != want {
		return nil, fmt.Errorf("%w: decompressed size %d, want %d", ErrMalformedStream, len(raw), want)
	}

	out := make([]byte, height*stride)
	var prev []byte
	pos := 0
	for y := 0; y < height; y++ {
		filterType := raw[pos]
		pos++
		line := out[y*stride : (y+1)*stride]
		copy(line, raw[pos:pos+stride])
		pos += stride
		if err := unfilterScanline(filterType, line, prev, bpp); err != nil {
			return nil, err
		}
		prev = line
	}
	return out, nil
}
