package rjpeg

import (
	"errors"
	"fmt"

	"github.com/rastertools/rastercodec/huffman"
)

var (
	// ErrSOISignature is returned when the stream does not begin with the
	// 0xFFD8 start-of-image marker.
	ErrSOISignature = errors.New("rjpeg: missing SOI marker")

	// ErrUnsupportedPrecision is returned for any SOF0 sample precision
	// other than 8 bits.
	ErrUnsupportedPrecision = errors.New("rjpeg: unsupported sample precision")

	// ErrUnsupportedComponentCount is returned for a component count other
	// than 1 (grayscale) or 3 (YCbCr).
	ErrUnsupportedComponentCount = errors.New("rjpeg: unsupported component count")

	// ErrNoFrame is returned when a SOS segment arrives before any SOF0.
	ErrNoFrame = errors.New("rjpeg: SOS segment before SOF0")

	// ErrNoScan is returned when the stream ends without ever reaching SOS.
	ErrNoScan = errors.New("rjpeg: no SOS marker found")

	// ErrQuantPrecision is returned for a DQT table using 16-bit entries,
	// which this decoder does not support.
	ErrQuantPrecision = errors.New("rjpeg: only 8-bit quantization table entries are supported")

	// ErrTruncatedSegment is returned when a marker segment's declared
	// length runs past the end of the stream.
	ErrTruncatedSegment = errors.New("rjpeg: truncated marker segment")

	// ErrUnknownComponent is returned when SOS references a component id
	// not declared in SOF0.
	ErrUnknownComponent = errors.New("rjpeg: SOS references unknown component id")

	// ErrTableSelector is returned when a quantization, DC, or AC table
	// selector falls outside the 4 slots this decoder supports.
	ErrTableSelector = errors.New("rjpeg: table selector out of range")

	// ErrUnsupportedSampling is returned when a component's H or V sampling
	// factor falls outside the 1-4 range the JPEG spec allows.
	ErrUnsupportedSampling = errors.New("rjpeg: unsupported sampling factor")
)

// Component describes one color component's sampling factors and table
// selectors, plus decode-time state (the running DC predictor).
type Component struct {
	ID                     byte
	H, V                   int
	QuantSelector          byte
	DCSelector, ACSelector byte
	prevDC                 int
}

// QuantTable holds 64 quantizer divisors in natural (row-major) 8x8 order.
type QuantTable struct {
	Values [64]byte
}

// Frame is the result of parsing a CONTAINER-J stream's headers: frame
// geometry, component descriptors, quantization and Huffman tables, and
// the entropy-coded scan data (from just after SOS to end of stream — the
// bit reader's marker detection finds EOI on its own).
type Frame struct {
	Width, Height int
	Components    []*Component
	Quant         [4]*QuantTable
	DCTables      [4]*huffman.Table
	ACTables      [4]*huffman.Table
	Entropy       []byte
}

// ParseSegments walks a CONTAINER-J byte stream's marker segments up to and
// including SOS, returning a Frame ready for entropy decoding.
func ParseSegments(data []byte) (*Frame, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, ErrSOISignature
	}

	f := &Frame{}
	pos := 2
	for pos < len(data) {
		if data[pos] != 0xFF {
			pos++
			continue
		}
		if pos+1 >= len(data) {
			return nil, ErrTruncatedSegment
		}
		marker := data[pos+1]
		pos += 2

		if marker == markerEOI {
			return nil, ErrNoScan
		}
		if marker >= markerRST0 && marker <= markerRST7 {
			continue
		}
		if pos+2 > len(data) {
			return nil, ErrTruncatedSegment
		}
		length := int(data[pos])<<8 | int(data[pos+1])
		if length < 2 || pos+length > len(data) {
			return nil, ErrTruncatedSegment
		}
		payload := data[pos+2 : pos+length]

		switch marker {
		case markerSOF0:
			if err := f.parseSOF0(payload); err != nil {
				return nil, err
			}
		case markerDQT:
			if err := f.parseDQT(payload); err != nil {
				return nil, err
			}
		case markerDHT:
			if err := f.parseDHT(payload); err != nil {
				return nil, err
			}
		case markerSOS:
			if err := f.parseSOS(payload); err != nil {
				return nil, err
			}
			pos += length
			f.Entropy = data[pos:]
			return f, nil
		}
		pos += length
	}
	return nil, ErrNoScan
}

func (f *Frame) parseSOF0(payload []byte) error {
	if len(payload) < 6 {
		return fmt.Errorf("%w: SOF0 too short", ErrTruncatedSegment)
	}
	if payload[0] != 8 {
		return ErrUnsupportedPrecision
	}
	f.Height = int(payload[1])<<8 | int(payload[2])
	f.Width = int(payload[3])<<8 | int(payload[4])
	n := int(payload[5])
	if n != 1 && n != 3 {
		return ErrUnsupportedComponentCount
	}
	if len(payload) < 6+n*3 {
		return fmt.Errorf("%w: SOF0 component list truncated", ErrTruncatedSegment)
	}
	f.Components = make([]*Component, n)
	for i := 0; i < n; i++ {
		base := 6 + i*3
		sampling := payload[base+1]
		quantSelector := payload[base+2]
		if quantSelector > 3 {
			return fmt.Errorf("%w: quantization selector %d", ErrTableSelector, quantSelector)
		}
		h, v := int(sampling>>4), int(sampling&0x0F)
		if h < 1 || h > 4 || v < 1 || v > 4 {
			return fmt.Errorf("%w: sampling factors %dx%d", ErrUnsupportedSampling, h, v)
		}
		f.Components[i] = &Component{
			ID:            payload[base],
			H:             h,
			V:             v,
			QuantSelector: quantSelector,
		}
	}
	return nil
}

func (f *Frame) parseDQT(payload []byte) error {
	pos := 0
	for pos < len(payload) {
		info := payload[pos]
		pos++
		precision := info >> 4
		id := info & 0x0F
		if precision != 0 {
			return ErrQuantPrecision
		}
		if id > 3 || pos+64 > len(payload) {
			return fmt.Errorf("%w: DQT table truncated", ErrTruncatedSegment)
		}
		q := &QuantTable{}
		for i := 0; i < 64; i++ {
			q.Values[zigzag[i]] = payload[pos+i]
		}
		f.Quant[id] = q
		pos += 64
	}
	return nil
}

func (f *Frame) parseDHT(payload []byte) error {
	pos := 0
	for pos < len(payload) {
		info := payload[pos]
		pos++
		class := info >> 4
		id := info & 0x0F
		if id > 3 || pos+16 > len(payload) {
			return fmt.Errorf("%w: DHT table truncated", ErrTruncatedSegment)
		}
		counts := payload[pos : pos+16]
		pos += 16

		total := 0
		for _, c := range counts {
			total += int(c)
		}
		if pos+total > len(payload) {
			return fmt.Errorf("%w: DHT symbol list truncated", ErrTruncatedSegment)
		}
		symbols := payload[pos : pos+total]
		pos += total

		codeLengths := make([]int, 256)
		idx := 0
		for length := 1; length <= 16; length++ {
			n := int(counts[length-1])
			for j := 0; j < n; j++ {
				codeLengths[symbols[idx]] = length
				idx++
			}
		}
		table, err := huffman.New(codeLengths)
		if err != nil {
			return fmt.Errorf("rjpeg: building DHT table: %w", err)
		}
		if class == 0 {
			f.DCTables[id] = table
		} else {
			f.ACTables[id] = table
		}
	}
	return nil
}

func (f *Frame) parseSOS(payload []byte) error {
	if len(f.Components) == 0 {
		return ErrNoFrame
	}
	if len(payload) < 1 {
		return fmt.Errorf("%w: SOS too short", ErrTruncatedSegment)
	}
	ns := int(payload[0])
	if len(payload) < 1+ns*2+3 {
		return fmt.Errorf("%w: SOS component list truncated", ErrTruncatedSegment)
	}
	for i := 0; i < ns; i++ {
		id := payload[1+i*2]
		sel := payload[2+i*2]
		comp := f.componentByID(id)
		if comp == nil {
			return fmt.Errorf("%w: id %d", ErrUnknownComponent, id)
		}
		dcSel, acSel := sel>>4, sel&0x0F
		if dcSel > 3 || acSel > 3 {
			return fmt.Errorf("%w: DC/AC selector %d/%d", ErrTableSelector, dcSel, acSel)
		}
		comp.DCSelector = dcSel
		comp.ACSelector = acSel
	}
	return nil
}

func (f *Frame) componentByID(id byte) *Component {
	for _, c := range f.Components {
		if c.ID == id {
			return c
		}
	}
	return nil
}
