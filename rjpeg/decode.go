package rjpeg

import (
	"errors"
	"fmt"
	"math"

	"github.com/rastertools/rastercodec/bitio"
	"github.com/rastertools/rastercodec/huffman"
	"github.com/rastertools/rastercodec/pixel"
)

var (
	// ErrMissingQuantTable is returned when a component selects a
	// quantization table slot no DQT segment ever filled in.
	ErrMissingQuantTable = errors.New("rjpeg: component references undefined quantization table")

	// ErrMissingHuffman is returned when a component selects a DC or AC
	// Huffman table slot no DHT segment ever filled in.
	ErrMissingHuffman = errors.New("rjpeg: component references undefined huffman table")

	// ErrBlockOverflow is returned when an AC run-length code would place a
	// coefficient past index 63 of its block.
	ErrBlockOverflow = errors.New("rjpeg: AC run-length overflowed block")

	// ErrEntropyTruncated is returned when the entropy-coded segment ends
	// before a block's coefficients are fully decoded.
	ErrEntropyTruncated = errors.New("rjpeg: entropy-coded segment ended early")
)

// Decode parses a complete CONTAINER-J byte stream and returns the decoded
// image as an 8-bit RGB pixel.Buffer. CONTAINER-J never carries an alpha
// channel (spec 4.H), so the result is always 3-channel.
func Decode(data []byte) (*pixel.Buffer, error) {
	frame, err := ParseSegments(data)
	if err != nil {
		return nil, err
	}

	maxH, maxV := 1, 1
	for _, comp := range frame.Components {
		if comp.H > maxH {
			maxH = comp.H
		}
		if comp.V > maxV {
			maxV = comp.V
		}
	}

	mcuWidth := 8 * maxH
	mcuHeight := 8 * maxV
	mcusAcross := (frame.Width + mcuWidth - 1) / mcuWidth
	mcusDown := (frame.Height + mcuHeight - 1) / mcuHeight

	planes := make([][]byte, len(frame.Components))
	stride := make([]int, len(frame.Components))
	for i, comp := range frame.Components {
		w := mcusAcross * comp.H * 8
		h := mcusDown * comp.V * 8
		planes[i] = make([]byte, w*h)
		stride[i] = w
	}

	r := bitio.NewMSBReader(frame.Entropy)

	for my := 0; my < mcusDown; my++ {
		for mx := 0; mx < mcusAcross; mx++ {
			for ci, comp := range frame.Components {
				quant := frame.Quant[comp.QuantSelector]
				if quant == nil {
					return nil, ErrMissingQuantTable
				}
				dcTable := frame.DCTables[comp.DCSelector]
				acTable := frame.ACTables[comp.ACSelector]
				if dcTable == nil || acTable == nil {
					return nil, ErrMissingHuffman
				}
				for by := 0; by < comp.V; by++ {
					for bx := 0; bx < comp.H; bx++ {
						coeff, err := decodeBlock(r, comp, dcTable, acTable, quant)
						if err != nil {
							return nil, err
						}
						spatial := inverseDCT(coeff)
						ox := (mx*comp.H + bx) * 8
						oy := (my*comp.V + by) * 8
						for y := 0; y < 8; y++ {
							for x := 0; x < 8; x++ {
								planes[ci][(oy+y)*stride[ci]+ox+x] = clampByte(spatial[y*8+x] + 128)
							}
						}
					}
				}
			}
		}
	}

	return assemblePixels(frame, planes, stride, maxH, maxV)
}

// decodeBlock decodes one 8x8 block's worth of entropy-coded coefficients
// for comp, dequantizing them in place via quant, and returns the result in
// natural (row-major) order ready for inverseDCT.
func decodeBlock(r *bitio.MSBReader, comp *Component, dcTable, acTable *huffman.Table, quant *QuantTable) ([64]float64, error) {
	var coeff [64]int

	size, err := dcTable.Decode(r)
	if err != nil {
		return [64]float64{}, fmt.Errorf("rjpeg: DC huffman: %w", err)
	}
	diff := 0
	if size > 0 {
		bits, err := r.ReadBits(size)
		if err != nil {
			return [64]float64{}, fmt.Errorf("%w: DC magnitude bits", ErrEntropyTruncated)
		}
		diff = extend(int(bits), size)
	}
	comp.prevDC += diff
	coeff[0] = comp.prevDC * int(quant.Values[0])

	k := 1
	for k < 64 {
		rs, err := acTable.Decode(r)
		if err != nil {
			return [64]float64{}, fmt.Errorf("rjpeg: AC huffman: %w", err)
		}
		if rs == 0x00 { // EOB: all remaining coefficients are zero
			break
		}
		if rs == 0xF0 { // ZRL: 16 zero coefficients, no magnitude follows
			k += 16
			continue
		}
		run := rs >> 4
		magSize := rs & 0x0F
		k += run
		if k >= 64 {
			return [64]float64{}, fmt.Errorf("%w: run %d at index %d", ErrBlockOverflow, run, k-run)
		}
		bits, err := r.ReadBits(magSize)
		if err != nil {
			return [64]float64{}, fmt.Errorf("%w: AC magnitude bits", ErrEntropyTruncated)
		}
		value := extend(int(bits), magSize)
		pos := zigzag[k]
		coeff[pos] = value * int(quant.Values[pos])
		k++
	}

	var out [64]float64
	for i, v := range coeff {
		out[i] = float64(v)
	}
	return out, nil
}

// extend implements the JPEG "EXTEND" procedure (Annex F.2.2.1): recovers
// the signed value of a size-bit magnitude code from its unsigned bit
// pattern v.
func extend(v, size int) int {
	if size == 0 {
		return 0
	}
	vt := 1 << (size - 1)
	if v < vt {
		return v - (1 << size) + 1
	}
	return v
}

func clampByte(v float64) byte {
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return byte(r)
}

// assemblePixels upsamples each component plane (nearest-neighbor, per its
// sampling factors relative to maxH/maxV) and converts to interleaved RGB,
// cropping to the frame's true (pre-MCU-padding) dimensions.
func assemblePixels(frame *Frame, planes [][]byte, stride []int, maxH, maxV int) (*pixel.Buffer, error) {
	out := make([]byte, frame.Width*frame.Height*3)

	if len(frame.Components) == 1 {
		comp := frame.Components[0]
		for y := 0; y < frame.Height; y++ {
			sy := y * comp.V / maxV
			for x := 0; x < frame.Width; x++ {
				sx := x * comp.H / maxH
				v := planes[0][sy*stride[0]+sx]
				o := (y*frame.Width + x) * 3
				out[o], out[o+1], out[o+2] = v, v, v
			}
		}
		return pixel.New(frame.Width, frame.Height, 3, out)
	}

	yComp, cbComp, crComp := frame.Components[0], frame.Components[1], frame.Components[2]
	for y := 0; y < frame.Height; y++ {
		ySy := y * yComp.V / maxV
		cbSy := y * cbComp.V / maxV
		crSy := y * crComp.V / maxV
		for x := 0; x < frame.Width; x++ {
			ySx := x * yComp.H / maxH
			cbSx := x * cbComp.H / maxH
			crSx := x * crComp.H / maxH
			yy := float64(planes[0][ySy*stride[0]+ySx])
			cb := float64(planes[1][cbSy*stride[1]+cbSx]) - 128
			cr := float64(planes[2][crSy*stride[2]+crSx]) - 128
			r, g, b := ycbcrToRGB(yy, cb, cr)
			o := (y*frame.Width + x) * 3
			out[o], out[o+1], out[o+2] = r, g, b
		}
	}
	return pixel.New(frame.Width, frame.Height, 3, out)
}

func ycbcrToRGB(y, cb, cr float64) (byte, byte, byte) {
	r := y + 1.402*cr
	g := y - 0.344136*cb - 0.714136*cr
	b := y + 1.772*cb
	return clampByte(r), clampByte(g), clampByte(b)
}
