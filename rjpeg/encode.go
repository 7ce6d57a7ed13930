package rjpeg

import (
	"errors"
	"math"

	"github.com/rastertools/rastercodec/bitio"
	"github.com/rastertools/rastercodec/pixel"
)

// ErrQualityRange is returned for a quality value outside [1,100].
var ErrQualityRange = errors.New("rjpeg: quality must be between 1 and 100")

// encSym is one entry of a canonical Huffman encode table: the code's bit
// pattern in the low length bits of code.
type encSym struct {
	code   uint32
	length int
}

var (
	dcLumaEncode   map[byte]encSym
	acLumaEncode   map[byte]encSym
	dcChromaEncode map[byte]encSym
	acChromaEncode map[byte]encSym
)

func init() {
	dcLumaEncode = buildEncodeTable(stdDCLumaBits, stdDCLumaVal)
	acLumaEncode = buildEncodeTable(stdACLumaBits, stdACLumaVal)
	dcChromaEncode = buildEncodeTable(stdDCChromaBits, stdDCChromaVal)
	acChromaEncode = buildEncodeTable(stdACChromaBits, stdACChromaVal)
}

// buildEncodeTable assigns canonical Huffman codes to vals in the order
// Annex C specifies: ascending code length, then transmission order within
// a length — the same assignment the decoder's DHT-driven huffman.New
// produces from these tables' bits/vals pair.
func buildEncodeTable(bits [16]byte, vals []byte) map[byte]encSym {
	table := make(map[byte]encSym, len(vals))
	code := uint32(0)
	idx := 0
	for length := 1; length <= 16; length++ {
		n := int(bits[length-1])
		for i := 0; i < n; i++ {
			table[vals[idx]] = encSym{code: code, length: length}
			idx++
			code++
		}
		code <<= 1
	}
	return table
}

// Encode produces a complete CONTAINER-J byte stream for buf at the given
// quality (1-100). Alpha is dropped if present (spec 4.H); chroma is never
// subsampled, so every component uses 1x1 sampling (spec 4.Y).
func Encode(buf *pixel.Buffer, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		return nil, ErrQualityRange
	}

	lumaQuant := scaleQuantTable(baseLuma, quality)
	chromaQuant := scaleQuantTable(baseChroma, quality)

	w := bitio.NewMSBWriter()
	writeHeaders(w, buf.Width, buf.Height, lumaQuant, chromaQuant)

	mcusAcross := (buf.Width + 7) / 8
	mcusDown := (buf.Height + 7) / 8

	var prevDCY, prevDCCb, prevDCCr int
	w.EnableStuffing(true)

	for my := 0; my < mcusDown; my++ {
		for mx := 0; mx < mcusAcross; mx++ {
			yBlock, cbBlock, crBlock := extractBlock(buf, mx*8, my*8)

			yZZ := toZigZag(quantizeBlock(forwardDCT(levelShift(yBlock)), lumaQuant))
			encodeBlock(w, yZZ, &prevDCY, dcLumaEncode, acLumaEncode)

			cbZZ := toZigZag(quantizeBlock(forwardDCT(levelShift(cbBlock)), chromaQuant))
			encodeBlock(w, cbZZ, &prevDCCb, dcChromaEncode, acChromaEncode)
			crZZ := toZigZag(quantizeBlock(forwardDCT(levelShift(crBlock)), chromaQuant))
			encodeBlock(w, crZZ, &prevDCCr, dcChromaEncode, acChromaEncode)
		}
	}

	w.EnableStuffing(false)
	w.WriteMarker(markerEOI)
	return w.Bytes(), nil
}

func writeHeaders(w *bitio.MSBWriter, width, height int, lumaQuant, chromaQuant QuantTable) {
	w.WriteMarker(markerSOI)
	writeAPP0(w)

	writeQuantTable(w, 0, lumaQuant)
	writeQuantTable(w, 1, chromaQuant)

	w.WriteMarker(markerSOF0)
	w.WriteBits(17, 16) // length: self(2)+precision(1)+height(2)+width(2)+count(1)+3*component(3)
	w.WriteBits(8, 8)   // precision
	w.WriteBits(uint32(height), 16)
	w.WriteBits(uint32(width), 16)
	w.WriteBits(3, 8) // Y, Cb, Cr
	writeFrameComponent(w, 1, 0)
	writeFrameComponent(w, 2, 1)
	writeFrameComponent(w, 3, 1)

	writeDHT(w, 0, 0, stdDCLumaBits, stdDCLumaVal)
	writeDHT(w, 1, 0, stdACLumaBits, stdACLumaVal)
	writeDHT(w, 0, 1, stdDCChromaBits, stdDCChromaVal)
	writeDHT(w, 1, 1, stdACChromaBits, stdACChromaVal)

	w.WriteMarker(markerSOS)
	w.WriteBits(12, 16) // length: self(2)+count(1)+3*(id+selector)(6)+3 scan parameters
	w.WriteBits(3, 8)
	writeScanComponent(w, 1, 0, 0)
	writeScanComponent(w, 2, 1, 1)
	writeScanComponent(w, 3, 1, 1)
	w.WriteBits(0, 8) // Ss
	w.WriteBits(63, 8) // Se
	w.WriteBits(0, 8) // Ah/Al
}

// writeAPP0 emits the JFIF identity segment: identifier "JFIF\0", version
// 1.01, no density units, 1x1 density, no embedded thumbnail.
func writeAPP0(w *bitio.MSBWriter) {
	w.WriteMarker(markerAPP0)
	w.WriteBits(16, 16) // length: self(2)+identifier(5)+version(2)+units(1)+density(4)+thumbnail(2)
	w.WriteBits(uint32('J'), 8)
	w.WriteBits(uint32('F'), 8)
	w.WriteBits(uint32('I'), 8)
	w.WriteBits(uint32('F'), 8)
	w.WriteBits(0, 8)
	w.WriteBits(1, 8) // version major
	w.WriteBits(1, 8) // version minor
	w.WriteBits(0, 8) // units: no units, aspect ratio only
	w.WriteBits(1, 16) // x density
	w.WriteBits(1, 16) // y density
	w.WriteBits(0, 8) // thumbnail width
	w.WriteBits(0, 8) // thumbnail height
}

func writeQuantTable(w *bitio.MSBWriter, id byte, q QuantTable) {
	w.WriteMarker(markerDQT)
	w.WriteBits(uint32(2+1+64), 16)
	w.WriteBits(uint32(id), 8) // precision nibble is 0, so id occupies the low byte
	for i := 0; i < 64; i++ {
		w.WriteBits(uint32(q.Values[zigzag[i]]), 8)
	}
}

func writeFrameComponent(w *bitio.MSBWriter, id byte, quantSelector byte) {
	w.WriteBits(uint32(id), 8)
	w.WriteBits(0x11, 8) // H=1, V=1
	w.WriteBits(uint32(quantSelector), 8)
}

func writeScanComponent(w *bitio.MSBWriter, id, dcSel, acSel byte) {
	w.WriteBits(uint32(id), 8)
	w.WriteBits(uint32(dcSel)<<4|uint32(acSel), 8)
}

func writeDHT(w *bitio.MSBWriter, class, id byte, bits [16]byte, vals []byte) {
	w.WriteMarker(markerDHT)
	w.WriteBits(uint32(2+1+16+len(vals)), 16)
	w.WriteBits(uint32(class)<<4|uint32(id), 8)
	for _, b := range bits {
		w.WriteBits(uint32(b), 8)
	}
	for _, v := range vals {
		w.WriteBits(uint32(v), 8)
	}
}

// scaleQuantTable applies the standard quality-to-scale-factor curve to
// base, clamping each scaled entry to [1,255].
func scaleQuantTable(base [64]byte, quality int) QuantTable {
	var scale int
	if quality < 50 {
		scale = 5000 / quality
	} else {
		scale = 200 - 2*quality
	}
	var q QuantTable
	for i, b := range base {
		v := (int(b)*scale + 50) / 100
		if v < 1 {
			v = 1
		}
		if v > 255 {
			v = 255
		}
		q.Values[i] = byte(v)
	}
	return q
}

// extractBlock reads the 8x8 pixel region at (x0,y0) from buf, converting
// to Y/Cb/Cr and clamping reads past the image edge to the last valid row
// or column (edge replication, avoiding a ringing discontinuity at the
// image boundary).
func extractBlock(buf *pixel.Buffer, x0, y0 int) (yBlock, cbBlock, crBlock [64]float64) {
	for y := 0; y < 8; y++ {
		sy := y0 + y
		if sy >= buf.Height {
			sy = buf.Height - 1
		}
		for x := 0; x < 8; x++ {
			sx := x0 + x
			if sx >= buf.Width {
				sx = buf.Width - 1
			}
			o := (sy*buf.Width + sx) * buf.Channels
			r, g, b := buf.Pixels[o], buf.Pixels[o+1], buf.Pixels[o+2]
			yy, cb, cr := rgbToYCbCr(r, g, b)
			idx := y*8 + x
			yBlock[idx] = yy
			cbBlock[idx] = cb
			crBlock[idx] = cr
		}
	}
	return
}

func rgbToYCbCr(r, g, b byte) (y, cb, cr float64) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	y = 0.299*rf + 0.587*gf + 0.114*bf
	cb = -0.168736*rf - 0.331264*gf + 0.5*bf + 128
	cr = 0.5*rf - 0.418688*gf - 0.081312*bf + 128
	return
}

// levelShift subtracts the 128 mid-level so the forward DCT operates on a
// zero-centered block, the dual of decode's +128 after the inverse DCT.
func levelShift(block [64]float64) [64]float64 {
	var out [64]float64
	for i, v := range block {
		out[i] = v - 128
	}
	return out
}

func quantizeBlock(coeff [64]float64, quant QuantTable) [64]int {
	var out [64]int
	for i, v := range coeff {
		out[i] = int(math.Round(v / float64(quant.Values[i])))
	}
	return out
}

// toZigZag reorders a natural (row-major) coefficient block into scan order.
func toZigZag(natural [64]int) [64]int {
	var zz [64]int
	for k, pos := range zigzag {
		zz[k] = natural[pos]
	}
	return zz
}

func bitLength(v int) int {
	if v < 0 {
		v = -v
	}
	size := 0
	for v > 0 {
		size++
		v >>= 1
	}
	return size
}

// signMagnitude converts a signed coefficient into its size-bit JPEG
// magnitude code (the inverse of decode's extend).
func signMagnitude(v, size int) uint32 {
	if v >= 0 {
		return uint32(v)
	}
	return uint32(v + (1 << size) - 1)
}

// encodeBlock entropy-codes one zig-zag-ordered, quantized block: DC via
// differential+category coding against *prevDC, AC via run-length+category
// coding with ZRL for long zero runs. EOB is emitted whenever the block's
// last nonzero coefficient is not index 63, regardless of how the trailing
// run count got there — a block ending "...,0,5,0,0" still gets an EOB.
func encodeBlock(w *bitio.MSBWriter, zz [64]int, prevDC *int, dc, ac map[byte]encSym) {
	diff := zz[0] - *prevDC
	*prevDC = zz[0]
	size := bitLength(diff)
	writeSym(w, dc, byte(size))
	if size > 0 {
		w.WriteBits(signMagnitude(diff, size), size)
	}

	lastNonZero := 0
	for k := 63; k >= 1; k-- {
		if zz[k] != 0 {
			lastNonZero = k
			break
		}
	}

	run := 0
	for k := 1; k <= lastNonZero; k++ {
		if zz[k] == 0 {
			run++
			continue
		}
		for run > 15 {
			writeSym(w, ac, 0xF0)
			run -= 16
		}
		acSize := bitLength(zz[k])
		writeSym(w, ac, byte(run<<4|acSize))
		w.WriteBits(signMagnitude(zz[k], acSize), acSize)
		run = 0
	}
	if lastNonZero < 63 {
		writeSym(w, ac, 0x00)
	}
}

func writeSym(w *bitio.MSBWriter, table map[byte]encSym, symbol byte) {
	sym := table[symbol]
	w.WriteBits(sym.code, sym.length)
}
