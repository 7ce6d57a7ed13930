package rjpeg

import (
	"errors"
	"testing"

	"github.com/rastertools/rastercodec/pixel"
)

func TestZigZagIsPermutationOf0to63(t *testing.T) {
	seen := make(map[int]bool, 64)
	for _, pos := range zigzag {
		if pos < 0 || pos > 63 {
			t.Fatalf("zigzag entry %d out of range", pos)
		}
		if seen[pos] {
			t.Fatalf("zigzag entry %d repeated", pos)
		}
		seen[pos] = true
	}
	if len(seen) != 64 {
		t.Fatalf("zigzag covers %d positions, want 64", len(seen))
	}
}

func TestBitLength(t *testing.T) {
	cases := []struct {
		v    int
		want int
	}{
		{0, 0},
		{1, 1},
		{-1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{-4, 3},
		{255, 8},
		{-255, 8},
		{256, 9},
	}
	for _, c := range cases {
		if got := bitLength(c.v); got != c.want {
			t.Errorf("bitLength(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestSignMagnitudeExtendRoundTrip(t *testing.T) {
	for v := -300; v <= 300; v++ {
		size := bitLength(v)
		mag := signMagnitude(v, size)
		got := extend(int(mag), size)
		if got != v {
			t.Errorf("extend(signMagnitude(%d, %d), %d) = %d, want %d", v, size, size, got, v)
		}
	}
}

func TestExtendZeroSize(t *testing.T) {
	if got := extend(0, 0); got != 0 {
		t.Errorf("extend(0, 0) = %d, want 0", got)
	}
}

func TestScaleQuantTableQuality50PassesBaseThrough(t *testing.T) {
	// quality 50 -> scale = 200-100 = 100, so (base*100+50)/100 == base.
	q := scaleQuantTable(baseLuma, 50)
	for i, base := range baseLuma {
		if q.Values[i] != base {
			t.Errorf("Values[%d] = %d, want %d (unscaled)", i, q.Values[i], base)
		}
	}
}

func TestScaleQuantTableClampsToValidRange(t *testing.T) {
	hi := scaleQuantTable(baseLuma, 1) // smallest quality, largest scale factor
	for i, v := range hi.Values {
		if v < 1 || v > 255 {
			t.Errorf("Values[%d] = %d, want in [1,255]", i, v)
		}
	}
	lo := scaleQuantTable(baseLuma, 100) // largest quality, scale factor 0
	for i, v := range lo.Values {
		if v != 1 {
			t.Errorf("quality 100 Values[%d] = %d, want 1", i, v)
		}
	}
}

func TestBuildEncodeTableAssignsShorterCodesFirst(t *testing.T) {
	table := buildEncodeTable(stdDCLumaBits, stdDCLumaVal)
	if len(table) != len(stdDCLumaVal) {
		t.Fatalf("table has %d entries, want %d", len(table), len(stdDCLumaVal))
	}
	for sym, enc := range table {
		if enc.length < 1 || enc.length > 16 {
			t.Errorf("symbol %d: length %d out of range", sym, enc.length)
		}
	}
	// stdDCLumaBits has no 1-bit codes and one 2-bit code (stdDCLumaBits[1]);
	// category 0 is listed first in HUFFVAL so it gets that code, 0b00.
	if enc := table[0]; enc.length != 2 || enc.code != 0 {
		t.Errorf("DC category 0 = {code %b, length %d}, want {0, 2}", enc.code, enc.length)
	}
}

// TestEncodeWritesJFIFIdentitySegment checks that the stream's second
// segment (right after SOI) is an APP0 carrying the JFIF identifier,
// version 1.01, no density units, 1x1 density, and no thumbnail.
func TestEncodeWritesJFIFIdentitySegment(t *testing.T) {
	buf, err := pixel.New(8, 8, 3, make([]byte, 8*8*3))
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := Encode(buf, 80)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if encoded[0] != 0xFF || encoded[1] != markerSOI {
		t.Fatalf("stream does not start with SOI")
	}
	if encoded[2] != 0xFF || encoded[3] != markerAPP0 {
		t.Fatalf("second segment marker = %#x %#x, want FF %#x", encoded[2], encoded[3], markerAPP0)
	}
	length := int(encoded[4])<<8 | int(encoded[5])
	if length != 16 {
		t.Errorf("APP0 length = %d, want 16", length)
	}
	payload := encoded[6 : 6+length-2]
	if string(payload[0:5]) != "JFIF\x00" {
		t.Errorf("APP0 identifier = %q, want \"JFIF\\x00\"", payload[0:5])
	}
	if payload[5] != 1 || payload[6] != 1 {
		t.Errorf("APP0 version = %d.%d, want 1.1", payload[5], payload[6])
	}
	if payload[7] != 0 {
		t.Errorf("APP0 units = %d, want 0", payload[7])
	}
	xDensity := int(payload[8])<<8 | int(payload[9])
	yDensity := int(payload[10])<<8 | int(payload[11])
	if xDensity != 1 || yDensity != 1 {
		t.Errorf("APP0 density = %dx%d, want 1x1", xDensity, yDensity)
	}
	if payload[12] != 0 || payload[13] != 0 {
		t.Errorf("APP0 thumbnail dimensions = %dx%d, want 0x0", payload[12], payload[13])
	}
}

// TestEncodeDecodeSolidGrayRoundTrip exercises the full encode/decode path
// on a flat 128-gray image. Y=Cb=Cr=128 exactly for R=G=B=128, so every
// coefficient in every block is exactly zero after the 128 level shift —
// the one case where encode/decode can be checked bit-for-bit rather than
// within a lossy tolerance.
func TestEncodeDecodeSolidGrayRoundTrip(t *testing.T) {
	const w, h = 16, 12
	pixels := make([]byte, w*h*3)
	for i := range pixels {
		pixels[i] = 128
	}
	buf, err := pixel.New(w, h, 3, pixels)
	if err != nil {
		t.Fatal(err)
	}

	encoded, err := Encode(buf, 80)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if decoded.Width != w || decoded.Height != h {
		t.Fatalf("decoded dimensions = %dx%d, want %dx%d", decoded.Width, decoded.Height, w, h)
	}
	for i, v := range decoded.Pixels {
		if v != 128 {
			t.Fatalf("decoded.Pixels[%d] = %d, want 128", i, v)
		}
	}
}

func TestEncodeRejectsQualityOutOfRange(t *testing.T) {
	buf, err := pixel.New(8, 8, 3, make([]byte, 8*8*3))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Encode(buf, 0); err != ErrQualityRange {
		t.Errorf("quality 0: error = %v, want ErrQualityRange", err)
	}
	if _, err := Encode(buf, 101); err != ErrQualityRange {
		t.Errorf("quality 101: error = %v, want ErrQualityRange", err)
	}
}

func TestParseSegmentsRejectsMissingSOI(t *testing.T) {
	if _, err := ParseSegments([]byte{0x00, 0x01}); err != ErrSOISignature {
		t.Errorf("error = %v, want ErrSOISignature", err)
	}
}

// sof0Stream builds a minimal SOI+SOF0 stream with one component using the
// given sampling byte and quantization selector, for exercising parseSOF0's
// bounds checks in isolation.
func sof0Stream(sampling, quantSelector byte) []byte {
	return []byte{
		0xFF, markerSOI,
		0xFF, markerSOF0,
		0x00, 0x0B, // length 11
		0x08,       // precision
		0x00, 0x01, // height
		0x00, 0x01, // width
		0x01,          // component count
		0x01,          // component id
		sampling,      // H/V sampling nibbles
		quantSelector, // quant table selector
	}
}

func TestParseSegmentsRejectsSamplingFactorZero(t *testing.T) {
	if _, err := ParseSegments(sof0Stream(0x01, 0)); !errors.Is(err, ErrUnsupportedSampling) {
		t.Errorf("H=0: error = %v, want ErrUnsupportedSampling", err)
	}
	if _, err := ParseSegments(sof0Stream(0x10, 0)); !errors.Is(err, ErrUnsupportedSampling) {
		t.Errorf("V=0: error = %v, want ErrUnsupportedSampling", err)
	}
}

func TestParseSegmentsRejectsQuantSelectorOutOfRange(t *testing.T) {
	if _, err := ParseSegments(sof0Stream(0x11, 4)); !errors.Is(err, ErrTableSelector) {
		t.Errorf("error = %v, want ErrTableSelector", err)
	}
}

func TestInverseDCTFlatDCBlockIsConstant(t *testing.T) {
	// DC=1024 (matching a transmitted magnitude of 64 against a luma
	// quantizer of 16 at quality 50), all AC zero: the classic solid-gray
	// derivation, F(0,0)*C(0)*C(0)/4 = 1024*0.5/4 = 128.
	var coeff [64]float64
	coeff[0] = 1024
	out := inverseDCT(coeff)
	for i, v := range out {
		if v < 127.999 || v > 128.001 {
			t.Errorf("out[%d] = %v, want ~128", i, v)
		}
	}
}

func TestForwardInverseDCTRoundTrip(t *testing.T) {
	var block [64]float64
	for i := range block {
		block[i] = float64(i%17) - 8 // an arbitrary zero-ish-centered pattern
	}
	coeff := forwardDCT(block)
	back := inverseDCT(coeff)
	for i := range block {
		diff := back[i] - block[i]
		if diff < -0.01 || diff > 0.01 {
			t.Errorf("round trip at %d: got %v, want %v", i, back[i], block[i])
		}
	}
}
