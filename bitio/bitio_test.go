package bitio

import "testing"

func TestLSBReaderBits(t *testing.T) {
	// 0b10110100 -> bits read LSB-first: 0,0,1,0,1,1,0,1
	r := NewLSBReader([]byte{0xB4})
	want := []int{0, 0, 1, 0, 1, 1, 0, 1}
	for i, w := range want {
		bit, err := r.ReadBit()
		if err != nil {
			t.Fatalf("bit %d: %v", i, err)
		}
		if bit != w {
			t.Errorf("bit %d = %d, want %d", i, bit, w)
		}
	}
	if _, err := r.ReadBit(); err != ErrEndOfStream {
		t.Errorf("ReadBit() past end = %v, want ErrEndOfStream", err)
	}
}

func TestLSBReaderReadBits(t *testing.T) {
	// Two bytes, little-endian 16-bit value when read as 16 bits at once.
	r := NewLSBReader([]byte{0x34, 0x12})
	v, err := r.ReadBits(16)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x1234 {
		t.Errorf("ReadBits(16) = %#x, want 0x1234", v)
	}
}

func TestLSBReaderAlignToByte(t *testing.T) {
	r := NewLSBReader([]byte{0xFF, 0xAB})
	if _, err := r.ReadBits(3); err != nil {
		t.Fatal(err)
	}
	r.AlignToByte()
	if r.BytePos() != 1 {
		t.Fatalf("BytePos() = %d, want 1", r.BytePos())
	}
	v, err := r.ReadBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xAB {
		t.Errorf("ReadBits(8) after align = %#x, want 0xAB", v)
	}
}

func TestMSBReaderPlainBits(t *testing.T) {
	// 0xB4 = 10110100, read MSB first.
	r := NewMSBReader([]byte{0xB4})
	v, err := r.ReadBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xB4 {
		t.Errorf("ReadBits(8) = %#x, want 0xB4", v)
	}
}

func TestMSBReaderDestuffing(t *testing.T) {
	// 0xFF 0x00 0xAB: the 0x00 is stuffing and must be transparently skipped.
	r := NewMSBReader([]byte{0xFF, 0x00, 0xAB})
	v, err := r.ReadBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xFF {
		t.Errorf("first byte = %#x, want 0xFF", v)
	}
	v, err = r.ReadBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xAB {
		t.Errorf("second byte = %#x, want 0xAB", v)
	}
}

func TestMSBReaderMarkerEndsSegment(t *testing.T) {
	// 0xFF 0xD9 (EOI): not stuffing, must report ErrSegmentEnd without
	// consuming the marker's follower byte as data.
	r := NewMSBReader([]byte{0xAB, 0xFF, 0xD9})
	if _, err := r.ReadBits(8); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadBit(); err != ErrSegmentEnd {
		t.Errorf("ReadBit() at marker = %v, want ErrSegmentEnd", err)
	}
	marker, ended := r.Marker()
	if !ended || marker != 0xD9 {
		t.Errorf("Marker() = (%#x, %v), want (0xd9, true)", marker, ended)
	}
}

func TestMSBWriterRoundTrip(t *testing.T) {
	w := NewMSBWriter()
	w.WriteBits(0xB4, 8)
	w.WriteBits(0x3, 4)
	got := w.Bytes()

	r := NewMSBReader(got)
	v, err := r.ReadBits(8)
	if err != nil || v != 0xB4 {
		t.Fatalf("ReadBits(8) = %#x, %v, want 0xB4", v, err)
	}
	v, err = r.ReadBits(4)
	if err != nil || v != 0x3 {
		t.Fatalf("ReadBits(4) = %#x, %v, want 0x3", v, err)
	}
}

func TestMSBWriterStuffing(t *testing.T) {
	w := NewMSBWriter()
	w.EnableStuffing(true)
	w.WriteBits(0xFF, 8)
	w.WriteBits(0x00, 8)
	got := w.Bytes()
	want := []byte{0xFF, 0x00, 0x00}
	if string(got) != string(want) {
		t.Errorf("Bytes() = %v, want %v", got, want)
	}
}

func TestMSBWriterMarker(t *testing.T) {
	w := NewMSBWriter()
	w.EnableStuffing(true)
	w.WriteBits(0x1, 3) // partial byte, should be padded with 1s before the marker
	w.WriteMarker(0xD9)
	got := w.Bytes()
	want := []byte{0x3F, 0xFF, 0xD9} // 0b001 (bits 7-5) + 0b11111 padding (bits 4-0) = 0x3F
	if string(got) != string(want) {
		t.Errorf("Bytes() = %#v, want %#v", got, want)
	}
}
