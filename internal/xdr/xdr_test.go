package xdr

import "testing"

func TestReaderIntegers(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x0d, 0x12, 0x34, 0xAB}
	r := NewReader(data)

	length, err := r.ReadUint32()
	if err != nil {
		t.Fatalf("ReadUint32() error = %v", err)
	}
	if length != 13 {
		t.Errorf("ReadUint32() = %d, want 13", length)
	}

	u16, err := r.ReadUint16()
	if err != nil {
		t.Fatalf("ReadUint16() error = %v", err)
	}
	if u16 != 0x1234 {
		t.Errorf("ReadUint16() = %#x, want 0x1234", u16)
	}

	b, err := r.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte() error = %v", err)
	}
	if b != 0xAB {
		t.Errorf("ReadByte() = %#x, want 0xAB", b)
	}
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	if _, err := r.ReadUint32(); err != ErrShortBuffer {
		t.Errorf("ReadUint32() error = %v, want ErrShortBuffer", err)
	}
}

func TestReaderBytes(t *testing.T) {
	r := NewReader([]byte("IHDR"))
	b, err := r.ReadBytes(4)
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	if string(b) != "IHDR" {
		t.Errorf("ReadBytes() = %q, want %q", b, "IHDR")
	}
	if _, err := r.ReadByte(); err != ErrShortBuffer {
		t.Errorf("ReadByte() at EOF error = %v, want ErrShortBuffer", err)
	}
}

func TestBufferWriter(t *testing.T) {
	w := NewBufferWriter(8)
	w.WriteUint32(13)
	w.WriteBytes([]byte("IHDR"))
	w.WriteByte(0x08)

	want := []byte{0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R', 0x08}
	if string(w.Bytes()) != string(want) {
		t.Errorf("Bytes() = %v, want %v", w.Bytes(), want)
	}
	if w.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", w.Len(), len(want))
	}
}
