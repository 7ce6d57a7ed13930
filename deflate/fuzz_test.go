package deflate

import "testing"

// FuzzInflate feeds arbitrary bytes to Inflate, asserting it never panics —
// malformed zlib headers, truncated blocks, and back-references pointing
// past the current output all have to fail as a returned error, not a crash.
func FuzzInflate(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x78, 0x01}) // valid header, no blocks
	f.Add(Deflate([]byte("Hello, Hello, Hello.")))
	f.Add([]byte{0x78, 0x01, 0x01, 0x05, 0x00, 0xFA, 0xFF, 'h', 'e', 'l', 'l', 'o'})
	f.Add([]byte{0x78, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00})
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 1<<20 {
			return
		}
		_, _ = Inflate(data)
	})
}
