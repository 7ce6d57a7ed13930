package rjpeg

import (
	"testing"

	"github.com/rastertools/rastercodec/pixel"
)

// FuzzDecodeContainerJ feeds arbitrary bytes to Decode, asserting it never
// panics — truncated segments, out-of-range table selectors, malformed
// entropy coding, and bogus sampling factors all have to fail as a returned
// error, not a crash.
func FuzzDecodeContainerJ(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0xFF, 0xD8, 0xFF, 0xD9}) // SOI immediately followed by EOI
	f.Add(sof0Stream(0x11, 0))
	f.Add(sof0Stream(0x00, 0))
	f.Add(sof0Stream(0x11, 4))

	if buf, err := pixel.New(8, 8, 3, make([]byte, 8*8*3)); err == nil {
		if encoded, err := Encode(buf, 80); err == nil {
			f.Add(encoded)
		}
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 1<<20 {
			return
		}
		_, _ = Decode(data)
	})
}
