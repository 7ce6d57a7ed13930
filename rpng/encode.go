package rpng

import (
	"fmt"

	"github.com/rastertools/rastercodec/checksum"
	"github.com/rastertools/rastercodec/deflate"
	"github.com/rastertools/rastercodec/internal/xdr"
	"github.com/rastertools/rastercodec/pixel"
)

// Encode produces a complete CONTAINER-L byte stream for buf. Every
// scanline is written with filter type 0 (None) — spec 4.I does not
// require adaptive filter selection, and the uncompressed IDAT payload
// compresses no worse than the input either way, since 4.G only ever emits
// stored blocks.
func Encode(buf *pixel.Buffer) ([]byte, error) {
	if buf.Channels != 3 && buf.Channels != 4 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFeature, buf.Channels)
	}

	stride := buf.Stride()
	raw := make([]byte, 0, buf.Height*(1+stride))
	for y := 0; y < buf.Height; y++ {
		raw = append(raw, 0) // filter type None
		raw = append(raw, buf.Pixels[y*stride:(y+1)*stride]...)
	}

	idatPayload := deflate.Deflate(raw)

	w := xdr.NewBufferWriter(8 + 64 + len(idatPayload) + 32)
	w.WriteBytes(signature[:])

	colorType := byte(2)
	if buf.Channels == 4 {
		colorType = 6
	}
	ihdr := make([]byte, 13)
	xdr.ByteOrder.PutUint32(ihdr[0:4], uint32(buf.Width))
	xdr.ByteOrder.PutUint32(ihdr[4:8], uint32(buf.Height))
	ihdr[8] = 8 // bit depth
	ihdr[9] = colorType
	ihdr[10] = 0 // compression
	ihdr[11] = 0 // filter method
	ihdr[12] = 0 // interlace
	writeChunk(w, chunkIHDR, ihdr)
	writeChunk(w, chunkIDAT, idatPayload)
	writeChunk(w, chunkIEND, nil)

	return w.Bytes(), nil
}

func writeChunk(w *xdr.BufferWriter, typ string, payload []byte) {
	w.WriteUint32(uint32(len(payload)))
	w.WriteBytes([]byte(typ))
	w.WriteBytes(payload)
	crc := checksum.CRC32(append([]byte(typ), payload...))
	w.WriteUint32(crc)
}
