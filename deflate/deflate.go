package deflate

import "github.com/rastertools/rastercodec/checksum"

// maxStoredBlock is the largest payload a single stored block can carry;
// LEN is a 16-bit field.
const maxStoredBlock = 65535

// Deflate compresses data using only stored (uncompressed) blocks, wrapped
// in a standard zlib header and trailer. This module never needs to
// compress CONTAINER-L output beyond what Inflate can always decode back
// byte-for-byte, so there's no LZ77/Huffman encoder here — see spec 4.G.
func Deflate(data []byte) []byte {
	out := make([]byte, 0, len(data)+16)
	out = append(out, 0x78, 0x01) // CMF: method 8, window 32K; FLG: no preset dict, FLEVEL 0

	pos := 0
	for {
		remaining := len(data) - pos
		chunk := remaining
		final := true
		if chunk > maxStoredBlock {
			chunk = maxStoredBlock
			final = false
		}

		var header byte
		if final {
			header = 1
		}
		out = append(out, header)

		ln := uint16(chunk)
		nlen := ^ln
		out = append(out, byte(ln), byte(ln>>8), byte(nlen), byte(nlen>>8))
		out = append(out, data[pos:pos+chunk]...)

		pos += chunk
		if final {
			break
		}
	}

	adler := checksum.Adler32(data)
	out = append(out, byte(adler>>24), byte(adler>>16), byte(adler>>8), byte(adler))
	return out
}
