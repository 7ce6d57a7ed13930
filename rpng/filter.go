package rpng

import "fmt"

// errInvalidFilterType is returned when a scanline's filter-type byte is
// not one of the five defined reconstruction filters.
var errInvalidFilterType = fmt.Errorf("%w: filter type byte out of range", ErrMalformedStream)

// unfilterScanline reconstructs one filtered scanline in place. prev is the
// previous scanline's already-reconstructed bytes (or nil for the first
// row); bpp is bytes per complete pixel (3 or 4, since this module only
// supports 8-bit depth).
func unfilterScanline(filterType byte, line, prev []byte, bpp int) error {
	switch filterType {
	case 0: // None
		return nil
	case 1: // Sub
		for i := range line {
			a := leftByte(line, i, bpp)
			line[i] += a
		}
		return nil
	case 2: // Up
		for i := range line {
			b := aboveByte(prev, i)
			line[i] += b
		}
		return nil
	case 3: // Average
		for i := range line {
			a := int(leftByte(line, i, bpp))
			b := int(aboveByte(prev, i))
			line[i] += byte((a + b) / 2)
		}
		return nil
	case 4: // Paeth
		for i := range line {
			a := leftByte(line, i, bpp)
			b := aboveByte(prev, i)
			c := aboveLeftByte(prev, i, bpp)
			line[i] += paeth(a, b, c)
		}
		return nil
	default:
		return errInvalidFilterType
	}
}

func leftByte(line []byte, i, bpp int) byte {
	if i < bpp {
		return 0
	}
	return line[i-bpp]
}

func aboveByte(prev []byte, i int) byte {
	if prev == nil {
		return 0
	}
	return prev[i]
}

func aboveLeftByte(prev []byte, i, bpp int) byte {
	if prev == nil || i < bpp {
		return 0
	}
	return prev[i-bpp]
}

// paeth selects whichever of a, b, c is nearest to p = a+b-c, breaking ties
// in the order a, b, c.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := absInt(p - int(a))
	pb := absInt(p - int(b))
	pc := absInt(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
