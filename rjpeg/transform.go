package rjpeg

import "math"

// cosTable[x][u] = cos((2x+1)*u*pi/16), the shared basis for both passes of
// the separable forward and inverse transforms. c[u] holds the DCT-II/III
// normalization constant (1/sqrt(2) for u==0, 1 otherwise).
var (
	cosTable [8][8]float64
	c        [8]float64
)

func init() {
	for x := 0; x < 8; x++ {
		for u := 0; u < 8; u++ {
			cosTable[x][u] = math.Cos(float64(2*x+1) * float64(u) * math.Pi / 16)
		}
	}
	c[0] = 1 / math.Sqrt2
	for u := 1; u < 8; u++ {
		c[u] = 1
	}
}

// inverseDCT performs a separable two-pass inverse 8x8 DCT on dequantized
// coefficients in natural (row-major, [v*8+u]) order, producing zero-centered
// spatial samples in [y*8+x] order. Callers add the 128 level shift back in.
func inverseDCT(coeff [64]float64) [64]float64 {
	var temp [8][8]float64 // temp[v][x]: horizontal pass, frequency row v to spatial column x
	for v := 0; v < 8; v++ {
		for x := 0; x < 8; x++ {
			var sum float64
			for u := 0; u < 8; u++ {
				sum += coeff[v*8+u] * c[u] * cosTable[x][u]
			}
			temp[v][x] = sum
		}
	}

	var out [64]float64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			var sum float64
			for v := 0; v < 8; v++ {
				sum += temp[v][x] * c[v] * cosTable[y][v]
			}
			out[y*8+x] = sum / 4
		}
	}
	return out
}

// forwardDCT is inverseDCT's dual: zero-centered spatial samples in
// [y*8+x] order to frequency coefficients in natural [v*8+u] order.
func forwardDCT(block [64]float64) [64]float64 {
	var temp [8][8]float64 // temp[u][y]: horizontal pass, spatial row y to frequency column u
	for u := 0; u < 8; u++ {
		for y := 0; y < 8; y++ {
			var sum float64
			for x := 0; x < 8; x++ {
				sum += block[y*8+x] * cosTable[x][u]
			}
			temp[u][y] = sum
		}
	}

	var out [64]float64
	for v := 0; v < 8; v++ {
		for u := 0; u < 8; u++ {
			var sum float64
			for y := 0; y < 8; y++ {
				sum += temp[u][y] * cosTable[y][v]
			}
			out[v*8+u] = sum * c[u] * c[v] / 4
		}
	}
	return out
}
