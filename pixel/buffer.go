// Package pixel defines the in-memory pixel container shared by the
// decoders and encoders in this module. It is the minimal collaborator
// described by the format packages: width, height, channel count, and a
// flat, row-major, channel-interleaved byte slice.
package pixel

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimensions is returned when width or height is less than 1.
	ErrInvalidDimensions = errors.New("pixel: width and height must be >= 1")

	// ErrInvalidChannels is returned when the channel count is not 3 or 4.
	ErrInvalidChannels = errors.New("pixel: channels must be 3 (RGB) or 4 (RGBA)")

	// ErrBufferSize is returned when the pixel slice length does not match
	// width*height*channels.
	ErrBufferSize = errors.New("pixel: byte slice length does not match width*height*channels")
)

// Buffer is a decoded or to-be-encoded raster image: width, height, channel
// count, and row-major, channel-interleaved pixel bytes (R,G,B[,A]).
type Buffer struct {
	Width, Height, Channels int
	Pixels                  []byte
}

// New validates dimensions and buffer size and returns a Buffer wrapping
// pixels. pixels is retained, not copied.
func New(width, height, channels int, pixels []byte) (*Buffer, error) {
	if width < 1 || height < 1 {
		return nil, ErrInvalidDimensions
	}
	if channels != 3 && channels != 4 {
		return nil, ErrInvalidChannels
	}
	want := width * height * channels
	if len(pixels) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize, len(pixels), want)
	}
	return &Buffer{Width: width, Height: height, Channels: channels, Pixels: pixels}, nil
}

// Stride returns the number of bytes per scanline.
func (b *Buffer) Stride() int {
	return b.Width * b.Channels
}
