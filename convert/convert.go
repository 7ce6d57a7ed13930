// Package convert implements the conversion driver: extension-based mode
// detection, atomic output writing, and wiring the rpng/rjpeg codecs
// together. It is deliberately thin — everything format-specific lives in
// rpng and rjpeg; this package only sequences read, decode, encode, write.
package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rastertools/rastercodec/pixel"
	"github.com/rastertools/rastercodec/rjpeg"
	"github.com/rastertools/rastercodec/rpng"
)

var (
	// ErrInputNotFound is returned when the input path does not exist.
	ErrInputNotFound = errors.New("convert: input file does not exist")

	// ErrUnsupportedPair is returned when the input/output extensions do
	// not form a supported conversion pair.
	ErrUnsupportedPair = errors.New("convert: unsupported input/output extension pairing")

	// ErrQualityRange is returned for a quality value outside [1,100].
	ErrQualityRange = errors.New("convert: quality must be between 1 and 100")
)

// DefaultQuality is used when the caller does not specify one explicitly.
const DefaultQuality = 50

// Result reports what Convert produced.
type Result struct {
	Width, Height, Channels int
}

// Convert reads inputPath, decodes it per its extension, encodes the
// result per outputPath's extension, and writes it atomically. quality is
// only used when encoding CONTAINER-J.
func Convert(inputPath, outputPath string, quality int) (*Result, error) {
	if quality < 1 || quality > 100 {
		return nil, ErrQualityRange
	}
	if _, err := os.Stat(inputPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, inputPath)
		}
		return nil, fmt.Errorf("convert: checking input file: %w", err)
	}

	mode, err := detectMode(inputPath, outputPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("convert: reading input file: %w", err)
	}

	var buf *pixel.Buffer
	switch mode {
	case modeLToJ:
		buf, err = rpng.Decode(data)
	case modeJToL:
		buf, err = rjpeg.Decode(data)
	}
	if err != nil {
		return nil, fmt.Errorf("convert: decoding %s: %w", inputPath, err)
	}

	var out []byte
	switch mode {
	case modeLToJ:
		out, err = rjpeg.Encode(buf, quality)
	case modeJToL:
		out, err = rpng.Encode(buf)
	}
	if err != nil {
		return nil, fmt.Errorf("convert: encoding %s: %w", outputPath, err)
	}

	if err := writeAtomic(outputPath, out); err != nil {
		return nil, err
	}

	return &Result{Width: buf.Width, Height: buf.Height, Channels: buf.Channels}, nil
}

type mode int

const (
	modeLToJ mode = iota // CONTAINER-L in, CONTAINER-J out
	modeJToL             // CONTAINER-J in, CONTAINER-L out
)

func detectMode(inputPath, outputPath string) (mode, error) {
	in := strings.ToLower(filepath.Ext(inputPath))
	out := strings.ToLower(filepath.Ext(outputPath))

	switch {
	case in == ".png" && (out == ".jpg" || out == ".jpeg"):
		return modeLToJ, nil
	case (in == ".jpg" || in == ".jpeg") && out == ".png":
		return modeJToL, nil
	default:
		return 0, fmt.Errorf("%w: %s -> %s", ErrUnsupportedPair, in, out)
	}
}

// writeAtomic writes data to a temporary file in outputPath's directory and
// renames it into place, so a failure never leaves a partial or corrupt
// file at outputPath.
func writeAtomic(outputPath string, data []byte) error {
	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, ".rasterconv-*.tmp")
	if err != nil {
		return fmt.Errorf("convert: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("convert: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("convert: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("convert: renaming temp file into place: %w", err)
	}
	return nil
}
