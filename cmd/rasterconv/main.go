// rasterconv converts between CONTAINER-L (PNG-shaped) and CONTAINER-J
// (JPEG-shaped) raster images, picking a direction from the input and
// output file extensions.
//
// Usage:
//
//	rasterconv [-q|--quality N] <input-path> <output-path>
//
// Options:
//
//	-q, --quality N   encode quality, 1-100 (default 50); used only when
//	                   the output is CONTAINER-J
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rastertools/rastercodec/convert"
)

func main() {
	quality, args, err := parseArgs(os.Args[1:])
	if err != nil {
		flagUsage()
		os.Exit(1)
	}
	if len(args) != 2 {
		flagUsage()
		os.Exit(1)
	}

	inputPath, outputPath := args[0], args[1]

	fmt.Printf("Processing...\n")
	start := time.Now()

	result, err := convert.Convert(inputPath, outputPath, quality)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Decoded %dx%d, %d channels.\n", result.Width, result.Height, result.Channels)
	fmt.Printf("Success! Conversion took %s.\n", time.Since(start))
}

func flagUsage() {
	fmt.Fprintf(os.Stderr, "Usage: rasterconv [-q|--quality N] <input-path> <output-path>\n\n")
	fmt.Fprintf(os.Stderr, "Converts .png <-> .jpg/.jpeg. Quality (1-100, default %d) applies\n", convert.DefaultQuality)
	fmt.Fprintf(os.Stderr, "only when encoding to .jpg/.jpeg.\n")
}

// parseArgs separates -q/--quality from positional arguments. Unknown
// flags are warned about on stderr and ignored rather than treated as a
// fatal usage error — flag.FlagSet's own ContinueOnError mode aborts on
// the first unrecognized flag, which doesn't fit that contract, so flags
// are screened by hand before being handed to a flag.FlagSet for the part
// it's actually good at: parsing -q/--quality's value syntax.
func parseArgs(argv []string) (quality int, positionals []string, err error) {
	var flagTokens []string
	for i := 0; i < len(argv); i++ {
		a := argv[i]
		switch {
		case a == "-q" || a == "--quality":
			flagTokens = append(flagTokens, "-quality")
			if i+1 < len(argv) {
				i++
				flagTokens = append(flagTokens, argv[i])
			}
		case strings.HasPrefix(a, "-q="):
			flagTokens = append(flagTokens, "-quality="+strings.TrimPrefix(a, "-q="))
		case strings.HasPrefix(a, "--quality="):
			flagTokens = append(flagTokens, "-quality="+strings.TrimPrefix(a, "--quality="))
		case strings.HasPrefix(a, "-"):
			fmt.Fprintf(os.Stderr, "Warning: unknown flag %q ignored\n", a)
		default:
			positionals = append(positionals, a)
		}
	}

	fs := flag.NewFlagSet("rasterconv", flag.ContinueOnError)
	fs.Usage = flagUsage
	q := fs.Int("quality", convert.DefaultQuality, "encode quality, 1-100")
	if err := fs.Parse(flagTokens); err != nil {
		return 0, nil, err
	}
	return *q, positionals, nil
}
