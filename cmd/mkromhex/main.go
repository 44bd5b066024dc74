// Command mkromhex pads a firmware binary to a ROM size and renders it as
// the hex-word list consumed by the SoC's memory-initialization loader.
//
// Usage:
//
//	mkromhex input.bin output.hex 16384
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/pmoreno/go-uartboot/romimage"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: mkromhex <input.bin> <output.hex> <target_size>")
		fmt.Fprintln(os.Stderr, "example: mkromhex app.bin app.hex 16384")
	}
	flag.Parse()

	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(2)
	}
	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	targetSize, err := strconv.Atoi(flag.Arg(2))
	if err != nil || targetSize < 0 {
		fmt.Fprintf(os.Stderr, "ERROR: invalid target size %q\n", flag.Arg(2))
		os.Exit(2)
	}

	if err := romimage.Generate(inputPath, outputPath, targetSize); err != nil {
		var tooLarge *romimage.ImageTooLargeError
		if errors.As(err, &tooLarge) {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", tooLarge)
		} else {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		}
		os.Exit(1)
	}

	words := (targetSize + romimage.WordSize - 1) / romimage.WordSize
	fmt.Printf("Generated %s with %d words\n", outputPath, words)
}
