// Command mkheader prepends the bootloader header to a firmware binary.
//
// Usage:
//
//	mkheader [-version 1.0.0] input.bin output.bin
//
// Inputs that already carry a header are copied through unchanged, so the
// tool can be run safely in a build pipeline that may receive either form.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pmoreno/go-uartboot/header"
	"github.com/pmoreno/go-uartboot/protocol"
)

func main() {
	versionStr := flag.String("version", "1.0.0", "firmware version (X.Y.Z)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: mkheader [-version X.Y.Z] <input.bin> <output.bin>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	version, err := header.ParseVersion(*versionStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}

	firmware, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: read input: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Input file: %s\n", inputPath)
	fmt.Printf("Firmware size: %d bytes\n", len(firmware))

	var image []byte
	if header.Detect(firmware) {
		fmt.Println("Input already has a bootloader header, copying unchanged")
		image = firmware
	} else {
		fmt.Printf("CRC32: 0x%08X\n", protocol.Checksum(firmware))
		image = header.Compose(firmware, version)
	}

	if err := os.WriteFile(outputPath, image, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: write output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Output file: %s (%d bytes)\n", outputPath, len(image))
}
