// Package romimage renders a firmware binary as the hex-word list the
// SoC's memory-initialization loader consumes.
//
// The binary is zero-padded to the ROM's capacity, partitioned into
// 32-bit little-endian words, and written as one 8-hex-digit word per
// line:
//
//	words, err := romimage.PadAndEncode(firmware, 16384)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = romimage.WriteHex(f, words)
//
// Generate is the file-to-file convenience used by cmd/mkromhex.
package romimage
