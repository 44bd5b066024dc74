package romimage

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// WordSize is the ROM word width in bytes.
const WordSize = 4

// ImageTooLargeError indicates the input binary does not fit the target
// ROM size.
type ImageTooLargeError struct {
	InputSize  int
	TargetSize int
}

func (e *ImageTooLargeError) Error() string {
	return fmt.Sprintf("image too large: input is %d bytes, target size is %d bytes", e.InputSize, e.TargetSize)
}

// PadAndEncode zero-extends data to targetSize and renders it as 32-bit
// little-endian words, one 8-hex-digit string per word. A trailing partial
// word (only possible when targetSize is not a multiple of WordSize) is
// zero-filled, so the result always has ceil(targetSize/WordSize) words.
//
// Returns *ImageTooLargeError when data does not fit.
func PadAndEncode(data []byte, targetSize int) ([]string, error) {
	if targetSize < 0 {
		return nil, fmt.Errorf("negative target size %d", targetSize)
	}
	if len(data) > targetSize {
		return nil, &ImageTooLargeError{InputSize: len(data), TargetSize: targetSize}
	}

	padded := make([]byte, targetSize)
	copy(padded, data)

	words := make([]string, 0, (targetSize+WordSize-1)/WordSize)
	for i := 0; i < targetSize; i += WordSize {
		var word uint32
		for j := 0; j < WordSize && i+j < targetSize; j++ {
			word |= uint32(padded[i+j]) << (j * 8)
		}
		words = append(words, fmt.Sprintf("%08x", word))
	}

	return words, nil
}

// WriteHex writes words to w, one per line.
func WriteHex(w io.Writer, words []string) error {
	if len(words) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(words, "\n")+"\n")
	return err
}

// Generate reads a binary from inputPath and writes its padded hex-word
// rendering to outputPath.
func Generate(inputPath, outputPath string, targetSize int) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	words, err := PadAndEncode(data, targetSize)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := WriteHex(f, words); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}
