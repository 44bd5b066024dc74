package header

import (
	"encoding/binary"
	"fmt"

	"github.com/pmoreno/go-uartboot/protocol"
)

// Header is the decoded form of the 20-byte image header.
type Header struct {
	// Magic is the format identifier; protocol.Magic for a valid header.
	Magic uint32

	// Version is the packed firmware version (see Version.Pack).
	Version uint32

	// Length is the byte length of the firmware payload that follows the
	// header. It never includes the header itself.
	Length uint32

	// Checksum is the CRC32 of the payload only.
	Checksum uint32

	// Reserved is always zero.
	Reserved uint32
}

// Compose prepends a freshly built header to firmware and returns the
// headered image. The checksum covers firmware only, and the length field
// equals len(firmware) exactly.
//
// Compose does not check whether firmware already carries a header; use
// EnsureHeadered for that.
func Compose(firmware []byte, v Version) []byte {
	image := make([]byte, protocol.HeaderSize+len(firmware))

	binary.LittleEndian.PutUint32(image[0:4], protocol.Magic)
	binary.LittleEndian.PutUint32(image[4:8], v.Pack())
	binary.LittleEndian.PutUint32(image[8:12], uint32(len(firmware)))
	binary.LittleEndian.PutUint32(image[12:16], protocol.Checksum(firmware))
	// Reserved field at 16:20 stays zero.

	copy(image[protocol.HeaderSize:], firmware)
	return image
}

// Detect reports whether data begins with a bootloader header. The sole
// rule is that the first 4 bytes, read little-endian, equal the magic
// constant; no length or checksum cross-check is done (see the package
// documentation for the resulting ambiguity).
func Detect(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	return binary.LittleEndian.Uint32(data[0:4]) == protocol.Magic
}

// EnsureHeadered returns data unchanged if it already carries a header,
// otherwise returns Compose(data, v). Idempotent:
// EnsureHeadered(EnsureHeadered(d, v), v) == EnsureHeadered(d, v).
func EnsureHeadered(data []byte, v Version) []byte {
	if Detect(data) {
		return data
	}
	return Compose(data, v)
}

// Decode parses the header at the start of data. It validates the magic
// constant and nothing else; payload length and checksum are reported as
// stored, not verified against the remaining bytes.
func Decode(data []byte) (*Header, error) {
	if len(data) < protocol.HeaderSize {
		return nil, fmt.Errorf("data too short for header: got %d bytes, need %d", len(data), protocol.HeaderSize)
	}

	h := &Header{
		Magic:    binary.LittleEndian.Uint32(data[0:4]),
		Version:  binary.LittleEndian.Uint32(data[4:8]),
		Length:   binary.LittleEndian.Uint32(data[8:12]),
		Checksum: binary.LittleEndian.Uint32(data[12:16]),
		Reserved: binary.LittleEndian.Uint32(data[16:20]),
	}

	if h.Magic != protocol.Magic {
		return nil, fmt.Errorf("invalid magic: got 0x%08X, expected 0x%08X", h.Magic, protocol.Magic)
	}

	return h, nil
}
