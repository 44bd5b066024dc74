package protocol

// Image header constants shared with the bootloader's header parser.
const (
	// Magic identifies a valid bootloader image header. Stored
	// little-endian as the first 4 bytes of a headered image.
	Magic uint32 = 0xB007ABCD

	// HeaderSize is the total size of the image header in bytes:
	// MAGIC(4) + VERSION(4) + LENGTH(4) + CHECKSUM(4) + RESERVED(4)
	HeaderSize = 20
)

// Link framing parameters. The bootloader's UART is hardwired to these;
// they are not negotiated.
const (
	// DefaultBaudRate is the bootloader's fixed UART rate.
	// Framing is always 8 data bits, no parity, 1 stop bit, no flow control.
	DefaultBaudRate = 115200
)

// Handshake constants.
const (
	// TriggerByte is sent repeatedly to request update mode while the
	// bootloader's boot window is open.
	TriggerByte = 'U'
)

// ReadyBanners are the substrings the bootloader prints once it is
// listening for an image. Observing any of them in the handshake byte
// stream means the device is ready to receive.
var ReadyBanners = []string{
	"Update mode",
	"Waiting for",
}

// Keyword sets for classifying the bootloader's free-form result lines.
// Matching is case-insensitive substring search. The sets are disjoint by
// construction; within a single line, failure keywords take precedence.
//
// These mirror the deployed bootloader firmware's output and must not be
// extended or "improved" independently of it.
var (
	// SuccessKeywords indicate the update was accepted and verified.
	SuccessKeywords = []string{"successful", "verified ok", "update successful"}

	// FailureKeywords indicate the update was rejected.
	FailureKeywords = []string{"error", "failed", "mismatch"}
)

// DefaultChunkSize is the recommended transfer chunk size in bytes. The
// bootloader has no flow control, so chunks are paced rather than sized to
// a protocol limit; 128 bytes with a short inter-chunk delay keeps the
// device's receive loop comfortably ahead at the fixed baud rate.
const DefaultChunkSize = 128
