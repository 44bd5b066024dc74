// Package protocol defines the wire-level contract shared with the RISC-V
// UART bootloader.
//
// The bootloader speaks two layers over the same raw serial link:
//
//   - An inbound binary layer: a 20-byte little-endian image header
//     followed by the firmware payload, integrity-protected by a CRC32
//     (see package header for the header codec and Checksum in this
//     package for the CRC).
//
//   - An outbound text layer: free-form, newline-delimited, human-readable
//     status lines. There is no structured acknowledgment; the host
//     classifies the outcome by matching keyword substrings against each
//     line (see ClassifyLine).
//
// # Checksum
//
// Checksum implements the reflected CRC32 (polynomial 0xEDB88320, initial
// value 0xFFFFFFFF, final complement) used by the bootloader's own
// verification loop. The two implementations must match bit-for-bit; this
// is the compatibility contract between host tooling and device firmware,
// so the algorithm here must never be changed independently of the device
// side.
//
//	crc := protocol.Checksum(firmware)
//
// # Result classification
//
// Device output is matched case-insensitively against fixed keyword sets:
//
//	protocol.ClassifyLine("Update successful, verified ok") // OutcomeCompleted
//	protocol.ClassifyLine("ERROR: CRC mismatch!")           // OutcomeFailed
//	protocol.ClassifyLine("Receiving data...")              // OutcomeUnclear
//
// A line matching both sets classifies as failed. Keyword matching against
// free-form text is a fragile contract, but it is the one the deployed
// bootloader firmware defines; the sets here mirror its uart_puts output
// verbatim.
package protocol
