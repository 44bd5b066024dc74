package protocol

// Checksum algorithm constants.
const (
	// CRC32Polynomial is the reflected (LSB-first) CRC-32 polynomial.
	CRC32Polynomial uint32 = 0xEDB88320

	// CRC32InitialValue is the CRC-32 initial accumulator value.
	CRC32InitialValue uint32 = 0xFFFFFFFF

	// BitsPerByte is the number of bits per byte
	BitsPerByte = 8
)

// Checksum computes the 32-bit integrity code over data.
//
// The algorithm is the standard reflected CRC-32: the accumulator starts
// all-ones; each input byte is XORed into the low byte, followed by eight
// shift-and-conditional-XOR steps with CRC32Polynomial; the final
// accumulator is complemented.
//
// This is written as an explicit bitwise loop rather than a table lookup
// so it can be reviewed line-for-line against the bootloader's C
// implementation, which it must match exactly. It is pure and total:
// deterministic, allocation-free, no error conditions. Checksum(nil)
// returns 0.
func Checksum(data []byte) uint32 {
	crc := CRC32InitialValue

	for _, b := range data {
		crc ^= uint32(b)
		for i := 0; i < BitsPerByte; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ CRC32Polynomial
			} else {
				crc >>= 1
			}
		}
	}

	return ^crc
}
