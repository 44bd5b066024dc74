// Package header composes and inspects the 20-byte image header the UART
// bootloader expects in front of a firmware payload.
//
// # Layout
//
// All fields are 32-bit little-endian:
//
//	offset 0  MAGIC     0xB007ABCD
//	offset 4  VERSION   major<<16 | minor<<8 | patch
//	offset 8  LENGTH    byte length of the firmware payload
//	offset 12 CHECKSUM  CRC32 of the payload (header excluded)
//	offset 16 RESERVED  always zero
//
// # Usage
//
//	v, err := header.ParseVersion("1.2.3")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	image := header.Compose(firmware, v)
//
// EnsureHeadered guards against double-wrapping when the input may already
// carry a header:
//
//	image := header.EnsureHeadered(firmware, v)
//
// # Detection caveat
//
// An image is considered headered iff its first 4 bytes, read
// little-endian, equal the magic constant. No length or checksum
// cross-check is performed, so a raw payload that coincidentally begins
// with the magic bytes is misclassified as already headered. The deployed
// bootloader applies the same 4-byte test, so tightening the rule here
// alone would desynchronize host and device; it stays as is.
package header
