package header

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a firmware version as stored in the image header. Each
// component occupies one byte of the packed 32-bit field.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

// DefaultVersion is used when the caller does not supply a version.
var DefaultVersion = Version{Major: 1, Minor: 0, Patch: 0}

// InvalidVersionError indicates a version string or tuple that does not
// fit the header's packing scheme.
type InvalidVersionError struct {
	Input  string
	Reason string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %s (use X.Y.Z with each component 0-255)", e.Input, e.Reason)
}

// ParseVersion parses an "X.Y.Z" version string. Exactly three
// dot-separated decimal components are required, each in 0-255.
//
// Example:
//
//	v, err := header.ParseVersion("1.2.3")
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, &InvalidVersionError{Input: s, Reason: fmt.Sprintf("expected 3 components, got %d", len(parts))}
	}

	var components [3]uint8
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return Version{}, &InvalidVersionError{Input: s, Reason: fmt.Sprintf("component %d (%q) is not a number in 0-255", i+1, part)}
		}
		components[i] = uint8(n)
	}

	return Version{Major: components[0], Minor: components[1], Patch: components[2]}, nil
}

// NewVersion builds a Version from integer components, validating that
// each fits the one-byte range the packing scheme allows.
func NewVersion(major, minor, patch int) (Version, error) {
	for _, c := range []struct {
		name  string
		value int
	}{
		{"major", major},
		{"minor", minor},
		{"patch", patch},
	} {
		if c.value < 0 || c.value > 255 {
			return Version{}, &InvalidVersionError{
				Input:  fmt.Sprintf("%d.%d.%d", major, minor, patch),
				Reason: fmt.Sprintf("%s component %d out of range", c.name, c.value),
			}
		}
	}

	return Version{Major: uint8(major), Minor: uint8(minor), Patch: uint8(patch)}, nil
}

// Pack encodes the version into the header's 32-bit representation:
// major<<16 | minor<<8 | patch.
func (v Version) Pack() uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)<<8 | uint32(v.Patch)
}

// UnpackVersion decodes a packed 32-bit version field. Bits above the
// packed components are ignored.
func UnpackVersion(u uint32) Version {
	return Version{
		Major: uint8(u >> 16),
		Minor: uint8(u >> 8),
		Patch: uint8(u),
	}
}

// String returns the version in "X.Y.Z" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
