package uploader

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyImage indicates a zero-length firmware image, which the upload
// path rejects before touching the link.
var ErrEmptyImage = errors.New("firmware image is empty")

// UnresponsiveError indicates the handshake deadline elapsed with no
// readiness banner from the bootloader.
type UnresponsiveError struct {
	Timeout time.Duration
}

func (e *UnresponsiveError) Error() string {
	return fmt.Sprintf("bootloader unresponsive: no readiness banner within %s", e.Timeout)
}

// WriteError indicates a chunk write reported fewer bytes than requested.
// The session aborts immediately; there is no partial-success reporting.
type WriteError struct {
	Offset int
	Wrote  int
	Want   int
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("short write at offset %d: wrote %d of %d bytes", e.Offset, e.Wrote, e.Want)
}

// VerificationFailedError indicates the device reported an explicit
// failure line during verification.
type VerificationFailedError struct {
	Line string
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("device reported failure: %q", e.Line)
}

// UnclearError indicates the verification window elapsed with no success
// or failure keyword observed. This is a distinct non-success outcome:
// callers must never treat it as a completed update.
type UnclearError struct {
	Timeout time.Duration
}

func (e *UnclearError) Error() string {
	return fmt.Sprintf("verification unclear: no confirmation within %s", e.Timeout)
}

// IsUnclear returns true if the error is an UnclearError. Callers that
// want to surface the unclear outcome distinctly (it is neither a
// confirmed failure nor a success) can branch on this.
func IsUnclear(err error) bool {
	var unclear *UnclearError
	return errors.As(err, &unclear)
}
