package uploader

import "time"

// Phase names reported in Progress.Phase.
const (
	// PhaseHandshake - waiting for the bootloader readiness banner
	PhaseHandshake = "handshake"

	// PhaseTransferring - writing image chunks
	PhaseTransferring = "transferring"

	// PhaseVerifying - reading the device's result lines
	PhaseVerifying = "verifying"

	// PhaseComplete - update classified as completed
	PhaseComplete = "complete"
)

// Progress contains information about an upload in flight. All fields are
// observational: they never influence protocol behavior or the final
// classification.
type Progress struct {
	// Phase is the current session phase (see the Phase constants)
	Phase string

	// BytesSent is the number of image bytes written so far
	BytesSent int

	// TotalBytes is the full image size including the header
	TotalBytes int

	// Percentage is the completion percentage of the transfer (0.0 to 100.0)
	Percentage float64

	// Throughput is the instantaneous transfer rate in bytes per second
	Throughput float64

	// ETA is the estimated time remaining for the transfer
	ETA time.Duration

	// Elapsed is the time since the transfer started
	Elapsed time.Duration
}

// ProgressCallback is called during the transfer to report progress.
// Implementations should return quickly; the callback runs on the upload
// goroutine between chunk writes.
type ProgressCallback func(Progress)

// LineCallback receives each text line the device reports during
// verification and the post-success grace period, already trimmed of line
// endings. Useful for echoing device output to the user.
type LineCallback func(line string)

// Logger is an optional logging interface that can be provided to the
// session. This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	sess := uploader.New(link, uploader.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
