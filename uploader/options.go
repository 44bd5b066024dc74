package uploader

import (
	"time"

	"github.com/pmoreno/go-uartboot/protocol"
)

// Config holds the session configuration. Built once from options at
// session creation and immutable afterward.
type Config struct {
	// ChunkSize is the number of image bytes written per chunk
	ChunkSize int

	// InterChunkDelay is the pause after each chunk write. The link has
	// no flow control, so this pacing keeps the device's receive loop
	// ahead of the host; it is tuning, not correctness.
	InterChunkDelay time.Duration

	// HandshakeTimeout bounds the whole handshake phase
	HandshakeTimeout time.Duration

	// PollInterval is the trigger-byte cadence during handshake and the
	// idle-read pause during verification
	PollInterval time.Duration

	// VerifyTimeout bounds the verification read window
	VerifyTimeout time.Duration

	// GracePeriod is how long informational lines are drained after a
	// success classification
	GracePeriod time.Duration

	// ProgressCallback is called during transfer to report progress (optional)
	ProgressCallback ProgressCallback

	// LineCallback receives device-reported lines (optional)
	LineCallback LineCallback

	// Logger is used for logging operations (optional)
	Logger Logger
}

// defaultConfig returns the default configuration. The timing values match
// the bootloader's boot window and output cadence.
func defaultConfig() Config {
	return Config{
		ChunkSize:        protocol.DefaultChunkSize,
		InterChunkDelay:  10 * time.Millisecond,
		HandshakeTimeout: 30 * time.Second,
		PollInterval:     100 * time.Millisecond,
		VerifyTimeout:    10 * time.Second,
		GracePeriod:      2 * time.Second,
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithChunkSize sets the transfer chunk size in bytes. Values below 1 are
// ignored.
//
// Example:
//
//	sess := uploader.New(link, uploader.WithChunkSize(64))
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size >= 1 {
			c.ChunkSize = size
		}
	}
}

// WithInterChunkDelay sets the pause after each chunk write. Zero disables
// pacing entirely.
func WithInterChunkDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.InterChunkDelay = d
		}
	}
}

// WithHandshakeTimeout bounds how long the session waits for the
// bootloader readiness banner.
//
// Example:
//
//	sess := uploader.New(link, uploader.WithHandshakeTimeout(10*time.Second))
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.HandshakeTimeout = d
		}
	}
}

// WithPollInterval sets the handshake trigger cadence and the idle-read
// pause during verification.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

// WithVerifyTimeout bounds the verification read window.
func WithVerifyTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.VerifyTimeout = d
		}
	}
}

// WithGracePeriod sets how long informational lines are drained after a
// success classification. Zero disables the drain.
func WithGracePeriod(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.GracePeriod = d
		}
	}
}

// WithProgressCallback sets a callback function to track transfer progress.
//
// Example:
//
//	sess := uploader.New(link,
//	    uploader.WithProgressCallback(func(p uploader.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLineCallback sets a callback that receives device-reported lines.
func WithLineCallback(callback LineCallback) Option {
	return func(c *Config) {
		c.LineCallback = callback
	}
}

// WithLogger sets a logger for session operations.
//
// Example:
//
//	sess := uploader.New(link, uploader.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
