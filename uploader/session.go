package uploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pmoreno/go-uartboot/header"
	"github.com/pmoreno/go-uartboot/protocol"
)

// State is the session lifecycle state.
type State int

const (
	// StateIdle - session created, nothing sent yet
	StateIdle State = iota

	// StateWaitingForBootloader - handshake in progress
	StateWaitingForBootloader

	// StateTransferring - handshake succeeded, chunks being written
	StateTransferring

	// StateAwaitingVerification - all chunks written, reading result lines
	StateAwaitingVerification

	// StateCompleted - terminal: device confirmed the update
	StateCompleted

	// StateFailed - terminal: device rejected the update, the link broke,
	// or the session was cancelled
	StateFailed

	// StateUnclear - terminal: verification window elapsed with no
	// classification; never a success
	StateUnclear
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingForBootloader:
		return "waiting for bootloader"
	case StateTransferring:
		return "transferring"
	case StateAwaitingVerification:
		return "awaiting verification"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateUnclear:
		return "unclear"
	default:
		return "unknown"
	}
}

// readBufferSize is the scratch buffer size for link reads. Bootloader
// output is short human-readable lines; 256 bytes is plenty per read.
const readBufferSize = 256

// Session owns one firmware update attempt over a byte-stream link.
//
// The link must be exclusively owned by the session for the duration of
// the attempt; its Read must return within a bounded time (a serial port
// configured with a read timeout returns (0, nil) when idle). Opening and
// releasing the link is the caller's responsibility, scoped around the
// upload, on every exit path.
//
// A Session is single-use: after any terminal state, create a new one for
// the next attempt. It is not safe for concurrent use.
type Session struct {
	link    io.ReadWriter
	config  Config
	state   State
	readBuf []byte
}

// New creates a Session over the given link.
//
// Example:
//
//	port, _ := serial.Open("/dev/ttyUSB0", mode)
//	defer port.Close()
//	sess := uploader.New(port,
//	    uploader.WithChunkSize(128),
//	    uploader.WithHandshakeTimeout(30*time.Second),
//	)
func New(link io.ReadWriter, opts ...Option) *Session {
	if link == nil {
		panic("link cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		link:    link,
		config:  cfg,
		state:   StateIdle,
		readBuf: make([]byte, readBufferSize),
	}
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Upload performs the complete update operation:
//  1. Reject an empty image
//  2. Prepend the bootloader header unless the image already has one
//  3. Handshake until the bootloader announces readiness
//  4. Write the image in paced chunks
//  5. Classify the device's result lines
//
// The image is never modified; a headered copy is built when needed. The
// operation can be cancelled via context: any abort before completion
// leaves the session failed, never successful. No whole-attempt retries
// are performed; a failed upload requires a fresh session.
func (s *Session) Upload(ctx context.Context, image []byte, v header.Version) error {
	if len(image) == 0 {
		s.state = StateFailed
		return ErrEmptyImage
	}

	payload := header.EnsureHeadered(image, v)
	if len(payload) != len(image) {
		s.logInfo("added bootloader header",
			"version", v.String(),
			"payload_bytes", len(image),
			"crc32", fmt.Sprintf("0x%08X", protocol.Checksum(image)),
		)
	} else {
		s.logInfo("image already has bootloader header", "bytes", len(image))
	}

	if err := s.Handshake(ctx); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	if err := s.Transfer(ctx, payload); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}

	return s.Verify(ctx)
}

// Handshake repeatedly emits the trigger byte and watches the incoming
// byte stream for a readiness banner. It returns nil once the bootloader
// is ready, or *UnresponsiveError when the configured timeout elapses
// first. On success any bytes buffered during polling are discarded so
// stale echoes cannot corrupt verification parsing later.
func (s *Session) Handshake(ctx context.Context) error {
	if s.state != StateIdle {
		return fmt.Errorf("handshake: session is %s, want idle", s.state)
	}
	s.state = StateWaitingForBootloader

	s.reportProgress(Progress{Phase: PhaseHandshake})
	s.logDebug("waiting for bootloader", "timeout", s.config.HandshakeTimeout.String())

	deadline := time.Now().Add(s.config.HandshakeTimeout)
	var window []byte

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			s.state = StateFailed
			return fmt.Errorf("cancelled: %w", err)
		}

		if _, err := s.link.Write([]byte{protocol.TriggerByte}); err != nil {
			s.state = StateFailed
			return fmt.Errorf("send trigger: %w", err)
		}

		time.Sleep(s.config.PollInterval)

		n, err := s.link.Read(s.readBuf)
		if err != nil && err != io.EOF {
			s.state = StateFailed
			return fmt.Errorf("read banner: %w", err)
		}
		if n > 0 {
			window = append(window, s.readBuf[:n]...)
			if protocol.ContainsReadyBanner(window) {
				s.logDebug("bootloader ready", "banner_bytes", len(window))
				s.drain()
				s.state = StateTransferring
				return nil
			}
			// The banner may straddle reads; keep a bounded tail so the
			// window cannot grow without limit on a chatty link.
			if len(window) > 4*readBufferSize {
				window = window[len(window)-readBufferSize:]
			}
		}
	}

	s.state = StateFailed
	return &UnresponsiveError{Timeout: s.config.HandshakeTimeout}
}

// Transfer writes image sequentially in chunks of the configured size,
// pacing each chunk with the configured delay. A chunk whose reported
// write count differs from its length aborts immediately with
// *WriteError. Transfer requires a successful Handshake first.
func (s *Session) Transfer(ctx context.Context, image []byte) error {
	if s.state != StateTransferring {
		return fmt.Errorf("transfer: session is %s, handshake required first", s.state)
	}

	total := len(image)
	start := time.Now()
	s.logInfo("uploading firmware", "bytes", total, "chunk_size", s.config.ChunkSize)

	for sent := 0; sent < total; {
		if err := ctx.Err(); err != nil {
			s.state = StateFailed
			return fmt.Errorf("cancelled at offset %d: %w", sent, err)
		}

		end := sent + s.config.ChunkSize
		if end > total {
			end = total
		}
		chunk := image[sent:end]

		n, err := s.link.Write(chunk)
		if err != nil {
			s.state = StateFailed
			return fmt.Errorf("write chunk at offset %d: %w", sent, err)
		}
		if n != len(chunk) {
			s.state = StateFailed
			return &WriteError{Offset: sent, Wrote: n, Want: len(chunk)}
		}
		sent = end

		s.reportProgress(transferProgress(sent, total, time.Since(start)))

		if s.config.InterChunkDelay > 0 {
			time.Sleep(s.config.InterChunkDelay)
		}
	}

	s.logDebug("upload complete", "bytes", total, "elapsed", time.Since(start).String())
	s.state = StateAwaitingVerification
	return nil
}

// transferProgress derives the observational progress figures for a
// transfer snapshot. Throughput and ETA are instantaneous estimates with
// no effect on protocol behavior.
func transferProgress(sent, total int, elapsed time.Duration) Progress {
	p := Progress{
		Phase:      PhaseTransferring,
		BytesSent:  sent,
		TotalBytes: total,
		Percentage: float64(sent) / float64(total) * 100,
		Elapsed:    elapsed,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		p.Throughput = float64(sent) / secs
		if p.Throughput > 0 {
			p.ETA = time.Duration(float64(total-sent) / p.Throughput * float64(time.Second))
		}
	}
	return p
}

// Verify reads newline-delimited device lines for up to the configured
// window and classifies each one. The first failure line terminates with
// *VerificationFailedError; the first success line (with no prior
// failure) terminates with nil after draining informational lines for the
// grace period. An exhausted window terminates with *UnclearError, which
// is never a success.
func (s *Session) Verify(ctx context.Context) error {
	if s.state != StateAwaitingVerification {
		return fmt.Errorf("verify: session is %s, transfer required first", s.state)
	}

	s.reportProgress(Progress{Phase: PhaseVerifying, Percentage: 100})
	s.logDebug("waiting for verification", "timeout", s.config.VerifyTimeout.String())

	deadline := time.Now().Add(s.config.VerifyTimeout)
	var pending []byte

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			s.state = StateFailed
			return fmt.Errorf("cancelled: %w", err)
		}

		n, err := s.link.Read(s.readBuf)
		if err != nil && err != io.EOF {
			s.state = StateFailed
			return fmt.Errorf("read response: %w", err)
		}
		if n == 0 {
			time.Sleep(s.config.PollInterval)
			continue
		}
		pending = append(pending, s.readBuf[:n]...)

		for {
			line, rest, ok := nextLine(pending)
			if !ok {
				break
			}
			pending = rest
			if line == "" {
				continue
			}

			s.reportLine(line)

			switch protocol.ClassifyLine(line) {
			case protocol.OutcomeFailed:
				s.state = StateFailed
				return &VerificationFailedError{Line: line}
			case protocol.OutcomeCompleted:
				s.logInfo("device confirmed update", "line", line)
				s.drainGrace(ctx)
				s.state = StateCompleted
				s.reportProgress(Progress{Phase: PhaseComplete, Percentage: 100})
				return nil
			}
		}
	}

	s.state = StateUnclear
	return &UnclearError{Timeout: s.config.VerifyTimeout}
}

// drainGrace keeps reading for the grace period after a success
// classification, surfacing any further lines as informational. Lines seen
// here never change the classification.
func (s *Session) drainGrace(ctx context.Context) {
	if s.config.GracePeriod <= 0 {
		return
	}

	deadline := time.Now().Add(s.config.GracePeriod)
	var pending []byte

	for time.Now().Before(deadline) && ctx.Err() == nil {
		n, err := s.link.Read(s.readBuf)
		if err != nil {
			return
		}
		if n == 0 {
			time.Sleep(s.config.PollInterval)
			continue
		}
		pending = append(pending, s.readBuf[:n]...)

		for {
			line, rest, ok := nextLine(pending)
			if !ok {
				break
			}
			pending = rest
			if line != "" {
				s.reportLine(line)
			}
		}
	}
}

// drain discards whatever is currently buffered on the link. Used after
// the handshake so banner echoes do not leak into verification parsing.
func (s *Session) drain() {
	for {
		n, err := s.link.Read(s.readBuf)
		if n == 0 || err != nil {
			return
		}
	}
}

// nextLine pops the first newline-terminated line from buf, trimming CR
// and surrounding whitespace. ok is false when buf holds no complete line
// yet.
func nextLine(buf []byte) (line string, rest []byte, ok bool) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return "", buf, false
	}
	return string(bytes.TrimSpace(buf[:i])), buf[i+1:], true
}

// reportProgress calls the progress callback if configured.
func (s *Session) reportProgress(progress Progress) {
	if s.config.ProgressCallback != nil {
		s.config.ProgressCallback(progress)
	}
}

// reportLine surfaces a device line via the line callback and logger.
func (s *Session) reportLine(line string) {
	if s.config.LineCallback != nil {
		s.config.LineCallback(line)
	}
	s.logDebug("device line", "text", line)
}

// logDebug logs a debug message if a logger is configured.
func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (s *Session) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}
