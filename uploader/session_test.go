package uploader

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pmoreno/go-uartboot/header"
	"github.com/pmoreno/go-uartboot/protocol"
)

// scriptedResponse is one Read's worth of device output. afterBytes gates
// it on transfer progress: the response stays invisible until that many
// image bytes (non-trigger writes) have been received, mimicking a device
// that only speaks once the image has arrived.
type scriptedResponse struct {
	data       []byte
	afterBytes int
}

// MockLink simulates the bootloader end of the serial link for testing.
// Reads pop scripted responses in order; an exhausted script or a not-yet
// unlocked response returns (0, nil) like a serial port read timeout.
type MockLink struct {
	script     []scriptedResponse
	respIdx    int
	writes     [][]byte
	chunkBytes int
	readErr    error
	writeErr   error
	shortNext  bool
}

func NewMockLink() *MockLink {
	return &MockLink{}
}

func (m *MockLink) Read(p []byte) (int, error) {
	if m.readErr != nil {
		return 0, m.readErr
	}
	if m.respIdx < len(m.script) {
		resp := m.script[m.respIdx]
		if m.chunkBytes < resp.afterBytes {
			return 0, nil
		}
		m.respIdx++
		return copy(p, resp.data), nil
	}
	return 0, nil
}

func (m *MockLink) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	m.writes = append(m.writes, buf)
	if len(p) != 1 || p[0] != protocol.TriggerByte {
		m.chunkBytes += len(p)
	}
	if m.shortNext {
		m.shortNext = false
		return len(p) - 1, nil
	}
	return len(p), nil
}

// AddResponse queues bytes for one Read call.
func (m *MockLink) AddResponse(data []byte) {
	m.script = append(m.script, scriptedResponse{data: data})
}

// AddResponseAfterBytes queues bytes that become readable only once n
// image bytes have been written to the link.
func (m *MockLink) AddResponseAfterBytes(n int, data []byte) {
	m.script = append(m.script, scriptedResponse{data: data, afterBytes: n})
}

// ResetWrites clears the recorded writes, keeping the read script.
func (m *MockLink) ResetWrites() {
	m.writes = nil
}

// ChunkWrites returns the recorded writes that are not handshake trigger
// bytes, i.e. the image chunks.
func (m *MockLink) ChunkWrites() [][]byte {
	var chunks [][]byte
	for _, w := range m.writes {
		if len(w) == 1 && w[0] == protocol.TriggerByte {
			continue
		}
		chunks = append(chunks, w)
	}
	return chunks
}

// fastOptions keeps the polling loops tight so tests finish quickly.
func fastOptions(extra ...Option) []Option {
	opts := []Option{
		WithPollInterval(time.Millisecond),
		WithHandshakeTimeout(300 * time.Millisecond),
		WithVerifyTimeout(200 * time.Millisecond),
		WithInterChunkDelay(0),
		WithGracePeriod(0),
	}
	return append(opts, extra...)
}

// newReadySession runs a successful handshake so tests can exercise
// Transfer and Verify in isolation.
func newReadySession(t *testing.T, link *MockLink, opts ...Option) *Session {
	t.Helper()
	link.AddResponse([]byte("Update mode\r\n"))
	sess := New(link, fastOptions(opts...)...)
	if err := sess.Handshake(context.Background()); err != nil {
		t.Fatalf("handshake setup failed: %v", err)
	}
	link.ResetWrites()
	return sess
}

func TestNewNilLink(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New(nil) did not panic")
		}
	}()
	New(nil)
}

func TestHandshake(t *testing.T) {
	t.Run("banner in one read", func(t *testing.T) {
		link := NewMockLink()
		link.AddResponse([]byte("Bootloader v1.0\r\nUpdate mode\r\n"))

		sess := New(link, fastOptions()...)
		if err := sess.Handshake(context.Background()); err != nil {
			t.Fatalf("Handshake() unexpected error: %v", err)
		}
		if sess.State() != StateTransferring {
			t.Errorf("state = %v, want %v", sess.State(), StateTransferring)
		}
	})

	t.Run("banner split across reads", func(t *testing.T) {
		link := NewMockLink()
		link.AddResponse([]byte("Upda"))
		link.AddResponse([]byte("te mode\r\n"))

		sess := New(link, fastOptions()...)
		if err := sess.Handshake(context.Background()); err != nil {
			t.Fatalf("Handshake() unexpected error: %v", err)
		}
	})

	t.Run("alternate banner", func(t *testing.T) {
		link := NewMockLink()
		link.AddResponse([]byte("Waiting for firmware header (30s timeout)...\r\n"))

		sess := New(link, fastOptions()...)
		if err := sess.Handshake(context.Background()); err != nil {
			t.Fatalf("Handshake() unexpected error: %v", err)
		}
	})

	t.Run("timeout yields unresponsive error", func(t *testing.T) {
		link := NewMockLink()
		link.AddResponse([]byte("nothing relevant\r\n"))

		sess := New(link, fastOptions(WithHandshakeTimeout(50*time.Millisecond))...)
		err := sess.Handshake(context.Background())

		var unresponsive *UnresponsiveError
		if !errors.As(err, &unresponsive) {
			t.Fatalf("Handshake() error = %v, want *UnresponsiveError", err)
		}
		if sess.State() != StateFailed {
			t.Errorf("state = %v, want %v", sess.State(), StateFailed)
		}
	})

	t.Run("emits trigger bytes while polling", func(t *testing.T) {
		link := NewMockLink()
		sess := New(link, fastOptions(WithHandshakeTimeout(30*time.Millisecond))...)
		_ = sess.Handshake(context.Background())

		if len(link.writes) == 0 {
			t.Fatal("no trigger bytes written during handshake")
		}
		for i, w := range link.writes {
			if !bytes.Equal(w, []byte{protocol.TriggerByte}) {
				t.Errorf("write %d = % X, want the trigger byte", i, w)
			}
		}
	})

	t.Run("drains buffered bytes on success", func(t *testing.T) {
		link := NewMockLink()
		link.AddResponse([]byte("Update mode\r\n"))
		link.AddResponse([]byte("stale echo that must not reach verification\r\n"))

		sess := New(link, fastOptions()...)
		if err := sess.Handshake(context.Background()); err != nil {
			t.Fatalf("Handshake() unexpected error: %v", err)
		}
		if link.respIdx != len(link.script) {
			t.Errorf("handshake left %d buffered responses undrained", len(link.script)-link.respIdx)
		}
	})

	t.Run("cancelled context fails the session", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		link := NewMockLink()
		sess := New(link, fastOptions()...)
		if err := sess.Handshake(ctx); err == nil {
			t.Fatal("Handshake() = nil error on cancelled context")
		}
		if sess.State() != StateFailed {
			t.Errorf("state = %v, want %v", sess.State(), StateFailed)
		}
	})

	t.Run("rejects non-idle session", func(t *testing.T) {
		link := NewMockLink()
		sess := newReadySession(t, link)
		if err := sess.Handshake(context.Background()); err == nil {
			t.Error("second Handshake() = nil error, want state error")
		}
	})
}

func TestTransfer(t *testing.T) {
	t.Run("chunks cover the image exactly", func(t *testing.T) {
		tests := []struct {
			name      string
			imageSize int
			chunkSize int
			wantSizes []int
		}{
			{name: "aligned", imageSize: 8, chunkSize: 4, wantSizes: []int{4, 4}},
			{name: "short final chunk", imageSize: 10, chunkSize: 4, wantSizes: []int{4, 4, 2}},
			{name: "single chunk", imageSize: 3, chunkSize: 128, wantSizes: []int{3}},
			{name: "chunk size one", imageSize: 3, chunkSize: 1, wantSizes: []int{1, 1, 1}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				image := make([]byte, tt.imageSize)
				for i := range image {
					image[i] = byte(i)
				}

				link := NewMockLink()
				sess := newReadySession(t, link, WithChunkSize(tt.chunkSize))
				if err := sess.Transfer(context.Background(), image); err != nil {
					t.Fatalf("Transfer() unexpected error: %v", err)
				}

				chunks := link.ChunkWrites()
				if len(chunks) != len(tt.wantSizes) {
					t.Fatalf("chunk count = %d, want %d", len(chunks), len(tt.wantSizes))
				}
				var rejoined []byte
				for i, c := range chunks {
					if len(c) != tt.wantSizes[i] {
						t.Errorf("chunk %d size = %d, want %d", i, len(c), tt.wantSizes[i])
					}
					rejoined = append(rejoined, c...)
				}
				if !bytes.Equal(rejoined, image) {
					t.Errorf("rejoined chunks differ from image")
				}
				if sess.State() != StateAwaitingVerification {
					t.Errorf("state = %v, want %v", sess.State(), StateAwaitingVerification)
				}
			})
		}
	})

	t.Run("short write aborts with WriteError", func(t *testing.T) {
		image := make([]byte, 12)
		link := NewMockLink()
		sess := newReadySession(t, link, WithChunkSize(4))
		link.shortNext = true

		err := sess.Transfer(context.Background(), image)
		var werr *WriteError
		if !errors.As(err, &werr) {
			t.Fatalf("Transfer() error = %v, want *WriteError", err)
		}
		if werr.Offset != 0 || werr.Wrote != 3 || werr.Want != 4 {
			t.Errorf("WriteError = %+v, want {Offset:0 Wrote:3 Want:4}", werr)
		}
		if sess.State() != StateFailed {
			t.Errorf("state = %v, want %v", sess.State(), StateFailed)
		}
		// Abort is immediate: only the failed chunk was attempted.
		if got := len(link.ChunkWrites()); got != 1 {
			t.Errorf("chunk writes after abort = %d, want 1", got)
		}
	})

	t.Run("requires a successful handshake", func(t *testing.T) {
		link := NewMockLink()
		sess := New(link, fastOptions()...)
		if err := sess.Transfer(context.Background(), []byte{1, 2, 3}); err == nil {
			t.Error("Transfer() on idle session = nil error")
		}
		if len(link.writes) != 0 {
			t.Errorf("Transfer() wrote %d times despite state error", len(link.writes))
		}
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		link := NewMockLink()
		sess := newReadySession(t, link)
		if err := sess.Transfer(ctx, []byte{1, 2, 3}); err == nil {
			t.Fatal("Transfer() = nil error on cancelled context")
		}
		if sess.State() != StateFailed {
			t.Errorf("state = %v, want %v", sess.State(), StateFailed)
		}
	})

	t.Run("reports monotonic progress", func(t *testing.T) {
		image := make([]byte, 10)
		var snapshots []Progress

		link := NewMockLink()
		sess := newReadySession(t, link,
			WithChunkSize(4),
			WithProgressCallback(func(p Progress) {
				if p.Phase == PhaseTransferring {
					snapshots = append(snapshots, p)
				}
			}),
		)
		if err := sess.Transfer(context.Background(), image); err != nil {
			t.Fatalf("Transfer() unexpected error: %v", err)
		}

		if len(snapshots) != 3 {
			t.Fatalf("progress snapshots = %d, want 3", len(snapshots))
		}
		prev := 0
		for i, p := range snapshots {
			if p.Phase != PhaseTransferring {
				t.Errorf("snapshot %d phase = %q, want %q", i, p.Phase, PhaseTransferring)
			}
			if p.BytesSent <= prev && i > 0 {
				t.Errorf("snapshot %d BytesSent = %d, not increasing", i, p.BytesSent)
			}
			prev = p.BytesSent
		}
		last := snapshots[len(snapshots)-1]
		if last.BytesSent != len(image) || last.Percentage != 100 {
			t.Errorf("final snapshot = %d bytes / %.1f%%, want %d bytes / 100%%", last.BytesSent, last.Percentage, len(image))
		}
	})
}

func TestVerify(t *testing.T) {
	t.Run("success line completes", func(t *testing.T) {
		link := NewMockLink()
		sess := newReadySession(t, link)
		if err := sess.Transfer(context.Background(), []byte{1}); err != nil {
			t.Fatal(err)
		}
		link.AddResponse([]byte("Update successful, verified ok\r\n"))

		if err := sess.Verify(context.Background()); err != nil {
			t.Fatalf("Verify() unexpected error: %v", err)
		}
		if sess.State() != StateCompleted {
			t.Errorf("state = %v, want %v", sess.State(), StateCompleted)
		}
	})

	t.Run("failure line fails", func(t *testing.T) {
		link := NewMockLink()
		sess := newReadySession(t, link)
		if err := sess.Transfer(context.Background(), []byte{1}); err != nil {
			t.Fatal(err)
		}
		link.AddResponse([]byte("CRC mismatch detected\r\n"))

		err := sess.Verify(context.Background())
		var vfail *VerificationFailedError
		if !errors.As(err, &vfail) {
			t.Fatalf("Verify() error = %v, want *VerificationFailedError", err)
		}
		if vfail.Line != "CRC mismatch detected" {
			t.Errorf("failure line = %q", vfail.Line)
		}
		if sess.State() != StateFailed {
			t.Errorf("state = %v, want %v", sess.State(), StateFailed)
		}
	})

	t.Run("no line before timeout is unclear", func(t *testing.T) {
		link := NewMockLink()
		sess := newReadySession(t, link, WithVerifyTimeout(50*time.Millisecond))
		if err := sess.Transfer(context.Background(), []byte{1}); err != nil {
			t.Fatal(err)
		}

		err := sess.Verify(context.Background())
		if !IsUnclear(err) {
			t.Fatalf("Verify() error = %v, want *UnclearError", err)
		}
		if sess.State() != StateUnclear {
			t.Errorf("state = %v, want %v", sess.State(), StateUnclear)
		}
	})

	t.Run("unclassified lines keep the window open", func(t *testing.T) {
		link := NewMockLink()
		sess := newReadySession(t, link)
		if err := sess.Transfer(context.Background(), []byte{1}); err != nil {
			t.Fatal(err)
		}
		link.AddResponse([]byte("Receiving data...\r\nWriting flash...\r\n"))
		link.AddResponse([]byte("Firmware update successful!\r\n"))

		if err := sess.Verify(context.Background()); err != nil {
			t.Fatalf("Verify() unexpected error: %v", err)
		}
	})

	t.Run("failure line before success line wins", func(t *testing.T) {
		link := NewMockLink()
		sess := newReadySession(t, link)
		if err := sess.Transfer(context.Background(), []byte{1}); err != nil {
			t.Fatal(err)
		}
		link.AddResponse([]byte("ERROR: CRC mismatch!\r\nUpdate successful\r\n"))

		var vfail *VerificationFailedError
		if err := sess.Verify(context.Background()); !errors.As(err, &vfail) {
			t.Fatalf("Verify() error = %v, want *VerificationFailedError", err)
		}
	})

	t.Run("line split across reads", func(t *testing.T) {
		link := NewMockLink()
		sess := newReadySession(t, link)
		if err := sess.Transfer(context.Background(), []byte{1}); err != nil {
			t.Fatal(err)
		}
		link.AddResponse([]byte("Update succ"))
		link.AddResponse([]byte("essful\r\n"))

		if err := sess.Verify(context.Background()); err != nil {
			t.Fatalf("Verify() unexpected error: %v", err)
		}
	})

	t.Run("grace period surfaces trailing lines", func(t *testing.T) {
		link := NewMockLink()
		var lines []string
		sess := newReadySession(t, link,
			WithGracePeriod(30*time.Millisecond),
			WithLineCallback(func(line string) { lines = append(lines, line) }),
		)
		if err := sess.Transfer(context.Background(), []byte{1}); err != nil {
			t.Fatal(err)
		}
		link.AddResponse([]byte("Update successful\r\n"))
		link.AddResponse([]byte("Booting application...\r\n"))

		if err := sess.Verify(context.Background()); err != nil {
			t.Fatalf("Verify() unexpected error: %v", err)
		}
		if sess.State() != StateCompleted {
			t.Errorf("state = %v, want %v", sess.State(), StateCompleted)
		}

		want := []string{"Update successful", "Booting application..."}
		if len(lines) != len(want) {
			t.Fatalf("surfaced lines = %q, want %q", lines, want)
		}
		for i := range want {
			if lines[i] != want[i] {
				t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
			}
		}
	})

	t.Run("requires a finished transfer", func(t *testing.T) {
		link := NewMockLink()
		sess := New(link, fastOptions()...)
		if err := sess.Verify(context.Background()); err == nil {
			t.Error("Verify() on idle session = nil error")
		}
	})
}

func TestUpload(t *testing.T) {
	t.Run("end to end with raw image", func(t *testing.T) {
		firmware := []byte{0x13, 0x00, 0x00, 0x00}
		v := header.Version{Major: 1, Minor: 0, Patch: 0}
		imageSize := len(header.Compose(firmware, v))

		link := NewMockLink()
		link.AddResponse([]byte("Update mode\r\n"))
		link.AddResponseAfterBytes(imageSize, []byte("Firmware update successful!\r\n"))

		sess := New(link, fastOptions()...)
		if err := sess.Upload(context.Background(), firmware, v); err != nil {
			t.Fatalf("Upload() unexpected error: %v", err)
		}
		if sess.State() != StateCompleted {
			t.Errorf("state = %v, want %v", sess.State(), StateCompleted)
		}

		var sent []byte
		for _, c := range link.ChunkWrites() {
			sent = append(sent, c...)
		}
		want := header.Compose(firmware, v)
		if !bytes.Equal(sent, want) {
			t.Errorf("sent image (%d bytes) differs from composed image (%d bytes)", len(sent), len(want))
		}
	})

	t.Run("already headered image is not wrapped again", func(t *testing.T) {
		v := header.Version{Major: 1, Minor: 0, Patch: 0}
		image := header.Compose([]byte{0xAA, 0xBB}, v)

		link := NewMockLink()
		link.AddResponse([]byte("Update mode\r\n"))
		link.AddResponseAfterBytes(len(image), []byte("Update successful\r\n"))

		sess := New(link, fastOptions()...)
		if err := sess.Upload(context.Background(), image, v); err != nil {
			t.Fatalf("Upload() unexpected error: %v", err)
		}

		var sent []byte
		for _, c := range link.ChunkWrites() {
			sent = append(sent, c...)
		}
		if !bytes.Equal(sent, image) {
			t.Errorf("sent %d bytes, want the %d-byte image unchanged", len(sent), len(image))
		}
	})

	t.Run("empty image rejected before touching the link", func(t *testing.T) {
		link := NewMockLink()
		sess := New(link, fastOptions()...)

		err := sess.Upload(context.Background(), nil, header.DefaultVersion)
		if !errors.Is(err, ErrEmptyImage) {
			t.Fatalf("Upload() error = %v, want ErrEmptyImage", err)
		}
		if len(link.writes) != 0 {
			t.Errorf("Upload() wrote %d times for empty image", len(link.writes))
		}
		if sess.State() != StateFailed {
			t.Errorf("state = %v, want %v", sess.State(), StateFailed)
		}
	})

	t.Run("unresponsive bootloader never receives the image", func(t *testing.T) {
		link := NewMockLink()
		sess := New(link, fastOptions(WithHandshakeTimeout(50*time.Millisecond))...)

		err := sess.Upload(context.Background(), []byte{1, 2, 3}, header.DefaultVersion)
		var unresponsive *UnresponsiveError
		if !errors.As(err, &unresponsive) {
			t.Fatalf("Upload() error = %v, want *UnresponsiveError", err)
		}
		if got := len(link.ChunkWrites()); got != 0 {
			t.Errorf("image chunks written despite failed handshake: %d", got)
		}
	})

	t.Run("cancellation is never reported as success", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		link := NewMockLink()
		link.AddResponse([]byte("Update mode\r\n"))

		sess := New(link, fastOptions()...)
		if err := sess.Upload(ctx, []byte{1}, header.DefaultVersion); err == nil {
			t.Fatal("Upload() = nil error on cancelled context")
		}
		if sess.State() == StateCompleted {
			t.Error("cancelled upload reported as completed")
		}
	})
}
