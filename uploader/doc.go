// Package uploader drives one firmware update attempt against the RISC-V
// UART bootloader over a byte-stream link.
//
// # Overview
//
// A Session walks a fixed state machine:
//
//	Idle -> WaitingForBootloader -> Transferring -> AwaitingVerification
//	     -> Completed | Failed | Unclear
//
// The phases, in order:
//   - Handshake: emit the trigger byte on a short cadence until the
//     bootloader prints a readiness banner, bounded by a timeout.
//   - Transfer: write the headered image in paced chunks; any short write
//     aborts the session.
//   - Verify: read the device's free-form result lines and classify them
//     by keyword. No keyword within the window yields the distinct
//     Unclear outcome, which is never a success.
//
// # Basic Usage
//
//	image, err := uploader.Load("app.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	port, err := serial.Open("/dev/ttyUSB0", mode) // caller owns the link
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	sess := uploader.New(port)
//	err = sess.Upload(context.Background(), image, header.DefaultVersion)
//
// The image may be raw or already headered; Upload detects the header by
// its magic bytes and never wraps twice.
//
// # Link requirements
//
// The session does blocking, single-threaded I/O with explicit deadlines
// at every wait point. The link's Read must return within a bounded time:
// configure a serial port with a short read timeout so idle reads return
// (0, nil) instead of blocking forever. Exactly one session may hold the
// link at a time; opening and closing it is the caller's job, on every
// exit path.
//
// # Progress and device output
//
//	sess := uploader.New(port,
//	    uploader.WithProgressCallback(func(p uploader.Progress) {
//	        fmt.Printf("[%s] %.1f%%\n", p.Phase, p.Percentage)
//	    }),
//	    uploader.WithLineCallback(func(line string) {
//	        fmt.Printf("  %s\n", line)
//	    }),
//	)
//
// # Error Handling
//
// Every terminal outcome is a typed error: *UnresponsiveError (handshake
// deadline), *WriteError (short chunk write), *VerificationFailedError
// (explicit failure line), *UnclearError (window exhausted), ErrEmptyImage
// (zero-length input). None are retried or downgraded; only the per-poll
// handshake non-response is retried internally, bounded by the handshake
// timeout. Use errors.As, or IsUnclear to distinguish the unclear outcome:
//
//	err := sess.Upload(ctx, image, v)
//	switch {
//	case err == nil:
//	    // completed
//	case uploader.IsUnclear(err):
//	    // no confirmation either way - do NOT treat as success
//	default:
//	    // failed
//	}
package uploader
