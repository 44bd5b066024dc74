// Command uartboot uploads a firmware image to the RISC-V UART bootloader.
//
// Usage:
//
//	uartboot -port /dev/ttyUSB0 -file app.bin
//	uartboot -port COM3 -file app.bin -version 1.2.3
//
// Raw binaries get a bootloader header prepended automatically; files that
// already carry one are sent as-is. Exit code is 0 only when the device
// confirms the update; an unclear outcome (no confirmation either way)
// exits nonzero with its own message.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.bug.st/serial"

	"github.com/pmoreno/go-uartboot/header"
	"github.com/pmoreno/go-uartboot/protocol"
	"github.com/pmoreno/go-uartboot/uploader"
)

// linkReadTimeout bounds every serial read so the session's polling loops
// never block indefinitely.
const linkReadTimeout = 100 * time.Millisecond

func main() {
	portName := flag.String("port", "", "serial port (e.g. /dev/ttyUSB0, COM3)")
	file := flag.String("file", "", "firmware binary to upload")
	versionStr := flag.String("version", "1.0.0", "firmware version (X.Y.Z), used when the image has no header")
	baud := flag.Int("baud", protocol.DefaultBaudRate, "baud rate")
	chunkSize := flag.Int("chunk", protocol.DefaultChunkSize, "transfer chunk size in bytes")
	handshakeTimeout := flag.Duration("handshake-timeout", 30*time.Second, "how long to wait for the bootloader")
	verifyTimeout := flag.Duration("verify-timeout", 10*time.Second, "how long to wait for the verification result")
	quiet := flag.Bool("q", false, "suppress the progress bar")
	flag.Parse()

	if *portName == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "usage: uartboot -port <port> -file <firmware.bin> [-version X.Y.Z]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	version, err := header.ParseVersion(*versionStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}

	image, err := uploader.Load(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	describeImage(image, version)

	// SIGINT cancels the session; an aborted upload is reported as a
	// failure, never as success.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = upload(ctx, *portName, *baud, image, version, *chunkSize, *handshakeTimeout, *verifyTimeout, *quiet)
	switch {
	case err == nil:
		fmt.Println("Upload completed successfully!")
	case uploader.IsUnclear(err):
		fmt.Fprintf(os.Stderr, "WARNING: upload status unclear: %v\n", err)
		fmt.Fprintln(os.Stderr, "The device gave no confirmation either way; do not assume the update took.")
		os.Exit(3)
	default:
		fmt.Fprintf(os.Stderr, "ERROR: upload failed: %v\n", err)
		os.Exit(1)
	}
}

// describeImage prints what is about to be sent, decoding the header when
// the file already carries one.
func describeImage(image []byte, version header.Version) {
	fmt.Printf("Firmware size: %d bytes\n", len(image))

	if h, err := header.Decode(image); err == nil {
		fmt.Printf("Image already headered: version %s, payload %d bytes, CRC32 0x%08X\n",
			header.UnpackVersion(h.Version), h.Length, h.Checksum)
		return
	}
	fmt.Printf("Will add header: version %s, CRC32 0x%08X\n", version, protocol.Checksum(image))
}

func upload(ctx context.Context, portName string, baud int, image []byte, version header.Version,
	chunkSize int, handshakeTimeout, verifyTimeout time.Duration, quiet bool) error {

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	fmt.Printf("Opening %s @ %d baud...\n", portName, baud)
	port, err := serial.Open(portName, mode)
	if err != nil {
		return fmt.Errorf("open serial port: %w", err)
	}
	defer port.Close()

	if err := port.SetReadTimeout(linkReadTimeout); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}

	opts := []uploader.Option{
		uploader.WithChunkSize(chunkSize),
		uploader.WithHandshakeTimeout(handshakeTimeout),
		uploader.WithVerifyTimeout(verifyTimeout),
		uploader.WithLineCallback(func(line string) {
			fmt.Printf("  %s\n", line)
		}),
	}

	var bar *progressbar.ProgressBar
	if !quiet {
		opts = append(opts, uploader.WithProgressCallback(func(p uploader.Progress) {
			switch p.Phase {
			case uploader.PhaseHandshake:
				fmt.Println("Waiting for bootloader...")
			case uploader.PhaseTransferring:
				if bar == nil {
					bar = progressbar.NewOptions(p.TotalBytes,
						progressbar.OptionSetDescription("Uploading"),
						progressbar.OptionSetWidth(40),
						progressbar.OptionShowBytes(true),
					)
				}
				_ = bar.Set(p.BytesSent)
			case uploader.PhaseVerifying:
				if bar != nil {
					_ = bar.Finish()
				}
				fmt.Println("\nUpload complete, waiting for verification...")
			}
		}))
	}

	sess := uploader.New(port, opts...)
	return sess.Upload(ctx, image, version)
}
