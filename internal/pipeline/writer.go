package pipeline

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

// Writer consumes frames from a Queue and persists them to a media
// sink. Each concrete writer owns exactly one sink and is driven by a
// single goroutine, so no Writer
// implementation needs internal locking around its sink.
type Writer interface {
	// WriteFrame persists one frame. Called only from the pipeline's
	// writer goroutine.
	WriteFrame(f Frame) error
	// Close flushes and releases the sink. Safe to call once, after
	// the queue has been fully drained.
	Close() error
}

// RunWriter drains queue into w until the queue is closed and empty,
// logging (but not aborting on) individual WriteFrame errors so a
// single bad frame doesn't stop the recording early.
func RunWriter(queue *Queue, w Writer, log *logging.Logger) {
	for {
		f, ok := queue.Get()
		if !ok {
			return
		}
		if err := w.WriteFrame(f); err != nil {
			log.WithError(err).Warn("writer: dropping frame after write failure")
		}
	}
}

// FFmpegWriter pipes raw frame payloads to an ffmpeg subprocess over
// stdin, letting ffmpeg perform the encode and container muxing. The
// process lifecycle is close stdin, bounded wait, SIGTERM, SIGKILL.
type FFmpegWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	log    *logging.Logger
	waitCh chan error
}

// NewFFmpegWriter starts ffmpeg with args (which must read raw frames
// from stdin and write the finished file to outputPath) and returns a
// Writer bound to its stdin pipe.
func NewFFmpegWriter(ctx context.Context, args []string, outputPath string, log *logging.Logger) (*FFmpegWriter, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Cancel = nil // graceful shutdown is handled explicitly in Close, not via ctx cancellation

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	return &FFmpegWriter{cmd: cmd, stdin: stdin, log: log, waitCh: waitCh}, nil
}

func (w *FFmpegWriter) WriteFrame(f Frame) error {
	_, err := w.stdin.Write(f.Payload)
	return err
}

// Close closes ffmpeg's stdin so it flushes and exits on its own,
// waits up to five seconds, then escalates to SIGTERM and finally
// SIGKILL if it hasn't exited.
func (w *FFmpegWriter) Close() error {
	_ = w.stdin.Close()

	select {
	case err := <-w.waitCh:
		return err
	case <-time.After(5 * time.Second):
	}

	if w.cmd.Process != nil {
		_ = w.cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case err := <-w.waitCh:
		return err
	case <-time.After(2 * time.Second):
	}

	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	return <-w.waitCh
}

// WAVWriter writes PCM frame payloads into a RIFF/WAVE container,
// patching the header lengths on Close once the total sample count is
// known.
type WAVWriter struct {
	f             *os.File
	w             *bufio.Writer
	sampleRate    int
	channels      int
	bitsPerSample int
	dataBytes     int64
}

// NewWAVWriter creates outputPath and writes a placeholder WAV header
// to be patched in on Close.
func NewWAVWriter(outputPath string, sampleRate, channels, bitsPerSample int) (*WAVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, err
	}
	ww := &WAVWriter{f: f, w: bufio.NewWriter(f), sampleRate: sampleRate, channels: channels, bitsPerSample: bitsPerSample}
	if err := ww.writeHeader(0); err != nil {
		f.Close()
		return nil, err
	}
	return ww, nil
}

func (w *WAVWriter) writeHeader(dataBytes int64) error {
	byteRate := w.sampleRate * w.channels * w.bitsPerSample / 8
	blockAlign := w.channels * w.bitsPerSample / 8

	buf := make([]byte, 44)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataBytes))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(w.bitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataBytes))

	if _, err := w.f.WriteAt(buf, 0); err != nil {
		return err
	}
	_, err := w.f.Seek(44, io.SeekStart)
	return err
}

func (w *WAVWriter) WriteFrame(f Frame) error {
	n, err := w.w.Write(f.Payload)
	w.dataBytes += int64(n)
	return err
}

func (w *WAVWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return err
	}
	if err := w.writeHeader(w.dataBytes); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// CSVRowWriter appends pre-rendered CSV rows for channels that are
// already row-shaped at capture time (GPS fixes, device events, notes)
// rather than needing a media encoder.
type CSVRowWriter struct {
	f *os.File
	w *bufio.Writer
}

// NewCSVRowWriter creates outputPath and writes header as the first
// line if non-empty.
func NewCSVRowWriter(outputPath string, header string) (*CSVRowWriter, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	if header != "" {
		if _, err := w.WriteString(header + "\n"); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &CSVRowWriter{f: f, w: w}, nil
}

func (w *CSVRowWriter) WriteFrame(f Frame) error {
	if _, err := w.w.Write(f.Payload); err != nil {
		return err
	}
	_, err := w.w.WriteString("\n")
	return err
}

func (w *CSVRowWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
