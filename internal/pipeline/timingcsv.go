package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// timingCSVHeader is the fixed column order for every media file's
// timing CSV. The eye-tracker pipeline inserts two extra
// gaze columns after camera_timestamp_diff.
const timingCSVHeader = "frame_number,write_time_unix,write_time_iso,expected_delta,actual_delta,delta_error,queue_delay,capture_latency,write_duration,queue_backlog_after,camera_frame_index,display_frame_index,camera_timestamp_unix,camera_timestamp_diff,available_camera_fps,dropped_frames_total,duplicates_total,is_duplicate"

const timingCSVHeaderWithGaze = "frame_number,write_time_unix,write_time_iso,expected_delta,actual_delta,delta_error,queue_delay,capture_latency,write_duration,queue_backlog_after,camera_frame_index,display_frame_index,camera_timestamp_unix,camera_timestamp_diff,gaze_timestamp_unix,gaze_timestamp_diff,available_camera_fps,dropped_frames_total,duplicates_total,is_duplicate"

// TimingCSVHeader and TimingCSVHeaderWithGaze re-export the fixed
// column order for internal/testsupport's schema assertions, so the
// test harness checks against the same literal the writer uses rather
// than a hand-copied duplicate.
const (
	TimingCSVHeader         = timingCSVHeader
	TimingCSVHeaderWithGaze = timingCSVHeaderWithGaze
)

// TimingCSV records one row per written frame alongside the media
// file it describes. It is owned exclusively by the writer goroutine.
type TimingCSV struct {
	f            *os.File
	w            *bufio.Writer
	withGaze     bool
	frameNumber  int64
	lastWrite    time.Time
	lastCamTS    time.Time
	lastGazeTS   time.Time
	expectedStep time.Duration
}

// NewTimingCSV creates the timing CSV at outputPath. expectedStep is
// 1/fps, used to compute expected_delta.
func NewTimingCSV(outputPath string, expectedStep time.Duration, withGaze bool) (*TimingCSV, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create timing csv dir: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	header := timingCSVHeader
	if withGaze {
		header = timingCSVHeaderWithGaze
	}
	if _, err := w.WriteString(header + "\n"); err != nil {
		f.Close()
		return nil, err
	}
	return &TimingCSV{f: f, w: w, withGaze: withGaze, expectedStep: expectedStep}, nil
}

// Record appends one row describing f as it is handed to the writer.
// writeDuration is how long the encoder/file write itself took;
// queueBacklogAfter is the queue depth observed immediately after.
func (t *TimingCSV) Record(f Frame, writeDuration time.Duration, queueBacklogAfter int) error {
	now := time.Now()
	t.frameNumber++

	var actualDelta, queueDelay, captureLatency time.Duration
	if !t.lastWrite.IsZero() {
		actualDelta = now.Sub(t.lastWrite)
	}
	if !f.EnqueuedMonotonic.IsZero() {
		queueDelay = now.Sub(f.EnqueuedMonotonic)
	}
	if !f.CaptureMonotonic.IsZero() {
		captureLatency = f.EnqueuedMonotonic.Sub(f.CaptureMonotonic)
	}
	deltaError := actualDelta - t.expectedStep
	t.lastWrite = now

	var camTSDiff time.Duration
	if !t.lastCamTS.IsZero() && !f.CaptureUnix.IsZero() {
		camTSDiff = f.CaptureUnix.Sub(t.lastCamTS)
	}
	if !f.CaptureUnix.IsZero() {
		t.lastCamTS = f.CaptureUnix
	}

	fields := []string{
		strconv.FormatInt(t.frameNumber, 10),
		formatUnix(now),
		now.Format(time.RFC3339Nano),
		formatDuration(t.expectedStep),
		formatDuration(actualDelta),
		formatDuration(deltaError),
		formatDuration(queueDelay),
		formatDuration(captureLatency),
		formatDuration(writeDuration),
		strconv.Itoa(queueBacklogAfter),
		strconv.FormatInt(f.CameraFrameIndex, 10),
		strconv.FormatInt(f.DisplayFrameIndex, 10),
		formatUnixOrEmpty(f.CaptureUnix),
		formatDurationOrEmpty(camTSDiff, f.CaptureUnix.IsZero()),
	}

	if t.withGaze {
		var gazeDiff time.Duration
		if !t.lastGazeTS.IsZero() && f.HasGazeTimestamp {
			gazeDiff = f.GazeTimestampUnix.Sub(t.lastGazeTS)
		}
		if f.HasGazeTimestamp {
			t.lastGazeTS = f.GazeTimestampUnix
		}
		fields = append(fields,
			formatUnixOrEmptyIf(f.GazeTimestampUnix, !f.HasGazeTimestamp),
			formatDurationOrEmpty(gazeDiff, !f.HasGazeTimestamp),
		)
	}

	fields = append(fields,
		strconv.FormatFloat(f.AvailableCameraFPS, 'f', -1, 64),
		strconv.FormatInt(f.DroppedFramesTotal, 10),
		strconv.FormatInt(f.DuplicatesTotal, 10),
		boolDigit(f.IsDuplicate),
	)

	line := ""
	for i, field := range fields {
		if i > 0 {
			line += ","
		}
		line += field
	}
	_, err := t.w.WriteString(line + "\n")
	return err
}

// Close flushes and closes the underlying file.
func (t *TimingCSV) Close() error {
	if err := t.w.Flush(); err != nil {
		t.f.Close()
		return err
	}
	return t.f.Close()
}

func formatUnix(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', 6, 64)
}

func formatUnixOrEmpty(t time.Time) string {
	return formatUnixOrEmptyIf(t, t.IsZero())
}

func formatUnixOrEmptyIf(t time.Time, empty bool) string {
	if empty {
		return ""
	}
	return formatUnix(t)
}

func formatDuration(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 6, 64)
}

func formatDurationOrEmpty(d time.Duration, empty bool) string {
	if empty {
		return ""
	}
	return formatDuration(d)
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
