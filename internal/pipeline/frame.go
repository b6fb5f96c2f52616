package pipeline

import "time"

// Frame is one unit enqueued for the writer: created by
// the timer at each tick, consumed by exactly one writer, then
// discarded.
type Frame struct {
	Payload []byte // raw pixels, PCM samples, or a pre-rendered CSV row

	EnqueuedMonotonic time.Time
	CaptureMonotonic  time.Time
	CaptureUnix       time.Time

	CameraFrameIndex  int64
	DisplayFrameIndex int64

	DroppedFramesTotal   int64
	DuplicatesTotal      int64
	AvailableCameraFPS   float64
	RequestedFPS         float64
	IsDuplicate          bool

	// GazeTimestampUnix is set only by the eye-tracker pipeline, which
	// inserts gaze_timestamp_unix/gaze_timestamp_diff into its timing
	// CSV.
	GazeTimestampUnix time.Time
	HasGazeTimestamp  bool
}
