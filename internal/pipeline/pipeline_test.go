package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

func TestLatestFrameSlotDistinguishesFreshDuplicateAndNeverCaptured(t *testing.T) {
	var s LatestFrameSlot

	_, result := s.Take()
	assert.Equal(t, TakeNeverCaptured, result)

	s.Put(Frame{CameraFrameIndex: 1})
	f, result := s.Take()
	assert.Equal(t, TakeFresh, result)
	assert.Equal(t, int64(1), f.CameraFrameIndex)

	f, result = s.Take()
	assert.Equal(t, TakeDuplicate, result)
	assert.Equal(t, int64(1), f.CameraFrameIndex)
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)
	q.Put(Frame{CameraFrameIndex: 1})
	q.Put(Frame{CameraFrameIndex: 2})
	q.Put(Frame{CameraFrameIndex: 3})

	assert.Equal(t, int64(1), q.Dropped())

	f, ok := q.Get()
	require.True(t, ok)
	assert.Equal(t, int64(2), f.CameraFrameIndex)

	f, ok = q.Get()
	require.True(t, ok)
	assert.Equal(t, int64(3), f.CameraFrameIndex)
}

func TestQueueGetReturnsFalseAfterCloseAndDrain(t *testing.T) {
	q := NewQueue(4)
	q.Put(Frame{CameraFrameIndex: 1})
	q.Close()

	_, ok := q.Get()
	require.True(t, ok)

	_, ok = q.Get()
	assert.False(t, ok)
}

type fakeWriter struct {
	frames []Frame
}

func (w *fakeWriter) WriteFrame(f Frame) error {
	w.frames = append(w.frames, f)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestTimerSkipsUntilFirstCaptureThenDuplicatesOnStall(t *testing.T) {
	var slot LatestFrameSlot
	queue := NewQueue(1000)
	timer := NewTimer(&slot, queue, 100, logging.NewTestLogger("pipeline"))

	ctx, cancel := context.WithCancel(context.Background())
	go timer.Run(ctx)

	time.Sleep(15 * time.Millisecond) // a few ticks with no capture: skipped
	slot.Put(Frame{CameraFrameIndex: 1})
	time.Sleep(50 * time.Millisecond) // frame 1 repeats on every subsequent tick
	cancel()
	time.Sleep(5 * time.Millisecond)

	assert.Greater(t, timer.SkippedFramesTotal(), int64(0))
	assert.Greater(t, timer.DuplicatesTotal(), int64(0))
	assert.Greater(t, queue.Len(), 0)
}

func TestPipelineDuplicatesUnderStallWithOneTimingRowPerFrame(t *testing.T) {
	dir := t.TempDir()
	w := &fakeWriter{}

	cfg := Config{
		FPS:           100,
		QueueCapacity: 2000,
		TimingCSVPath: filepath.Join(dir, "timing.csv"),
		Writer:        w,
	}
	p, err := New(cfg, logging.NewTestLogger("pipeline"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	idx := int64(0)
	stop := time.After(200 * time.Millisecond)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-stop:
			break loop
		case <-ticker.C:
			idx++
			// A capture source that only delivers every other tick,
			// forcing the timer to duplicate in between.
			if idx%2 == 0 {
				p.Submit(Frame{CameraFrameIndex: idx})
			}
		}
	}

	cancel()
	require.NoError(t, p.Stop(ctx))

	assert.Greater(t, len(w.frames), 0)
	assert.Greater(t, p.timer.DuplicatesTotal(), int64(0))

	data, err := os.ReadFile(cfg.TimingCSVPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Equal(t, timingCSVHeader, lines[0])
	assert.Equal(t, len(w.frames)+1, len(lines))
}

// stalledWriter blocks every WriteFrame until release is closed,
// standing in for an ffmpeg child whose stdin pipe has wedged.
type stalledWriter struct {
	release chan struct{}
	closed  bool
}

func (w *stalledWriter) WriteFrame(Frame) error {
	<-w.release
	return nil
}

func (w *stalledWriter) Close() error {
	w.closed = true
	return nil
}

func TestStopEscalatesPastStalledWriterWithinBound(t *testing.T) {
	origTimer, origWriter := timerJoinTimeout, writerDrainTimeout
	timerJoinTimeout, writerDrainTimeout = 100*time.Millisecond, 200*time.Millisecond
	defer func() { timerJoinTimeout, writerDrainTimeout = origTimer, origWriter }()

	w := &stalledWriter{release: make(chan struct{})}
	defer close(w.release)

	p, err := New(Config{
		FPS:           100,
		QueueCapacity: 100,
		TimingCSVPath: filepath.Join(t.TempDir(), "timing.csv"),
		Writer:        w,
	}, logging.NewTestLogger("pipeline"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	p.Submit(Frame{CameraFrameIndex: 1})
	time.Sleep(50 * time.Millisecond) // let the timer enqueue and the writer block
	cancel()

	done := make(chan error, 1)
	go func() { done <- p.Stop(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not escalate past the stalled writer within its bounds")
	}
	assert.True(t, w.closed, "encoder must still be released after the drain bound expires")
}

func TestWAVWriterProducesValidHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWAVWriter(path, 16000, 1, 16)
	require.NoError(t, err)

	require.NoError(t, w.WriteFrame(Frame{Payload: make([]byte, 320)}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 44+320)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "data", string(data[36:40]))
}

func TestCSVRowWriterWritesHeaderThenRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVRowWriter(path, "a,b,c")
	require.NoError(t, err)

	require.NoError(t, w.WriteFrame(Frame{Payload: []byte("1,2,3")}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b,c\n1,2,3\n", string(data))
}
