package cameras

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoelCooperPhD/sessionctl/internal/pipeline"
)

func TestFfmpegArgsBuildsExpectedPipeline(t *testing.T) {
	args := ffmpegArgs(640, 480, 30, "/tmp/out.mp4")
	assert.Contains(t, args, "-y")
	assert.Contains(t, args, "640x480")
	assert.Contains(t, args, "bgr24")
	assert.Contains(t, args, "libx264")
	assert.Contains(t, args, "/tmp/out.mp4")
}

func TestQueueCapacityHasFloor(t *testing.T) {
	assert.Equal(t, 30, queueCapacity(5))
	assert.Equal(t, 60, queueCapacity(30))
}

func TestSourceGenerateProducesFullFrameAndUpdatesLastFrame(t *testing.T) {
	lf := &lastFrame{}
	s := newSource(4, 2, 30, 0, lf)

	f, ok := s.generate(1, time.Now())
	require.True(t, ok)
	assert.Len(t, f.Payload, 4*2*3)

	payload, w, h := lf.snapshot()
	assert.Equal(t, f.Payload, payload)
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)
}

func TestSourceGenerateStallsOnConfiguredInterval(t *testing.T) {
	lf := &lastFrame{}
	s := newSource(4, 2, 30, 3, lf)

	_, ok := s.generate(3, time.Now())
	assert.False(t, ok)

	_, ok = s.generate(1, time.Now())
	assert.True(t, ok)
}

func TestSourceLoopRespectsContextCancellation(t *testing.T) {
	lf := &lastFrame{}
	s := newSource(2, 2, 100, 0, lf)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var frames []pipeline.Frame
	err := s.Start(ctx, func(f pipeline.Frame) { frames = append(frames, f) })
	require.NoError(t, err)
	assert.Greater(t, len(frames), 0)
	assert.NoError(t, s.Close())
}
