package simsource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoelCooperPhD/sessionctl/internal/pipeline"
)

func TestLoopSubmitsAtConfiguredRate(t *testing.T) {
	var seqs []int64
	loop := NewLoop(100, func(seq int64, now time.Time) (pipeline.Frame, bool) {
		return pipeline.Frame{CameraFrameIndex: seq}, true
	})

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- loop.Start(ctx, func(f pipeline.Frame) { seqs = append(seqs, f.CameraFrameIndex) })
	}()

	err := <-done
	require.NoError(t, err)
	assert.Greater(t, len(seqs), 5)
	for i := 1; i < len(seqs); i++ {
		assert.Equal(t, seqs[i-1]+1, seqs[i])
	}
}

func TestLoopSkipsSubmitWhenGeneratorReportsStall(t *testing.T) {
	var calls, submitted int
	loop := NewLoop(200, func(seq int64, now time.Time) (pipeline.Frame, bool) {
		calls++
		return pipeline.Frame{}, seq%2 == 0
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := loop.Start(ctx, func(f pipeline.Frame) { submitted++ })
	require.NoError(t, err)
	assert.Greater(t, calls, 0)
	assert.Less(t, submitted, calls)
}

func TestLoopCloseIsNoop(t *testing.T) {
	loop := NewLoop(10, func(seq int64, now time.Time) (pipeline.Frame, bool) {
		return pipeline.Frame{}, true
	})
	assert.NoError(t, loop.Close())
}

func TestNewLoopDefaultsNonPositiveRate(t *testing.T) {
	loop := NewLoop(0, func(seq int64, now time.Time) (pipeline.Frame, bool) {
		return pipeline.Frame{}, true
	})
	require.NotNil(t, loop.limiter)
}
