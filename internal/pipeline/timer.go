package pipeline

import (
	"context"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

// Timer paces output at a fixed frame rate by consuming a LatestFrameSlot
// on every tick and pushing the result onto a Queue.
//
// Tick k is due at t0 + k/fps. After each tick the timer computes
// next = current + 1/fps; if the actual wait overshot that deadline
// (a slow Queue.Put, GC pause, or scheduler contention), next is
// advanced in 1/fps steps until it lands in the future, so a single
// stall never causes a burst of back-to-back emissions trying to
// "catch up" - ticks are simply skipped instead.
type Timer struct {
	slot        *LatestFrameSlot
	queue       *Queue
	fps         float64
	log         *logging.Logger
	skipStalled bool

	duplicatesTotal    int64
	skippedFramesTotal int64
	displayFrameIndex  int64
}

// NewTimer returns a Timer that drains slot into queue at fps ticks
// per second. fps must be positive.
func NewTimer(slot *LatestFrameSlot, queue *Queue, fps float64, log *logging.Logger) *Timer {
	return &Timer{slot: slot, queue: queue, fps: fps, log: log}
}

// Run drives ticks until ctx is cancelled, then returns once the
// current tick (if any) has been handled. It does not close queue;
// the caller closes it after Run returns so in-flight items still
// drain to the writer.
func (t *Timer) Run(ctx context.Context) {
	if t.fps <= 0 {
		t.fps = 1
	}
	period := time.Duration(float64(time.Second) / t.fps)

	t0 := time.Now()
	next := t0.Add(period)

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-timer.C:
			t.tick(now)

			next = next.Add(period)
			for !next.After(now) {
				next = next.Add(period)
			}
			timer.Reset(time.Until(next))
		}
	}
}

func (t *Timer) tick(now time.Time) {
	f, result := t.slot.Take()

	switch result {
	case TakeNeverCaptured:
		t.skippedFramesTotal++
		return
	case TakeDuplicate:
		if t.skipStalled {
			t.skippedFramesTotal++
			return
		}
		t.duplicatesTotal++
		f.IsDuplicate = true
	case TakeFresh:
		f.IsDuplicate = false
	}

	t.displayFrameIndex++
	f.DisplayFrameIndex = t.displayFrameIndex
	f.EnqueuedMonotonic = now
	f.DuplicatesTotal = t.duplicatesTotal
	f.RequestedFPS = t.fps

	t.queue.Put(f)
}

// DuplicatesTotal returns the cumulative count of ticks that repeated
// the previous frame.
func (t *Timer) DuplicatesTotal() int64 { return t.duplicatesTotal }

// SkippedFramesTotal returns the cumulative count of ticks that wrote
// nothing: ticks before any frame was captured, plus stalled ticks
// when SkipStalledTicks is set.
func (t *Timer) SkippedFramesTotal() int64 { return t.skippedFramesTotal }
