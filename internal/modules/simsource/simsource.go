// Package simsource implements the simulated capture loop every
// concrete module's base.Source uses in place of a real device
// driver. A Loop paces sample generation with a token-bucket rate
// limiter rather than a bare time.Sleep, so a steady per-second rate
// holds even when individual generate calls take uneven time.
package simsource

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/JoelCooperPhD/sessionctl/internal/pipeline"
)

// Generator produces one sample for sequence number seq at time now.
// Returning ok=false simulates a capture stall for this tick: the
// caller submits nothing, so the pipeline's timer duplicates the
// previous frame instead.
type Generator func(seq int64, now time.Time) (f pipeline.Frame, ok bool)

// Loop drives a Generator at a fixed rate until its context is
// cancelled, implementing base.Source.
type Loop struct {
	limiter *rate.Limiter
	gen     Generator
}

// NewLoop returns a Loop calling gen up to hz times per second. hz
// must be positive.
func NewLoop(hz float64, gen Generator) *Loop {
	if hz <= 0 {
		hz = 1
	}
	return &Loop{limiter: rate.NewLimiter(rate.Limit(hz), 1), gen: gen}
}

// Start implements base.Source: it blocks, calling gen and submitting
// every sample it produces, until ctx is cancelled.
func (l *Loop) Start(ctx context.Context, submit func(pipeline.Frame)) error {
	var seq int64
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil // context cancelled: a clean stop, not an error
		}
		seq++
		if f, ok := l.gen(seq, time.Now()); ok {
			submit(f)
		}
	}
}

// Close implements base.Source. The simulated loop holds no device
// handle to release.
func (l *Loop) Close() error { return nil }
