package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

// Config describes one Pipeline instance: a fixed-rate recording
// channel bound to a single source device.
type Config struct {
	FPS            float64
	QueueCapacity  int
	TimingCSVPath  string
	TimingWithGaze bool
	Writer         Writer

	// SkipStalledTicks disables the duplicate-on-stall policy: a tick
	// with no fresh frame produces no output at all instead of
	// re-emitting the previous frame. Event-driven channels (operator
	// notes) set this so a quiet interval never repeats the last row;
	// sampled media leave it false.
	SkipStalledTicks bool
}

// Pipeline runs the capture -> timer -> queue -> writer chain for one
// source device. Capture delivery happens out of
// band via Submit; the Timer and the writer loop each own a goroutine
// started by Start.
type Pipeline struct {
	slot  LatestFrameSlot
	queue *Queue
	timer *Timer
	timing *TimingCSV
	writer Writer
	log    *logging.Logger

	timerWG  sync.WaitGroup
	writerWG sync.WaitGroup
}

// New builds a Pipeline from cfg. The timing CSV is created
// immediately so a failure surfaces before recording starts.
func New(cfg Config, log *logging.Logger) (*Pipeline, error) {
	step := time.Duration(float64(time.Second) / cfg.FPS)
	timing, err := NewTimingCSV(cfg.TimingCSVPath, step, cfg.TimingWithGaze)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		queue:  NewQueue(cfg.QueueCapacity),
		timing: timing,
		writer: cfg.Writer,
		log:    log,
	}
	p.timer = NewTimer(&p.slot, p.queue, cfg.FPS, log)
	p.timer.skipStalled = cfg.SkipStalledTicks
	return p, nil
}

// Submit delivers a newly captured frame to the pacing timer's
// mailbox. Safe to call concurrently with Start/Stop.
func (p *Pipeline) Submit(f Frame) {
	f.CaptureMonotonic = time.Now()
	p.slot.Put(f)
}

// Start launches the timer and writer goroutines. ctx cancellation
// stops the timer; Stop must still be called afterward to drain the
// queue and release the writer and timing file.
func (p *Pipeline) Start(ctx context.Context) {
	p.timerWG.Add(1)
	go func() {
		defer p.timerWG.Done()
		p.timer.Run(ctx)
	}()
	p.writerWG.Add(1)
	go func() {
		defer p.writerWG.Done()
		p.runWriter()
	}()
}

func (p *Pipeline) runWriter() {
	for {
		f, ok := p.queue.Get()
		if !ok {
			return
		}
		start := time.Now()
		if err := p.writer.WriteFrame(f); err != nil {
			p.log.WithError(err).Warn("pipeline: writer dropped a frame")
		}
		writeDuration := time.Since(start)
		f.DroppedFramesTotal = p.queue.Dropped()
		if err := p.timing.Record(f, writeDuration, p.queue.Len()); err != nil {
			p.log.WithError(err).Warn("pipeline: failed to record timing row")
		}
	}
}

// timerJoinTimeout and writerDrainTimeout bound how long Stop waits
// for each goroutine before escalating past it; a writer wedged on a
// blocked encoder pipe must not hang the whole module's shutdown.
var (
	timerJoinTimeout   = 2 * time.Second
	writerDrainTimeout = 5 * time.Second
)

// waitTimeout waits on wg up to d, reporting whether it finished.
func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// Stop runs the shutdown sequence: the
// timer must exit before the queue is closed (so no new item is
// pushed after closing), the writer then drains every already-queued
// frame before its goroutine exits, and the encoder/timing resources
// are released last. Every step runs even if an earlier one reports
// an error or overruns its join bound; the first error from closing the
// writer or the timing file is returned.
func (p *Pipeline) Stop(ctx context.Context) error {
	<-ctx.Done() // caller cancels the Start context to stop the timer first

	// Timer join is bounded; Queue.Put on a closed queue is a no-op,
	// so escalating past a wedged timer is safe.
	if !waitTimeout(&p.timerWG, timerJoinTimeout) {
		p.log.Warn("pipeline: timer did not exit within its join bound")
	}

	p.queue.Close()
	if !waitTimeout(&p.writerWG, writerDrainTimeout) {
		p.log.Warn("pipeline: writer did not drain within its join bound, releasing the encoder anyway")
	}

	// Encoder teardown (waiting on ffmpeg, or flushing+fsync'ing a WAV/CSV
	// file) and the timing-CSV flush are independent blocking calls; run
	// them on a small offload group rather than serially stalling the
	// caller's event loop.
	var g errgroup.Group
	g.Go(p.writer.Close)
	g.Go(p.timing.Close)
	return g.Wait()
}
