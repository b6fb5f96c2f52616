package runtime

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

// commandQueueCapacity bounds the slave-mode command channel so a
// burst of piped input can't grow without limit.
const commandQueueCapacity = 100

// RunSlaveMode reads newline-delimited commands from r and dispatches
// each to d until r reaches EOF or a handler returns ErrStopDispatch.
// The read loop runs on its own goroutine so the dispatch loop stays
// a blocking receive rather than polling - "must not loop on
// timeouts"
func RunSlaveMode(ctx context.Context, r io.Reader, d *Dispatcher, log *logging.Logger) {
	reader := bufio.NewReader(r)
	cmds := make(chan protocol.Command, commandQueueCapacity)

	go func() {
		defer close(cmds)
		for {
			cmd, err := protocol.ReadCommand(reader)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				log.WithError(err).Warn("slave mode: malformed command line, skipping")
				continue
			}
			select {
			case cmds <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case cmd, ok := <-cmds:
			if !ok {
				return // stdin EOF: initiate shutdown
			}
			if err := d.Dispatch(ctx, cmd); errors.Is(err, ErrStopDispatch) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunHeadlessMode auto-starts recording via autoStart (when configured
// and devices are selected) then idles until ctx is cancelled, mapping
// to the shutdown signal.
func RunHeadlessMode(ctx context.Context, autoStart func(ctx context.Context) error, log *logging.Logger) {
	if autoStart != nil {
		if err := autoStart(ctx); err != nil {
			log.WithError(err).Warn("headless mode: auto-start failed")
		}
	}
	<-ctx.Done()
}

// GUIDriver abstracts the windowing toolkit's cooperative pump: Pump
// processes one batch of pending events and reports whether the
// window still exists.
type GUIDriver interface {
	Pump() (windowAlive bool)
}

// GUIModeConfig configures RunGUIMode's three concurrent
// responsibilities: the toolkit pump, a preview update
// task, and an optional stdin command listener for when the module is
// launched as a child of the master.
type GUIModeConfig struct {
	Driver          GUIDriver
	PumpInterval    time.Duration // ~10ms
	PreviewInterval time.Duration // ~10Hz cameras, ~20Hz audio meters
	PreviewTick     func(ctx context.Context)
	StdinCommands   io.Reader // nil when not launched as a child
	Dispatcher      *Dispatcher
}

// RunGUIMode drives the toolkit pump at PumpInterval, runs PreviewTick
// at PreviewInterval, and - when StdinCommands is set, i.e. the module
// was spawned by the master with a redirected stdin - also runs
// RunSlaveMode concurrently so the GUI stays remote-controllable.
func RunGUIMode(ctx context.Context, cfg GUIModeConfig, log *logging.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.StdinCommands != nil && cfg.Dispatcher != nil {
		go func() {
			RunSlaveMode(ctx, cfg.StdinCommands, cfg.Dispatcher, log)
			cancel()
		}()
	}

	if cfg.PreviewTick != nil && cfg.PreviewInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.PreviewInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					cfg.PreviewTick(ctx)
				}
			}
		}()
	}

	pumpInterval := cfg.PumpInterval
	if pumpInterval <= 0 {
		pumpInterval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(pumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cfg.Driver != nil && !cfg.Driver.Pump() {
				return // window no longer exists: flag shutdown
			}
		}
	}
}
