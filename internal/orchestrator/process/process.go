package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

// defaultInitTimeout is the default init_timeout.
const defaultInitTimeout = 15 * time.Second

// commandWriter serialises command lines onto the child's stdin so
// concurrent Send calls never interleave partial writes.
type commandWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *commandWriter) write(line []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.w.Write(line)
	return err
}

// Process owns one module child's OS process and stdio streams.
// All state transitions are serialised
// through mu so the orchestrator can call Send and Stop from
// arbitrary goroutines.
type Process struct {
	spec Spec
	log  *logging.Logger

	mu       sync.Mutex
	state    State
	cmd      *exec.Cmd
	stdin    *commandWriter
	geometry Geometry
	hasGeom  bool

	statuses    chan protocol.Status
	closeStatus sync.Once
	exited      chan struct{} // closed once cmd.Wait() returns
	waitErr     error         // valid only after exited is closed
	sup         *suture.Supervisor
	cancel      context.CancelFunc

	// OnStateChange, if set, is called (outside mu) on every
	// transition - the orchestrator uses it to notice CRASHED without
	// polling.
	OnStateChange func(s State)
}

// New returns an idle Process for spec.
func New(spec Spec, log *logging.Logger) *Process {
	return &Process{
		spec:     spec,
		log:      log,
		state:    StateIdle,
		statuses: make(chan protocol.Status, 64),
	}
}

// Statuses returns the channel of parsed status lines the child
// emits. Closed once the status-reading goroutine exits.
func (p *Process) Statuses() <-chan protocol.Status { return p.statuses }

// State returns the current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastGeometry returns the last geometry_changed payload recorded, if
// any.
func (p *Process) LastGeometry() (Geometry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.geometry, p.hasGeom
}

// closeStatuses is safe to call more than once (e.g. if suture
// retries Serve after a transient error): only the first call closes
// the channel.
func (p *Process) closeStatuses() {
	p.closeStatus.Do(func() { close(p.statuses) })
}

// recordGeometry is called by the status reader whenever a
// geometry_changed status arrives, so the orchestrator can replay it
// on the module's next start.
func (p *Process) recordGeometry(g Geometry) {
	p.mu.Lock()
	p.geometry = g
	p.hasGeom = true
	p.mu.Unlock()
}

func (p *Process) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	if p.OnStateChange != nil {
		p.OnStateChange(s)
	}
}

// Spawn launches the child (moving to SPAWNING from whatever state the
// process was in), wiring stdout to the
// status reader, stdin to command delivery, and stderr to a per-module
// log file.
// extraArgs typically carries --session-dir and initial geometry
// flags computed by the caller. Spawn blocks until the child reports
// "initialized", exits early, or initTimeout elapses.
func (p *Process) Spawn(ctx context.Context, extraArgs []string, initTimeout time.Duration) error {
	p.setState(StateSpawning)

	if initTimeout <= 0 {
		initTimeout = defaultInitTimeout
	}

	runCtx, cancel := context.WithCancel(ctx)
	args := append(append([]string{}, p.spec.Args...), extraArgs...)
	cmd := exec.CommandContext(runCtx, p.spec.Entrypoint, args...)
	cmd.Cancel = nil // Stop handles graceful shutdown explicitly

	if p.spec.LogDir != "" {
		if err := os.MkdirAll(p.spec.LogDir, 0o755); err != nil {
			cancel()
			p.setState(StateCrashed)
			return fmt.Errorf("create module log dir: %w", err)
		}
		logFile, err := os.OpenFile(filepath.Join(p.spec.LogDir, p.spec.Name+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			cancel()
			p.setState(StateCrashed)
			return fmt.Errorf("open module log file: %w", err)
		}
		cmd.Stderr = logFile
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		p.setState(StateCrashed)
		return fmt.Errorf("module stdout pipe: %w", err)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		p.setState(StateCrashed)
		return fmt.Errorf("module stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		p.setState(StateCrashed)
		return fmt.Errorf("start module %q: %w", p.spec.Name, err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.stdin = &commandWriter{w: stdin}
	p.cancel = cancel
	p.mu.Unlock()

	// The status reader runs as a suture service: if the JSON line
	// reader panics on malformed input, suture restarts it instead of
	// silently losing the child's status stream for the rest of the
	// process's life.
	p.sup = suture.NewSimple(p.spec.Name + "-io")
	p.sup.Add(&statusReaderService{proc: p, stdout: stdout, log: p.log})
	go func() { _ = p.sup.Serve(runCtx) }()

	exited := make(chan struct{})
	p.exited = exited
	go func() {
		waitErr := cmd.Wait()
		p.mu.Lock()
		p.waitErr = waitErr
		p.mu.Unlock()
		close(exited)
	}()

	initialized := make(chan struct{})
	go p.watchForInit(initialized)

	select {
	case <-initialized:
		p.setState(StateRunning)
	case <-exited:
		cancel()
		p.setState(StateCrashed)
		return fmt.Errorf("module %q exited before init: %w", p.spec.Name, p.waitErr)
	case <-time.After(initTimeout):
		cancel()
		p.setState(StateCrashed)
		return fmt.Errorf("module %q did not report initialized within %s", p.spec.Name, initTimeout)
	}

	go p.watchForExit(exited)
	return nil
}

// watchForInit blocks until the first "initialized" status arrives
// (the caller races this against process exit and a timeout).
func (p *Process) watchForInit(done chan<- struct{}) {
	for st := range p.statuses {
		if st.Status == protocol.StatusInitialized {
			close(done)
			return
		}
	}
}

// watchForExit marks the process CRASHED on an unexpected exit. A
// stop initiated via Stop already transitions through
// STOPPING/STOPPED first, so this is a no-op in that case.
func (p *Process) watchForExit(exited <-chan struct{}) {
	<-exited
	p.mu.Lock()
	state := p.state
	err := p.waitErr
	p.mu.Unlock()
	if state != StateStopping && state != StateStopped {
		p.log.WithError(err).WithField("module", p.spec.Name).Warn("module exited unexpectedly")
		p.setState(StateCrashed)
	}
}

// Send serialises one command to the child's stdin.
func (p *Process) Send(name string, params map[string]interface{}) error {
	p.mu.Lock()
	w := p.stdin
	p.mu.Unlock()
	if w == nil {
		return fmt.Errorf("module %q has no active stdin", p.spec.Name)
	}
	line, err := protocol.EncodeCommand(name, params)
	if err != nil {
		return err
	}
	return w.write(line)
}

// Stop requests a graceful shutdown (quit), waits up to graceTimeout
// for the process to exit on its own, then escalates to SIGTERM and
// finally SIGKILL, the same ladder used to shut down ffmpeg
// children.
func (p *Process) Stop(graceTimeout time.Duration) error {
	p.setState(StateStopping)
	_ = p.Send(protocol.CmdQuit, nil)

	p.mu.Lock()
	cmd := p.cmd
	exited := p.exited
	cancel := p.cancel
	p.mu.Unlock()

	defer func() {
		if cancel != nil {
			cancel()
		}
	}()

	if cmd == nil || cmd.Process == nil || exited == nil {
		p.setState(StateStopped)
		return nil
	}

	select {
	case <-exited:
		p.setState(StateStopped)
		return nil
	case <-time.After(graceTimeout):
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-exited:
		p.setState(StateStopped)
		return nil
	case <-time.After(2 * time.Second):
	}

	_ = cmd.Process.Kill()
	<-exited
	p.setState(StateStopped)
	return nil
}
