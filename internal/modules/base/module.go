// Package base implements the generic module runtime scaffold shared
// by every concrete recording module (internal/modules/audio, cameras,
// gps, eyetracker, drt, vog, notes). It wires a protocol.StatusWriter,
// a runtime.Dispatcher with the standard start/stop/status/geometry
// handlers, and an internal/pipeline.Pipeline lifecycle, leaving each
// concrete module to supply only its device Source and output Writer.
package base

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/pipeline"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
	"github.com/JoelCooperPhD/sessionctl/internal/runtime"
)

// Source produces frames for one recording run. Start must block,
// calling submit for every captured frame, until ctx is cancelled;
// Close releases whatever device handle or simulated generator Start
// acquired. A concrete module's Source is typically a simulated sensor
// loop.
type Source interface {
	Start(ctx context.Context, submit func(pipeline.Frame)) error
	Close() error
}

// WriterFactory builds the Writer that will persist frames to
// outputPath for one recording run.
type WriterFactory func(outputPath string) (pipeline.Writer, error)

// InitFunc runs once before the dispatch loop starts, typically device
// discovery. Returning an error wrapping runtime.ErrInitialization
// tells the Supervisor to retry rather than give up.
type InitFunc func(ctx context.Context) error

// RunModeFunc drives the command dispatch loop for whichever mode the
// module was launched in (slave/headless/gui/interactive); set by the
// cmd/module entrypoint once it has resolved the mode from flags and
// stdin's TTY-ness.
type RunModeFunc func(ctx context.Context, d *runtime.Dispatcher)

// Config describes one concrete module's wiring into the shared
// scaffold.
type Config struct {
	Name              string // module id: "audio", "cameras", "gps", ...
	MediaExtension    string // ".wav", ".mp4", ".csv"
	FPS               float64
	QueueCapacity     int
	TimingWithGaze    bool
	SkipStalledTicks  bool // event-driven channels: never duplicate on a quiet tick
	DefaultSessionDir string

	// NewSource builds the Source for one recording run. It receives
	// the constructed Module so a concrete module's capture loop can
	// push live status_report updates (level meters, GPS fixes, gaze
	// samples) through m.StatusWriter() between get_status polls,
	// keeping the orchestrator's cached report fresh.
	NewSource func(m *Module) (Source, error)
	NewWriter WriterFactory

	Init    InitFunc
	RunMode RunModeFunc

	// ExtraHandlers lets a concrete module add commands beyond the
	// standard four (e.g. toggle_device, set_lens, add_note), and may
	// override get_status to report module-specific fields alongside
	// ReportFields' base set. Built after the Module exists so
	// handlers can close over it.
	ExtraHandlers func(m *Module) map[string]runtime.HandlerFunc

	// PreviewTick, when set, is invoked at PreviewHz by GUI mode's
	// preview task. Headless/slave mode never calls it.
	PreviewTick func(m *Module)
	PreviewHz   float64
}

// Module is the shared runtime.System implementation every concrete
// module embeds. The zero value is not usable; construct with New.
type Module struct {
	cfg        Config
	log        *logging.Logger
	status     *protocol.StatusWriter
	recording  *runtime.RecordingState
	dispatcher *runtime.Dispatcher

	mu         sync.Mutex
	trial      int
	label      string
	sessionDir string
	deviceID   string

	geomWidth, geomHeight, geomX, geomY int
	hasGeom                             bool

	pl          *pipeline.Pipeline
	src         Source
	runCtx      context.Context
	cancelRun   context.CancelFunc
	sourceDone  chan struct{}
}

// New builds a Module: wires the standard dispatcher handlers, then
// lets cfg.ExtraHandlers register module-specific ones. shutdown is
// invoked by the built-in quit handler (runtime.NewDispatcher).
func New(cfg Config, status *protocol.StatusWriter, log *logging.Logger, shutdown func()) *Module {
	m := &Module{
		cfg:       cfg,
		log:       log,
		status:    status,
		recording: &runtime.RecordingState{},
	}
	m.dispatcher = runtime.NewDispatcher(status, m.recording, shutdown, log)
	m.dispatcher.Handle(protocol.CmdStartRecording, m.handleStartRecording)
	m.dispatcher.Handle(protocol.CmdStopRecording, m.handleStopRecording)
	m.dispatcher.Handle(protocol.CmdGetStatus, m.handleGetStatus)
	m.dispatcher.Handle(protocol.CmdSetWindowGeom, m.handleSetWindowGeometry)
	m.dispatcher.Handle(protocol.CmdGetGeometry, m.handleGetGeometry)

	if cfg.ExtraHandlers != nil {
		for name, h := range cfg.ExtraHandlers(m) {
			m.dispatcher.Handle(name, h)
		}
	}
	return m
}

// SetRunMode assigns the mode runner after construction, letting a
// cmd/module entrypoint build a RunModeFunc that closes over the
// Module's own Dispatcher (only available once New has returned).
func (m *Module) SetRunMode(fn RunModeFunc) { m.cfg.RunMode = fn }

// Dispatcher returns the command dispatcher, for a cmd/module
// entrypoint to drive via runtime.RunSlaveMode/RunHeadlessMode/
// RunGUIMode/RunInteractiveMode.
func (m *Module) Dispatcher() *runtime.Dispatcher { return m.dispatcher }

// StatusWriter returns the status sink, so a concrete module's Source
// can emit module-specific status lines (preview frames, device
// events) alongside the standard ones.
func (m *Module) StatusWriter() *protocol.StatusWriter { return m.status }

// Recording reports whether a capture is currently active.
func (m *Module) Recording() bool { return m.recording.Active() }

// Context returns a snapshot of the current run's trial/label/device
// bookkeeping, for a concrete module's extra command handlers (e.g.
// notes' add_note) that need to stamp a row with the same identifiers
// the standard-prefix CSV columns use.
func (m *Module) Context() (trial int, label, sessionDir, deviceID string, recording bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trial, m.label, m.sessionDir, m.deviceID, m.recording.Active()
}

// SubmitFrame pushes f directly into the active recording pipeline,
// bypassing the Source's periodic capture loop. It reports false
// (without emitting a status) when no pipeline is currently running,
// leaving the caller to decide how to surface that. Concrete modules
// use this for commands that produce exactly one discrete row on
// demand - an operator note, a triggered stimulus - rather than a
// continuously sampled channel.
func (m *Module) SubmitFrame(f pipeline.Frame) bool {
	m.mu.Lock()
	pl := m.pl
	m.mu.Unlock()
	if pl == nil {
		return false
	}
	pl.Submit(f)
	return true
}

// Run implements runtime.System: it runs Init (if set), announces
// readiness, then hands control to RunMode until ctx is cancelled. An
// Init failure is returned unchanged so the Supervisor can distinguish
// a retryable initialization error.
func (m *Module) Run(ctx context.Context) error {
	if m.cfg.Init != nil {
		if err := m.status.Send(protocol.StatusInitializing, nil); err != nil {
			m.log.WithError(err).Warn("module: failed to send initializing status")
		}
		if err := m.cfg.Init(ctx); err != nil {
			return err
		}
	}
	if err := m.status.Send(protocol.StatusInitialized, map[string]interface{}{"module": m.cfg.Name}); err != nil {
		m.log.WithError(err).Warn("module: failed to send initialized status")
	}

	if m.cfg.RunMode == nil {
		<-ctx.Done()
		return nil
	}
	m.cfg.RunMode(ctx, m.dispatcher)
	return nil
}

// Cleanup implements runtime.System: it stops any in-flight pipeline
// so a Supervisor retry or process exit never leaves an encoder or
// timing file open.
func (m *Module) Cleanup() {
	pl, cancel, runCtx, src, done := m.snapshotRun()
	m.clearRun()
	if pl == nil {
		return
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if src != nil {
		if err := src.Close(); err != nil {
			m.log.WithError(err).Warn("module: cleanup source close failed")
		}
	}
	if err := pl.Stop(runCtx); err != nil {
		m.log.WithError(err).Warn("module: cleanup pipeline stop reported an error")
	}
}

func (m *Module) snapshotRun() (*pipeline.Pipeline, context.CancelFunc, context.Context, Source, chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pl, m.cancelRun, m.runCtx, m.src, m.sourceDone
}

func (m *Module) clearRun() {
	m.mu.Lock()
	m.pl, m.src, m.cancelRun, m.runCtx, m.sourceDone = nil, nil, nil, nil, nil
	m.mu.Unlock()
}

func (m *Module) handleStartRecording(ctx context.Context, cmd protocol.Command) error {
	if !m.dispatcher.RequirePrecondition(false) {
		return nil
	}

	trial := cmd.GetInt("trial_number")
	label := cmd.Get("trial_label")
	deviceID := cmd.Get("device_id")
	sessionDir := cmd.Get("session_dir")
	if sessionDir == "" {
		sessionDir = m.cfg.DefaultSessionDir
	}
	if sessionDir == "" {
		return fmt.Errorf("start_recording: no session_dir provided")
	}

	if err := os.MkdirAll(m.OutputDir(sessionDir), 0o755); err != nil {
		return fmt.Errorf("create module output dir: %w", err)
	}

	writer, err := m.cfg.NewWriter(m.outputPath(sessionDir, trial, label))
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}

	src, err := m.cfg.NewSource(m)
	if err != nil {
		_ = writer.Close()
		return fmt.Errorf("create source: %w", err)
	}

	pl, err := pipeline.New(pipeline.Config{
		FPS:              m.cfg.FPS,
		QueueCapacity:    m.cfg.QueueCapacity,
		TimingCSVPath:    m.timingPath(sessionDir, trial, label),
		TimingWithGaze:   m.cfg.TimingWithGaze,
		SkipStalledTicks: m.cfg.SkipStalledTicks,
		Writer:           writer,
	}, m.log)
	if err != nil {
		_ = src.Close()
		_ = writer.Close()
		return fmt.Errorf("create pipeline: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	// Run bookkeeping (trial/label/device) and the pipeline/source
	// handles are stored before the source goroutine starts, so a
	// Source.Start that immediately calls m.Context() never races
	// against this assignment.
	done := make(chan struct{})
	m.mu.Lock()
	m.pl, m.src, m.cancelRun, m.runCtx, m.sourceDone = pl, src, cancel, runCtx, done
	m.trial, m.label, m.sessionDir, m.deviceID = trial, label, sessionDir, deviceID
	m.mu.Unlock()

	pl.Start(runCtx)
	go func() {
		defer close(done)
		if serr := src.Start(runCtx, pl.Submit); serr != nil && runCtx.Err() == nil {
			m.log.WithError(serr).Warn("module: source stopped unexpectedly")
		}
	}()

	m.recording.Set(true)
	return m.status.Send(protocol.StatusRecordingStarted, map[string]interface{}{
		"trial":     trial,
		"label":     label,
		"device_id": deviceID,
	})
}

func (m *Module) handleStopRecording(ctx context.Context, cmd protocol.Command) error {
	if !m.dispatcher.RequirePrecondition(true) {
		return nil
	}
	pl, cancel, runCtx, src, done := m.snapshotRun()
	m.clearRun()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if src != nil {
		if err := src.Close(); err != nil {
			m.log.WithError(err).Warn("module: source close failed")
		}
	}
	if pl != nil {
		if err := pl.Stop(runCtx); err != nil {
			m.log.WithError(err).Warn("module: pipeline stop reported an error")
		}
	}

	m.recording.Set(false)
	return m.status.Send(protocol.StatusRecordingStopped, nil)
}

func (m *Module) handleGetStatus(ctx context.Context, cmd protocol.Command) error {
	return m.status.Send(protocol.StatusReport, m.ReportFields())
}

// ReportFields returns the base status_report payload (module name,
// recording state, trial bookkeeping) every concrete module's
// get_status override should start from and add its own
// device-specific keys to, so every module's report shares the same
// foundation instead of re-deriving it.
func (m *Module) ReportFields() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]interface{}{
		"module":    m.cfg.Name,
		"recording": m.recording.Active(),
		"trial":     m.trial,
		"label":     m.label,
		"device_id": m.deviceID,
	}
}

// FirePreview invokes cfg.PreviewTick, if set, whether or not
// recording is active - GUI mode's preview task calls this at cfg.PreviewHz
// regardless of which concrete module is running.
func (m *Module) FirePreview() {
	if m.cfg.PreviewTick != nil {
		m.cfg.PreviewTick(m)
	}
}

// SetGeometry records the window geometry get_geometry reports back,
// seeded from the --geometry flag at startup and updated by every
// set_window_geometry command.
func (m *Module) SetGeometry(width, height, x, y int) {
	m.mu.Lock()
	m.geomWidth, m.geomHeight, m.geomX, m.geomY = width, height, x, y
	m.hasGeom = true
	m.mu.Unlock()
}

// Geometry returns the last recorded window geometry, if any was set.
func (m *Module) Geometry() (width, height, x, y int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geomWidth, m.geomHeight, m.geomX, m.geomY, m.hasGeom
}

// handleSetWindowGeometry accepts either a "geometry" string of the
// toolkit form "WxH+X+Y" or separate x/y/width/height fields, records
// the result, and echoes it as geometry_changed.
func (m *Module) handleSetWindowGeometry(ctx context.Context, cmd protocol.Command) error {
	var width, height, x, y int
	if g := cmd.Get("geometry"); g != "" {
		var ok bool
		width, height, x, y, ok = ParseGeometry(g)
		if !ok {
			return fmt.Errorf("set_window_geometry: malformed geometry %q", g)
		}
	} else {
		width, height = cmd.GetInt("width"), cmd.GetInt("height")
		x, y = cmd.GetInt("x"), cmd.GetInt("y")
	}
	m.SetGeometry(width, height, x, y)
	return m.sendGeometryChanged()
}

// handleGetGeometry reports the last recorded geometry, or does
// nothing when none has ever been set (a module with no window).
func (m *Module) handleGetGeometry(ctx context.Context, cmd protocol.Command) error {
	if _, _, _, _, ok := m.Geometry(); !ok {
		return nil
	}
	return m.sendGeometryChanged()
}

func (m *Module) sendGeometryChanged() error {
	width, height, x, y, _ := m.Geometry()
	return m.status.Send(protocol.StatusGeometryChanged, map[string]interface{}{
		"width":  width,
		"height": height,
		"x":      x,
		"y":      y,
	})
}

// ParseGeometry parses the toolkit geometry string form "WxH+X+Y".
func ParseGeometry(s string) (width, height, x, y int, ok bool) {
	if strings.Count(s, "+") != 2 || strings.Count(s, "x") != 1 {
		return 0, 0, 0, 0, false
	}
	if _, err := fmt.Sscanf(s, "%dx%d+%d+%d", &width, &height, &x, &y); err != nil {
		return 0, 0, 0, 0, false
	}
	return width, height, x, y, true
}

// OutputDir is the per-module subdirectory under the session
// directory this module's child owns; every file the module writes
// for a session lands inside it.
func (m *Module) OutputDir(sessionDir string) string {
	return filepath.Join(sessionDir, m.cfg.Name)
}

func (m *Module) outputPath(sessionDir string, trial int, label string) string {
	return filepath.Join(m.OutputDir(sessionDir), fmt.Sprintf("%s_trial%03d_%s%s", m.cfg.Name, trial, label, m.cfg.MediaExtension))
}

func (m *Module) timingPath(sessionDir string, trial int, label string) string {
	return filepath.Join(m.OutputDir(sessionDir), fmt.Sprintf("%s_trial%03d_%s_timing.csv", m.cfg.Name, trial, label))
}
