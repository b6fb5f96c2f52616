package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/orchestrator/process"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

// Config holds the orchestrator's timing knobs
// (discovery_retry_interval belongs to the supervisor, not here).
type Config struct {
	DataDir           string
	SessionPrefix     string
	TrialStartTimeout time.Duration
	TrialStopTimeout  time.Duration
	InitTimeout       time.Duration
}

// Orchestrator owns session/trial state and fans lifecycle operations
// out to every enabled module instance.
type Orchestrator struct {
	bus

	mu      sync.Mutex
	cfg     Config
	log     *logging.Logger
	modules map[string]*Instance
	specs   map[string]process.Spec

	sessionActive bool
	sessionDir    string
	trialActive   bool
	trialCounter  int
	trialLabel    string

	geometry map[string]process.Geometry
}

// New returns an Orchestrator with no modules registered.
func New(cfg Config, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		log:      log,
		modules:  make(map[string]*Instance),
		specs:    make(map[string]process.Spec),
		geometry: make(map[string]process.Geometry),
	}
}

// RegisterModule declares a module the orchestrator can later enable
// and start. spec describes how to launch its child process.
func (o *Orchestrator) RegisterModule(spec process.Spec) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.specs[spec.Name] = spec
	if _, ok := o.modules[spec.Name]; !ok {
		o.modules[spec.Name] = &Instance{Name: spec.Name}
	}
}

// EnableModule marks a module eligible to be started. Enabling alone
// never starts the process.
func (o *Orchestrator) EnableModule(name string, enabled bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	inst, ok := o.modules[name]
	if !ok {
		return fmt.Errorf("module %q not registered", name)
	}
	inst.Enabled = enabled
	return nil
}

// Instances returns a snapshot of every registered module instance.
func (o *Orchestrator) Instances() []*Instance {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Instance, 0, len(o.modules))
	for _, inst := range o.modules {
		out = append(out, inst)
	}
	return out
}

// ModuleCounts reports how many instances are currently RUNNING versus
// CRASHED, for the /health and /status route handlers.
func (o *Orchestrator) ModuleCounts() (running, crashed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, inst := range o.modules {
		if inst.proc == nil {
			continue
		}
		switch inst.proc.State() {
		case process.StateRunning:
			running++
		case process.StateCrashed:
			crashed++
		}
	}
	return running, crashed
}

// Module looks up a registered instance by name.
func (o *Orchestrator) Module(name string) (*Instance, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	inst, ok := o.modules[name]
	return inst, ok
}

// ModuleLogDir returns the configured log directory for a registered
// module, used by the REST control plane's log-listing routes.
func (o *Orchestrator) ModuleLogDir(name string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	spec, ok := o.specs[name]
	if !ok {
		return "", false
	}
	return spec.LogDir, true
}

// StartModule spawns name's process if not already running. When a
// session is active, the current session directory is forwarded as a
// --session-dir argument automatically; when the module reported a geometry before, that is
// replayed too.
func (o *Orchestrator) StartModule(ctx context.Context, name string) error {
	o.mu.Lock()
	inst, ok := o.modules[name]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("module %q not registered", name)
	}
	if !inst.Enabled {
		o.mu.Unlock()
		return fmt.Errorf("module %q is not enabled", name)
	}
	if inst.Running() {
		o.mu.Unlock()
		return fmt.Errorf("module %q already running", name)
	}
	spec := o.specs[name]
	var args []string
	if o.sessionActive {
		args = append(args, "--session-dir", o.sessionDir)
	}
	if g, ok := o.geometry[name]; ok {
		args = append(args, "--geometry", formatGeometry(g))
	}
	initTimeout := o.cfg.InitTimeout
	o.mu.Unlock()

	p := process.New(spec, o.log)
	p.OnStateChange = func(s process.State) {
		o.publish(Event{Module: name, Status: stateToStatusEvent(s)})
	}
	if err := p.Spawn(ctx, args, initTimeout); err != nil {
		return err
	}

	o.mu.Lock()
	inst.proc = p
	o.mu.Unlock()

	go inst.watch(o)
	return nil
}

// noteGeometry records name's last reported window geometry so a
// future StartModule can replay it.
func (o *Orchestrator) noteGeometry(name string, g process.Geometry) {
	o.mu.Lock()
	o.geometry[name] = g
	o.mu.Unlock()
}

// StopModule gracefully stops a running module instance. A crashed
// instance stays visible until this is called explicitly - the
// operator acknowledging the crash.
func (o *Orchestrator) StopModule(name string, graceTimeout time.Duration) error {
	o.mu.Lock()
	inst, ok := o.modules[name]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("module %q not registered", name)
	}
	if inst.proc == nil {
		return nil
	}
	return inst.proc.Stop(graceTimeout)
}

func formatGeometry(g process.Geometry) string {
	return fmt.Sprintf("%dx%d+%d+%d", g.Width, g.Height, g.X, g.Y)
}

// stateToStatusEvent wraps a process state transition as a synthetic
// status so subscribers that only watch the event bus (rather than
// polling Instances) still see CRASHED without the orchestrator
// needing a second notification channel.
func stateToStatusEvent(s process.State) protocol.Status {
	return protocol.Status{Status: "instance_state_changed", Data: map[string]interface{}{"state": s.String()}}
}
